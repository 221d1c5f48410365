package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/auth"
	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/httpx"
	"github.com/wealthempires/crm-server/internal/lifecycle"
	"github.com/wealthempires/crm-server/internal/models"
	"github.com/wealthempires/crm-server/internal/policy"
)

type ServiceHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate
}

func NewServiceHandler(db *gorm.DB, g *gate.Gate) *ServiceHandler {
	return &ServiceHandler{DB: db, Gate: g}
}

func (h *ServiceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /get_all_services", h.list)
	mux.HandleFunc("GET /get_all_services/{user}", h.listForUser)
	mux.HandleFunc("PATCH /update_service/{id}", h.updateAssignment)
	mux.HandleFunc("PATCH /update_status/{id}", h.updateStatus)
	mux.HandleFunc("DELETE /delete_service", h.remove)
}

type serviceRow struct {
	ServiceID   uint   `json:"service_id"`
	Client      string `json:"client"`
	ServiceType string `json:"service_type"`
	Period      string `json:"period"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	AssignedTo  string `json:"assignedTo"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
}

func (h *ServiceHandler) rows(w http.ResponseWriter, scope func(*gorm.DB) *gorm.DB) {
	var records []models.ServiceRecord
	q := h.DB.Preload("Client").Order("deadline asc")
	if scope != nil {
		q = scope(q)
	}
	if err := q.Find(&records).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}

	now := time.Now()
	out := make([]serviceRow, 0, len(records))
	for _, rec := range records {
		row := serviceRow{
			ServiceID:   rec.ID,
			Client:      rec.Client.CompanyName,
			ServiceType: rec.Section,
			Period:      rec.Period,
			Status:      rec.Status,
			Progress:    rec.Progress,
			AssignedTo:  rec.AssignedTo,
			Deadline:    rec.Deadline.Format("2006-01-02"),
		}
		// finished work carries no urgency badge
		if rec.Progress < 100 {
			row.Priority = lifecycle.PriorityFor(rec.Deadline, now)
		}
		out = append(out, row)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *ServiceHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	h.rows(w, func(q *gorm.DB) *gorm.DB {
		return policy.ScopeList(r.Context(), h.DB, q, uid)
	})
}

func (h *ServiceHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	h.rows(w, func(q *gorm.DB) *gorm.DB {
		return q.Where("assigned_to = ?", user)
	})
}

type updateAssignmentRequest struct {
	AssignedTo string `json:"assignedTo"`
	Deadline   string `json:"deadline"`
}

// updateAssignment changes who works the service and when it is due;
// priority is recomputed from the new deadline.
func (h *ServiceHandler) updateAssignment(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionAssign, policy.ResourceService, &record); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req updateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	updates := map[string]any{}
	if req.AssignedTo != "" {
		updates["assigned_to"] = strings.TrimSpace(req.AssignedTo)
	}
	if req.Deadline != "" {
		deadline, err := time.Parse("2006-01-02", req.Deadline)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_deadline", nil)
			return
		}
		updates["deadline"] = deadline
		updates["priority"] = lifecycle.PriorityFor(deadline, time.Now())
	}
	if len(updates) == 0 {
		httpx.JSON(w, http.StatusOK, record)
		return
	}
	if err := h.DB.Model(&record).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// updateStatus moves the service through its section's vocabulary;
// progress is derived from the status, never taken from the client.
func (h *ServiceHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceService, &record); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if !lifecycle.ValidStatus(record.Section, req.Status) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", map[string]any{
			"allowed": lifecycle.StatusOptions(record.Section),
		})
		return
	}

	if err := h.DB.Model(&record).Updates(map[string]any{
		"status":   req.Status,
		"progress": lifecycle.ProgressFor(record.Section, req.Status),
	}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

type deleteServiceRequest struct {
	ClientID uint   `json:"client_id"`
	Section  string `json:"section"`
}

// remove deletes by (client_id, section): service ids are not unique per
// client across sections in the tracking view.
func (h *ServiceHandler) remove(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionDelete, policy.ResourceService, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req deleteServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ClientID == 0 || req.Section == "" {
		httpx.JSONError(w, http.StatusBadRequest, "client_id_and_section_required", nil)
		return
	}

	res := h.DB.Where("client_id = ? AND section = ?", req.ClientID, req.Section).Delete(&models.ServiceRecord{})
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "service_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "deleted": res.RowsAffected})
}

func (h *ServiceHandler) load(w http.ResponseWriter, r *http.Request) (models.ServiceRecord, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return models.ServiceRecord{}, false
	}
	var record models.ServiceRecord
	dbErr := h.DB.First(&record, uint(id)).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "service_not_found", nil)
		return models.ServiceRecord{}, false
	}
	if dbErr != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return models.ServiceRecord{}, false
	}
	return record, true
}
