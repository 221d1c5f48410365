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
	"github.com/wealthempires/crm-server/internal/services"
	"github.com/wealthempires/crm-server/internal/validation"
)

type LeadHandler struct {
	DB       *gorm.DB
	Gate     *gate.Gate
	Importer *services.LeadImportService
}

func NewLeadHandler(db *gorm.DB, g *gate.Gate) *LeadHandler {
	return &LeadHandler{DB: db, Gate: g, Importer: services.NewLeadImportService(db)}
}

func (h *LeadHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /get_client_leads", h.list)
	mux.HandleFunc("POST /add-lead", h.create)
	mux.HandleFunc("PUT /edit_lead/{id}", h.update)
	mux.HandleFunc("PATCH /edit_lead/{id}", h.update)
	mux.HandleFunc("PATCH /drop_lead/{id}", h.drop)
	mux.HandleFunc("DELETE /delete_lead/{id}", h.remove)
	mux.HandleFunc("POST /import_leads", h.bulkImport)
}

type leadRow struct {
	models.Lead
	FollowUpDue bool `json:"follow_up_due"`
}

func (h *LeadHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var leads []models.Lead
	q := policy.ScopeList(r.Context(), h.DB, h.DB.Order("last_contact desc"), uid)
	if err := q.Find(&leads).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}

	now := time.Now()
	out := make([]leadRow, 0, len(leads))
	for _, lead := range leads {
		out = append(out, leadRow{Lead: lead, FollowUpDue: lifecycle.FollowUpDue(lead.LastContact, now)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type leadRequest struct {
	CompanyName string   `json:"company_name"`
	OwnerName   string   `json:"owner_name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Services    []string `json:"services"`
	LastContact string   `json:"last_contact"`
	AssignedTo  string   `json:"assigned_to"`
	StageStatus string   `json:"stage_status"`
}

func (req *leadRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("company_name", req.CompanyName, v)
	validation.Email("email", req.Email, v)
	validation.Phone10("phone", req.Phone, v)
	return v
}

func (req *leadRequest) lastContact() time.Time {
	if req.LastContact != "" {
		if t, err := time.Parse("2006-01-02", req.LastContact); err == nil {
			return t
		}
	}
	return time.Now()
}

func (h *LeadHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionCreate, policy.ResourceLead, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	lead := models.Lead{
		CompanyName: strings.TrimSpace(req.CompanyName),
		OwnerName:   strings.TrimSpace(req.OwnerName),
		Email:       strings.TrimSpace(req.Email),
		Phone:       req.Phone,
		Services:    req.Services,
		StageStatus: string(lifecycle.ParseStage(req.StageStatus)),
		LastContact: req.lastContact(),
		AssignedTo:  strings.TrimSpace(req.AssignedTo),
	}
	if err := h.DB.Create(&lead).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, lead)
}

// update edits lead fields. A stage_status change must be a legal funnel
// move: one step forward, or a drop from a non-terminal stage.
func (h *LeadHandler) update(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceLead, &lead); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	updates := map[string]any{}
	v := validation.Violations{}
	if req.CompanyName != "" {
		updates["company_name"] = strings.TrimSpace(req.CompanyName)
	}
	if req.OwnerName != "" {
		updates["owner_name"] = strings.TrimSpace(req.OwnerName)
	}
	if req.Email != "" {
		validation.Email("email", req.Email, v)
		updates["email"] = strings.TrimSpace(req.Email)
	}
	if req.Phone != "" {
		validation.Phone10("phone", req.Phone, v)
		updates["phone"] = req.Phone
	}
	if req.Services != nil {
		updates["services"] = models.StringList(req.Services)
	}
	if req.AssignedTo != "" {
		updates["assigned_to"] = strings.TrimSpace(req.AssignedTo)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if req.StageStatus != "" {
		from := lifecycle.ParseStage(lead.StageStatus)
		to := lifecycle.ParseStage(req.StageStatus)
		if to != from {
			if !lifecycle.CanTransition(from, to) {
				httpx.JSONError(w, http.StatusConflict, "invalid_stage_transition", map[string]string{
					"from": string(from), "to": string(to),
				})
				return
			}
			updates["stage_status"] = string(to)
		}
	}

	updates["last_contact"] = req.lastContact()
	if err := h.DB.Model(&lead).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

// drop sends a lead to the dropped lane. Terminal leads stay put.
func (h *LeadHandler) drop(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceLead, &lead); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	from := lifecycle.ParseStage(lead.StageStatus)
	if !lifecycle.CanTransition(from, lifecycle.StageDropped) {
		httpx.JSONError(w, http.StatusConflict, "invalid_stage_transition", map[string]string{
			"from": string(from), "to": string(lifecycle.StageDropped),
		})
		return
	}
	if err := h.DB.Model(&lead).Updates(map[string]any{
		"stage_status": string(lifecycle.StageDropped),
		"last_contact": time.Now(),
	}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) remove(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionDelete, policy.ResourceLead, &lead); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := h.DB.Delete(&lead).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// bulkImport accepts a multipart xlsx under "file" and creates leads row
// by row, reporting per-row failures instead of aborting.
func (h *LeadHandler) bulkImport(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionCreate, policy.ResourceLead, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "missing_file", nil)
		return
	}
	defer file.Close()

	result, err := h.Importer.Import(r.Context(), file, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_workbook", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *LeadHandler) load(w http.ResponseWriter, r *http.Request) (models.Lead, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return models.Lead{}, false
	}
	var lead models.Lead
	dbErr := h.DB.First(&lead, uint(id)).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "lead_not_found", nil)
		return models.Lead{}, false
	}
	if dbErr != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return models.Lead{}, false
	}
	return lead, true
}
