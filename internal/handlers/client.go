package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/auth"
	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/httpx"
	"github.com/wealthempires/crm-server/internal/lifecycle"
	"github.com/wealthempires/crm-server/internal/models"
	"github.com/wealthempires/crm-server/internal/policy"
	"github.com/wealthempires/crm-server/internal/validation"
)

const maxUploadSize = 32 << 20

type ClientHandler struct {
	DB        *gorm.DB
	Gate      *gate.Gate
	UploadDir string
}

func NewClientHandler(db *gorm.DB, g *gate.Gate, uploadDir string) *ClientHandler {
	return &ClientHandler{DB: db, Gate: g, UploadDir: uploadDir}
}

func (h *ClientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /clients", h.list)
	mux.HandleFunc("GET /clients/{user}", h.listForUser)
	mux.HandleFunc("GET /client/{id}", h.get)
	mux.HandleFunc("POST /create_client", h.create)
	mux.HandleFunc("POST /add_client", h.onboard)
	mux.HandleFunc("PATCH /edit_client/{id}", h.update)
	mux.HandleFunc("DELETE /delete_client/{id}", h.remove)
	mux.HandleFunc("GET /get_client_history/{id}", h.history)
	mux.HandleFunc("GET /client-files/{id}", h.files)
}

func (h *ClientHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var clients []models.Client
	q := policy.ScopeList(r.Context(), h.DB, h.DB.Order("company_name"), uid)
	if err := q.Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

// listForUser narrows the list to one account manager's assignments.
func (h *ClientHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	var clients []models.Client
	if err := h.DB.Where("assigned_to = ?", r.PathValue("user")).Order("company_name").Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) get(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionView, policy.ResourceClient, &client); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// clientFromForm reads the shared multipart fields of the registration
// and onboarding forms.
func clientFromForm(r *http.Request, v validation.Violations) models.Client {
	client := models.Client{
		CompanyName:  strings.TrimSpace(r.FormValue("company_name")),
		BusinessType: strings.TrimSpace(r.FormValue("business_type")),
		OwnerName:    strings.TrimSpace(r.FormValue("owner_name")),
		CompanyEmail: strings.TrimSpace(r.FormValue("company_email")),
		Phone:        strings.TrimSpace(r.FormValue("phone")),
		Address:      strings.TrimSpace(r.FormValue("address")),
		PAN:          strings.TrimSpace(r.FormValue("pan")),
		GSTIN:        strings.TrimSpace(r.FormValue("gstin")),
		ROC:          strings.TrimSpace(r.FormValue("roc")),
		Status:       r.FormValue("status"),
		AssignedTo:   strings.TrimSpace(r.FormValue("assigned_to")),
		LastContact:  time.Now(),
	}
	if client.Status == "" {
		client.Status = "active"
	}

	validation.Required("company_name", client.CompanyName, v)
	validation.Email("company_email", client.CompanyEmail, v)
	validation.Phone10("phone", client.Phone, v)
	validation.OneOf("status", client.Status, []string{"active", "inactive"}, v)

	if raw := r.FormValue("revenue"); raw != "" {
		rev, err := strconv.ParseFloat(raw, 64)
		if err != nil || rev < 0 {
			v["revenue"] = "must_be_a_number"
		} else {
			client.Revenue = rev
		}
	}
	if raw := r.FormValue("services"); raw != "" {
		var services []string
		if err := json.Unmarshal([]byte(raw), &services); err != nil {
			v["services"] = "invalid_json"
		} else {
			client.Services = services
		}
	}
	if raw := r.FormValue("shareholders"); raw != "" {
		var shareholders models.ShareholderList
		if err := json.Unmarshal([]byte(raw), &shareholders); err != nil {
			v["shareholders"] = "invalid_json"
		} else if err := shareholders.Validate(); err != nil {
			v["shareholders"] = "percent_out_of_range"
		} else {
			client.Shareholders = shareholders
		}
	}
	return client
}

// create handles the short registration form (optional pan/gstin scans).
func (h *ClientHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionCreate, policy.ResourceClient, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}

	v := validation.Violations{}
	client := clientFromForm(r, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.persistClient(r, &client, uid, map[string]string{
		"gstin_file": "gstin",
		"pan_file":   "pan",
	}); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "client": client})
}

// onboard handles the long multi-step form: shareholders plus any number
// of categorized document uploads.
func (h *ClientHandler) onboard(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionCreate, policy.ResourceClient, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}

	v := validation.Violations{}
	client := clientFromForm(r, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.persistClient(r, &client, uid, nil); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}

	// categorized attachments: files[i] pairs with file_categories[i]
	if r.MultipartForm != nil {
		files := r.MultipartForm.File["files"]
		categories := r.MultipartForm.Value["file_categories"]
		descriptions := r.MultipartForm.Value["file_descriptions"]
		for i, fh := range files {
			category := ""
			if i < len(categories) {
				category = categories[i]
			}
			description := ""
			if i < len(descriptions) {
				description = descriptions[i]
			}
			if err := h.storeDocument(fh, client.ID, uid, category, description); err != nil {
				log.Error().Err(err).Str("file", fh.Filename).Msg("store attachment")
			}
		}
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "client": client})
}

// persistClient saves the row plus its derived records: one tracking row
// per selected service section and the billing ledger row. Named uploads
// (field -> category) become documents.
func (h *ClientHandler) persistClient(r *http.Request, client *models.Client, uid uint, uploads map[string]string) error {
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(client).Error; err != nil {
			return err
		}

		deadline := time.Now().AddDate(0, 1, 0)
		for _, section := range sectionsFor(client.Services) {
			status := lifecycle.StatusOptions(section)[0]
			record := models.ServiceRecord{
				ClientID:   client.ID,
				Section:    section,
				Status:     status,
				Progress:   lifecycle.ProgressFor(section, status),
				Priority:   lifecycle.PriorityFor(deadline, time.Now()),
				AssignedTo: client.AssignedTo,
				Deadline:   deadline,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&models.Billing{}).Count(&count).Error; err != nil {
			return err
		}
		billing := models.Billing{
			ClientID:      client.ID,
			InvoiceNumber: fmt.Sprintf("%04d", count+1),
			TotalAmount:   client.Revenue,
			DueAmount:     client.Revenue,
			Status:        string(lifecycle.PaymentUnpaid),
			Deadline:      deadline,
		}
		return tx.Create(&billing).Error
	})
	if err != nil {
		return err
	}

	for field, category := range uploads {
		_, fh, err := r.FormFile(field)
		if err != nil {
			continue
		}
		if err := h.storeDocument(fh, client.ID, uid, category, ""); err != nil {
			log.Error().Err(err).Str("file", fh.Filename).Msg("store attachment")
		}
	}
	return nil
}

// sectionsFor maps catalog tags to their distinct tracking sections.
func sectionsFor(services []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tag := range services {
		section := models.SectionForService(tag)
		if section == "" || seen[section] {
			continue
		}
		seen[section] = true
		out = append(out, section)
	}
	return out
}

// storeDocument writes the upload under a uuid name and records it.
func (h *ClientHandler) storeDocument(fh *multipart.FileHeader, clientID, uploadedBy uint, category, description string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return err
	}
	name := uuid.NewString() + filepath.Ext(fh.Filename)
	path := filepath.Join(h.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	doc := models.Document{
		ClientID:    clientID,
		Category:    category,
		Description: description,
		Name:        fh.Filename,
		Path:        path,
		MimeType:    fh.Header.Get("Content-Type"),
		UploadedBy:  uploadedBy,
	}
	return h.DB.Create(&doc).Error
}

func (h *ClientHandler) update(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceClient, &client); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}

	updates := map[string]any{}
	v := validation.Violations{}
	for field, column := range map[string]string{
		"company_name":  "company_name",
		"business_type": "business_type",
		"owner_name":    "owner_name",
		"company_email": "company_email",
		"phone":         "phone",
		"address":       "address",
		"pan":           "pan",
		"gstin":         "gstin",
		"roc":           "roc",
		"status":        "status",
		"assigned_to":   "assigned_to",
	} {
		if _, present := r.MultipartForm.Value[field]; present {
			updates[column] = strings.TrimSpace(r.FormValue(field))
		}
	}
	if val, ok := updates["company_email"]; ok {
		validation.Email("company_email", val.(string), v)
	}
	if val, ok := updates["phone"]; ok {
		validation.Phone10("phone", val.(string), v)
	}
	if val, ok := updates["status"]; ok {
		validation.OneOf("status", val.(string), []string{"active", "inactive"}, v)
	}
	if raw := r.FormValue("revenue"); raw != "" {
		rev, err := strconv.ParseFloat(raw, 64)
		if err != nil || rev < 0 {
			v["revenue"] = "must_be_a_number"
		} else {
			updates["revenue"] = rev
		}
	}
	if raw := r.FormValue("services"); raw != "" {
		var services models.StringList
		if err := json.Unmarshal([]byte(raw), &services); err != nil {
			v["services"] = "invalid_json"
		} else {
			updates["services"] = services
		}
	}
	if raw := r.FormValue("shareholders"); raw != "" {
		var shareholders models.ShareholderList
		if err := json.Unmarshal([]byte(raw), &shareholders); err != nil {
			v["shareholders"] = "invalid_json"
		} else if err := shareholders.Validate(); err != nil {
			v["shareholders"] = "percent_out_of_range"
		} else {
			updates["shareholders"] = shareholders
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if len(updates) > 0 {
		updates["last_contact"] = time.Now()
		if err := h.DB.Model(&client).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
			return
		}
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			if err := h.storeDocument(fh, client.ID, uid, "update", ""); err != nil {
				log.Error().Err(err).Str("file", fh.Filename).Msg("store attachment")
			}
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "client": client})
}

// remove deletes the client and everything hanging off it.
func (h *ClientHandler) remove(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionDelete, policy.ResourceClient, &client); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.ServiceRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.Billing{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		return tx.Delete(&client).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type clientHistoryEntry struct {
	ClientID     uint      `json:"client_id"`
	CompanyName  string    `json:"company_name"`
	BusinessType string    `json:"business_type"`
	LastContact  time.Time `json:"last_contact"`
	CreatedAt    time.Time `json:"created_at"`
	ServiceType  string    `json:"service_type"`
	AssignedTo   string    `json:"assignedTo"`
}

// history returns one row per tracked service, newest first.
func (h *ClientHandler) history(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionView, policy.ResourceClient, &client); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var records []models.ServiceRecord
	if err := h.DB.Where("client_id = ?", client.ID).Order("created_at desc").Find(&records).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}

	out := make([]clientHistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, clientHistoryEntry{
			ClientID:     client.ID,
			CompanyName:  client.CompanyName,
			BusinessType: client.BusinessType,
			LastContact:  client.LastContact,
			CreatedAt:    rec.CreatedAt,
			ServiceType:  rec.Section,
			AssignedTo:   rec.AssignedTo,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type clientFile struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

func (h *ClientHandler) files(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionView, policy.ResourceClient, &client); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var docs []models.Document
	if err := h.DB.Where("client_id = ?", client.ID).Order("created_at").Find(&docs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	out := make([]clientFile, 0, len(docs))
	for _, d := range docs {
		out = append(out, clientFile{Name: d.Name, Category: d.Category, URL: d.Path})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *ClientHandler) load(w http.ResponseWriter, r *http.Request) (models.Client, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return models.Client{}, false
	}
	var client models.Client
	dbErr := h.DB.Preload("Documents").First(&client, uint(id)).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
		return models.Client{}, false
	}
	if dbErr != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return models.Client{}, false
	}
	return client, true
}
