package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
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

type BillingHandler struct {
	DB       *gorm.DB
	Gate     *gate.Gate
	Invoices *services.InvoiceService
}

func NewBillingHandler(db *gorm.DB, g *gate.Gate) *BillingHandler {
	return &BillingHandler{DB: db, Gate: g, Invoices: services.NewInvoiceService()}
}

func (h *BillingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /billing_with_clients", h.listWithClients)
	mux.HandleFunc("PATCH /update_payment/{client_id}", h.updatePayment)
	mux.HandleFunc("GET /invoice_preview/{client_id}", h.invoicePreviewDefault)
	mux.HandleFunc("POST /invoice_preview/{client_id}", h.invoicePreview)
}

// billingRow is the joined billing+client shape the ledger view groups
// into its unpaid/partial/paid/dues buckets.
type billingRow struct {
	ClientID      uint              `json:"client_id"`
	CompanyName   string            `json:"company_name"`
	OwnerName     string            `json:"owner_name"`
	CompanyEmail  string            `json:"company_email"`
	Phone         string            `json:"phone"`
	AssignedTo    string            `json:"assignedTo"`
	Address       string            `json:"address"`
	GSTIN         string            `json:"gstin"`
	Services      models.StringList `json:"services"`
	InvoiceNumber string            `json:"invoice_number"`
	TotalAmount   float64           `json:"total_amount"`
	AmountPaid    float64           `json:"amount_paid"`
	DueAmount     float64           `json:"due_amount"`
	Status        string            `json:"status"`
	Progress      float64           `json:"progress"`
	PaymentMode   string            `json:"payment_mode"`
	DueDate       string            `json:"due_date"`
}

func (h *BillingHandler) listWithClients(w http.ResponseWriter, r *http.Request) {
	var billings []models.Billing
	if err := h.DB.Preload("Client").Order("deadline asc").Find(&billings).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}

	out := make([]billingRow, 0, len(billings))
	for _, b := range billings {
		out = append(out, billingRow{
			ClientID:      b.ClientID,
			CompanyName:   b.Client.CompanyName,
			OwnerName:     b.Client.OwnerName,
			CompanyEmail:  b.Client.CompanyEmail,
			Phone:         b.Client.Phone,
			AssignedTo:    b.Client.AssignedTo,
			Address:       b.Client.Address,
			GSTIN:         b.Client.GSTIN,
			Services:      b.Client.Services,
			InvoiceNumber: b.InvoiceNumber,
			TotalAmount:   b.TotalAmount,
			AmountPaid:    b.AmountPaid,
			DueAmount:     b.DueAmount,
			Status:        b.Status,
			Progress:      b.Progress,
			PaymentMode:   b.PaymentMethod,
			DueDate:       b.Deadline.Format("2006-01-02"),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type updatePaymentRequest struct {
	TotalPayment  float64 `json:"total_payment"`
	Payment       float64 `json:"payment"`
	Deadline      string  `json:"deadline"`
	PaymentMethod string  `json:"payment_method"`
}

// updatePayment records a payment and rederives status, progress, and
// due in one write.
func (h *BillingHandler) updatePayment(w http.ResponseWriter, r *http.Request) {
	billing, ok := h.loadByClient(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceBilling, &billing); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Payment < 0 || req.TotalPayment < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "amounts_must_be_non_negative", nil)
		return
	}

	total := billing.TotalAmount
	if req.TotalPayment > 0 {
		total = req.TotalPayment
	}
	deadline := billing.Deadline
	if req.Deadline != "" {
		parsed, err := time.Parse("2006-01-02", req.Deadline)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_deadline", nil)
			return
		}
		deadline = parsed
	}

	now := time.Now()
	updates := map[string]any{
		"total_amount": total,
		"amount_paid":  req.Payment,
		"due_amount":   lifecycle.Due(req.Payment, total),
		"status":       string(lifecycle.ClassifyPayment(req.Payment, total, deadline, now)),
		"progress":     lifecycle.PaymentProgress(req.Payment, total),
		"deadline":     deadline,
	}
	if req.PaymentMethod != "" {
		updates["payment_method"] = req.PaymentMethod
	}
	if err := h.DB.Model(&billing).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, billing)
}

// invoicePreviewDefault renders the preview straight from the ledger row:
// one engagement line for the contracted amount, GST on top.
func (h *BillingHandler) invoicePreviewDefault(w http.ResponseWriter, r *http.Request) {
	billing, ok := h.loadByClient(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionView, policy.ResourceInvoice, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	description := "Professional services"
	if len(billing.Client.Services) > 0 {
		description += " (" + strings.Join(billing.Client.Services, ", ") + ")"
	}
	lines := []services.InvoiceLine{{Description: description, UnitPrice: billing.TotalAmount}}
	preview := h.Invoices.BuildPreview(&billing.Client, &billing, lines, time.Now())
	httpx.JSON(w, http.StatusOK, preview)
}

type invoicePreviewRequest struct {
	Lines []services.InvoiceLine `json:"lines"`
}

// invoicePreview computes the ephemeral invoice document. Nothing is
// stored; the client renders and optionally prints it.
func (h *BillingHandler) invoicePreview(w http.ResponseWriter, r *http.Request) {
	billing, ok := h.loadByClient(w, r)
	if !ok {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionView, policy.ResourceInvoice, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req invoicePreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(req.Lines) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "lines_required", nil)
		return
	}
	v := validation.Violations{}
	for i, line := range req.Lines {
		validation.PositiveFloat(fmt.Sprintf("lines[%d].unit_price", i), line.UnitPrice, v)
	}
	if len(v) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	preview := h.Invoices.BuildPreview(&billing.Client, &billing, req.Lines, time.Now())
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *BillingHandler) loadByClient(w http.ResponseWriter, r *http.Request) (models.Billing, bool) {
	id, err := strconv.ParseUint(r.PathValue("client_id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_client_id", nil)
		return models.Billing{}, false
	}
	var billing models.Billing
	dbErr := h.DB.Preload("Client").Where("client_id = ?", uint(id)).First(&billing).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "billing_not_found", nil)
		return models.Billing{}, false
	}
	if dbErr != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return models.Billing{}, false
	}
	return billing, true
}
