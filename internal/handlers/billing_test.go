package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/models"
)

func seedBilling(t *testing.T, db *gorm.DB, clientID uint, total float64, deadline time.Time) models.Billing {
	t.Helper()
	b := models.Billing{
		ClientID:      clientID,
		InvoiceNumber: "0042",
		TotalAmount:   total,
		DueAmount:     total,
		Status:        "unpaid",
		Deadline:      deadline,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed billing: %v", err)
	}
	return b
}

func TestUpdatePaymentRebuckets(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := seedServiceClient(t, db, "Acme Pvt Ltd", "")
	seedBilling(t, db, client.ID, 1000, time.Now().AddDate(0, 1, 0))

	url := fmt.Sprintf("/update_payment/%d", client.ID)

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPatch, url,
		strings.NewReader(`{"payment":400}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("partial: expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var stored models.Billing
	db.Where("client_id = ?", client.ID).First(&stored)
	if stored.Status != "partial" {
		t.Fatalf("expected partial got %q", stored.Status)
	}
	if math.Abs(stored.DueAmount-600) > 0.001 {
		t.Fatalf("expected due 600 got %v", stored.DueAmount)
	}
	if math.Abs(stored.Progress-40) > 0.001 {
		t.Fatalf("expected progress 40 got %v", stored.Progress)
	}

	resp = serveAs(h, admin.ID, httptest.NewRequest(http.MethodPatch, url,
		strings.NewReader(`{"payment":1000,"payment_method":"upi"}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("full: expected 200 got %d", resp.Code)
	}
	db.Where("client_id = ?", client.ID).First(&stored)
	if stored.Status != "paid" || stored.DueAmount != 0 || stored.PaymentMethod != "upi" {
		t.Fatalf("expected paid/0/upi got %s/%v/%s", stored.Status, stored.DueAmount, stored.PaymentMethod)
	}
}

func TestUpdatePaymentOverdueBecomesDues(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := seedServiceClient(t, db, "Acme Pvt Ltd", "")
	seedBilling(t, db, client.ID, 1000, time.Now().AddDate(0, 0, -10))

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/update_payment/%d", client.ID),
		strings.NewReader(`{"payment":300}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var stored models.Billing
	db.Where("client_id = ?", client.ID).First(&stored)
	if stored.Status != "dues" {
		t.Fatalf("overdue partial should be dues, got %q", stored.Status)
	}
}

func TestUpdatePaymentRejectsNegative(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := seedServiceClient(t, db, "Acme Pvt Ltd", "")
	seedBilling(t, db, client.ID, 1000, time.Now().AddDate(0, 1, 0))

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/update_payment/%d", client.ID),
		strings.NewReader(`{"payment":-5}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBillingListJoinsClient(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := seedServiceClient(t, db, "Acme Pvt Ltd", "Priya")
	seedBilling(t, db, client.ID, 2500, time.Now().AddDate(0, 1, 0))

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodGet, "/billing_with_clients", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var rows []billingRow
	if err := json.Unmarshal(resp.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row got %d", len(rows))
	}
	row := rows[0]
	if row.CompanyName != "Acme Pvt Ltd" || row.AssignedTo != "Priya" || row.TotalAmount != 2500 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.InvoiceNumber != "0042" || row.Status != "unpaid" {
		t.Fatalf("unexpected billing fields: %+v", row)
	}
}

func TestInvoicePreviewFromLedger(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := models.Client{CompanyName: "Acme Pvt Ltd", Status: "active", Services: models.StringList{"GST", "ITR"}}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	seedBilling(t, db, client.ID, 10000, time.Now().AddDate(0, 1, 0))

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/invoice_preview/%d", client.ID), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var preview struct {
		Lines []struct {
			Description string  `json:"description"`
			UnitPrice   float64 `json:"unit_price"`
		} `json:"lines"`
		GrandTotal float64 `json:"grand_total"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(preview.Lines) != 1 || preview.Lines[0].UnitPrice != 10000 {
		t.Fatalf("unexpected lines: %+v", preview.Lines)
	}
	if !strings.Contains(preview.Lines[0].Description, "GST, ITR") {
		t.Fatalf("description should name the services: %q", preview.Lines[0].Description)
	}
	if preview.GrandTotal != 11800 {
		t.Fatalf("expected 11800 got %v", preview.GrandTotal)
	}
}

func TestInvoicePreviewOverHTTP(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := seedServiceClient(t, db, "Acme Pvt Ltd", "")
	seedBilling(t, db, client.ID, 1000, time.Now().AddDate(0, 1, 0))

	body := `{"lines":[{"description":"GST Filing","unit_price":1000},{"description":"ITR Filing","unit_price":2500}]}`
	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/invoice_preview/%d", client.ID), strings.NewReader(body)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var preview struct {
		InvoiceID  string  `json:"invoice_id"`
		Subtotal   float64 `json:"subtotal"`
		GSTTotal   float64 `json:"gst_total"`
		GrandTotal float64 `json:"grand_total"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if preview.Subtotal != 3500 || preview.GSTTotal != 630 || preview.GrandTotal != 4130 {
		t.Fatalf("unexpected totals: %+v", preview)
	}
	wantID := fmt.Sprintf("%d-0042", time.Now().Year())
	if preview.InvoiceID != wantID {
		t.Fatalf("expected invoice id %q got %q", wantID, preview.InvoiceID)
	}

	// a preview must never be written anywhere
	var count int64
	db.Model(&models.Billing{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected billing untouched, got %d rows", count)
	}
}

func TestInvoicePreviewRejectsNonPositiveLines(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewBillingHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	client := seedServiceClient(t, db, "Acme Pvt Ltd", "")
	seedBilling(t, db, client.ID, 1000, time.Now().AddDate(0, 1, 0))

	for _, body := range []string{
		`{"lines":[{"description":"GST Filing","unit_price":-1}]}`,
		`{"lines":[{"description":"GST Filing","unit_price":1000},{"description":"Free","unit_price":0}]}`,
	} {
		resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/invoice_preview/%d", client.ID), strings.NewReader(body)))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d body=%s", resp.Code, resp.Body.String())
		}
		var out struct {
			Error   string            `json:"error"`
			Details map[string]string `json:"details"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Error != "validation_failed" || len(out.Details) == 0 {
			t.Fatalf("unexpected error body: %s", resp.Body.String())
		}
	}
}
