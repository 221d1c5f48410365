package services

import (
	"testing"
	"time"

	"github.com/wealthempires/crm-server/internal/models"
)

func TestComputeLines_GST(t *testing.T) {
	svc := NewInvoiceService()
	lines, subtotal, gstTotal, grand := svc.ComputeLines([]InvoiceLine{
		{Description: "GST Filing", UnitPrice: 1000},
		{Description: "ITR Filing", UnitPrice: 2500},
	})

	if lines[0].GSTAmount != 180 || lines[0].LineTotal != 1180 {
		t.Errorf("line 0: gst=%v total=%v", lines[0].GSTAmount, lines[0].LineTotal)
	}
	if subtotal != 3500 {
		t.Errorf("subtotal = %v, want 3500", subtotal)
	}
	if gstTotal != 630 {
		t.Errorf("gst total = %v, want 630", gstTotal)
	}
	if grand != 4130 {
		t.Errorf("grand total = %v, want 4130", grand)
	}
}

func TestComputeLines_OrderIndependent(t *testing.T) {
	svc := NewInvoiceService()
	a := []InvoiceLine{
		{Description: "A", UnitPrice: 999.99},
		{Description: "B", UnitPrice: 0.01},
		{Description: "C", UnitPrice: 12345.67},
	}
	b := []InvoiceLine{a[2], a[0], a[1]}

	_, _, _, totalA := svc.ComputeLines(a)
	_, _, _, totalB := svc.ComputeLines(b)
	if totalA != totalB {
		t.Errorf("reordering changed total: %v vs %v", totalA, totalB)
	}
}

func TestComputeLines_Empty(t *testing.T) {
	svc := NewInvoiceService()
	lines, subtotal, gstTotal, grand := svc.ComputeLines(nil)
	if len(lines) != 0 || subtotal != 0 || gstTotal != 0 || grand != 0 {
		t.Errorf("empty input should produce zeros, got %v %v %v %v", lines, subtotal, gstTotal, grand)
	}
}

func TestBuildPreview(t *testing.T) {
	svc := NewInvoiceService()
	deadline := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	client := &models.Client{
		CompanyName:  "Acme Traders",
		Address:      "12 MG Road, Pune",
		CompanyEmail: "accounts@acme.in",
	}
	billing := &models.Billing{InvoiceNumber: "0042", Deadline: deadline}

	preview := svc.BuildPreview(client, billing, []InvoiceLine{{Description: "GST Filing", UnitPrice: 1000}}, today)
	if preview.InvoiceID != "2026-0042" {
		t.Errorf("invoice id = %q", preview.InvoiceID)
	}
	if preview.ClientGSTIN != "N/A" {
		t.Errorf("missing gstin should render N/A, got %q", preview.ClientGSTIN)
	}
	if preview.DueDate != "2026-03-31" {
		t.Errorf("due date = %q", preview.DueDate)
	}
	if preview.GrandTotal != 1180 {
		t.Errorf("grand total = %v", preview.GrandTotal)
	}

	// deterministic from the same inputs
	again := svc.BuildPreview(client, billing, []InvoiceLine{{Description: "GST Filing", UnitPrice: 1000}}, today)
	if preview.GrandTotal != again.GrandTotal || preview.InvoiceID != again.InvoiceID {
		t.Error("preview not deterministic")
	}
}
