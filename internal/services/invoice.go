package services

import (
	"fmt"
	"math"
	"time"

	"github.com/wealthempires/crm-server/internal/models"
)

const gstRate = 0.18

// InvoiceLine is one billable item on a preview.
type InvoiceLine struct {
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	GSTAmount   float64 `json:"gst_amount"`
	LineTotal   float64 `json:"line_total"`
}

// InvoicePreview is the ephemeral invoice document. It is rendered from a
// billing record and never persisted.
type InvoicePreview struct {
	InvoiceID     string        `json:"invoice_id"`
	ClientName    string        `json:"client_name"`
	ClientAddress string        `json:"client_address"`
	ClientEmail   string        `json:"client_email"`
	ClientGSTIN   string        `json:"client_gst"`
	IssueDate     string        `json:"issue_date"`
	DueDate       string        `json:"due_date"`
	Lines         []InvoiceLine `json:"lines"`
	Subtotal      float64       `json:"subtotal"`
	GSTTotal      float64       `json:"gst_total"`
	GrandTotal    float64       `json:"grand_total"`
}

// InvoiceService computes invoice previews. Pure math, no DB access.
type InvoiceService struct{}

func NewInvoiceService() *InvoiceService { return &InvoiceService{} }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeLines fills GST and totals for each line and returns the
// subtotal, GST total, and grand total. Summation is associative over
// rounded line values, so reordering the input never changes the result.
func (s *InvoiceService) ComputeLines(lines []InvoiceLine) ([]InvoiceLine, float64, float64, float64) {
	out := make([]InvoiceLine, len(lines))
	var subtotal, gstTotal float64
	for i, line := range lines {
		line.GSTAmount = round2(line.UnitPrice * gstRate)
		line.LineTotal = round2(line.UnitPrice + line.GSTAmount)
		out[i] = line
		subtotal = round2(subtotal + line.UnitPrice)
		gstTotal = round2(gstTotal + line.GSTAmount)
	}
	return out, subtotal, gstTotal, round2(subtotal + gstTotal)
}

// BuildPreview assembles the full invoice document for a client's billing
// record from the supplied lines.
func (s *InvoiceService) BuildPreview(client *models.Client, billing *models.Billing, lines []InvoiceLine, today time.Time) InvoicePreview {
	computed, subtotal, gstTotal, grand := s.ComputeLines(lines)

	preview := InvoicePreview{
		ClientName:    client.CompanyName,
		ClientAddress: client.Address,
		ClientEmail:   client.CompanyEmail,
		ClientGSTIN:   client.GSTIN,
		IssueDate:     today.Format("2006-01-02"),
		Lines:         computed,
		Subtotal:      subtotal,
		GSTTotal:      gstTotal,
		GrandTotal:    grand,
	}
	if preview.ClientGSTIN == "" {
		preview.ClientGSTIN = "N/A"
	}
	if billing != nil {
		preview.InvoiceID = fmt.Sprintf("%d-%s", today.Year(), billing.InvoiceNumber)
		if !billing.Deadline.IsZero() {
			preview.DueDate = billing.Deadline.Format("2006-01-02")
		}
	}
	return preview
}
