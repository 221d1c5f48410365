package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/lifecycle"
	"github.com/wealthempires/crm-server/internal/models"
)

// ImportResult aggregates a bulk upload: rows are created independently,
// so one bad row never aborts the rest.
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

type ImportError struct {
	Row    int    `json:"row"` // 1-based sheet row
	Reason string `json:"reason"`
}

// LeadImportService reads an xlsx workbook and creates one lead per row.
type LeadImportService struct {
	db *gorm.DB
}

func NewLeadImportService(db *gorm.DB) *LeadImportService {
	return &LeadImportService{db: db}
}

// Import parses the first sheet of the workbook. The first row must be
// the header; its column order fixes the field mapping for the rest.
func (s *LeadImportService) Import(ctx context.Context, r io.Reader, today time.Time) (ImportResult, error) {
	var result ImportResult

	f, err := excelize.OpenReader(r)
	if err != nil {
		return result, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return result, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return result, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return result, fmt.Errorf("sheet %q is empty", sheet)
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return result, err
	}

	for i, row := range rows[1:] {
		sheetRow := i + 2
		lead, err := s.leadFromRow(row, cols, today)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: sheetRow, Reason: err.Error()})
			continue
		}
		if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: sheetRow, Reason: "save failed"})
			continue
		}
		result.Imported++
	}
	return result, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Company"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (s *LeadImportService) leadFromRow(row []string, cols map[string]int, today time.Time) (*models.Lead, error) {
	company := cell(row, cols, "Company")
	if company == "" {
		return nil, fmt.Errorf("company name is required")
	}

	lead := &models.Lead{
		CompanyName: company,
		OwnerName:   cell(row, cols, "Owner"),
		Email:       cell(row, cols, "Email"),
		Phone:       cell(row, cols, "Phone"),
		AssignedTo:  cell(row, cols, "AssignedTo"),
		StageStatus: string(lifecycle.StageNew),
		LastContact: today,
	}

	if raw := cell(row, cols, "Services"); raw != "" {
		for _, svc := range strings.Split(raw, ",") {
			if svc = strings.TrimSpace(svc); svc != "" && !lead.Services.Contains(svc) {
				lead.Services = append(lead.Services, svc)
			}
		}
	}
	if raw := cell(row, cols, "LastContact"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LastContact %q", raw)
		}
		lead.LastContact = parsed
	}
	return lead, nil
}
