package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/lifecycle"
	"github.com/wealthempires/crm-server/internal/models"
)

// sectionNames maps a section to its dashboard display name.
var sectionNames = map[string]string{
	models.SectionIncorp: "Company Incorporation",
	models.SectionGST:    "GST Filings",
	models.SectionITR:    "ITR Filing",
	models.SectionMCA:    "MCA Compliance",
	models.SectionIP:     "Trademark/IP",
}

// analyticsOrder is the fixed row order of /get_analytics.
var analyticsOrder = []string{
	models.SectionIncorp, models.SectionGST, models.SectionIP, models.SectionITR, models.SectionMCA,
}

// teamOrder is the fixed row order of /team_performance.
var teamOrder = []string{
	models.SectionGST, models.SectionITR, models.SectionIP, models.SectionMCA, models.SectionIncorp,
}

// teamNames maps a section to the roster team working it.
var teamNames = map[string]string{
	models.SectionGST:    "GST Team",
	models.SectionITR:    "ITR Team",
	models.SectionIP:     "IP Team",
	models.SectionMCA:    "MCA Team",
	models.SectionIncorp: "INCORP Team",
}

type DashboardStats struct {
	TotalClients   int64   `json:"total_clients"`
	ActiveServices int64   `json:"active_services"`
	PendingTasks   int64   `json:"pending_tasks"`
	TotalRevenue   float64 `json:"total_revenue"`
}

type ServiceStat struct {
	Name      string `json:"name"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
	Status    string `json:"status"`
	Deadline  string `json:"deadline"`
}

type SectionCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type DashboardAnalytics struct {
	TotalRevenue      float64 `json:"total_revenue"`
	ActiveClients     int64   `json:"active_clients"`
	ServicesCompleted int64   `json:"services_completed"`
	EfficiencyRate    float64 `json:"efficiency_rate"`
}

type TeamPerformance struct {
	Team              string  `json:"team"`
	TotalServices     int64   `json:"total_services"`
	CompletedServices int64   `json:"completed_services"`
	Efficiency        float64 `json:"efficiency"`
}

type ReportMetrics struct {
	MonthlyGrowth       float64 `json:"monthly_growth"`
	LeadConversionRate  float64 `json:"lead_conversion_rate"`
	AvgRevenuePerClient float64 `json:"avg_revenue_per_client"`
	CompletionRate      float64 `json:"completion_rate"`
}

type DueAlert struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Client   string `json:"client"`
	DaysLeft int    `json:"daysOverdue"` // negative when overdue
}

type UpcomingDeadline struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Client   string `json:"client"`
	Date     string `json:"date"`
	DaysLeft int    `json:"daysLeft"`
	Priority string `json:"priority"`
}

// AnalyticsService answers the dashboard and reporting queries with SQL
// aggregation; nothing here mutates state.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

func (s *AnalyticsService) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Client{}).Count(&stats.TotalClients).Error; err != nil {
		return stats, fmt.Errorf("count clients: %w", err)
	}
	if err := db.Model(&models.Client{}).Where("status = ?", "active").Count(&stats.ActiveServices).Error; err != nil {
		return stats, fmt.Errorf("count active clients: %w", err)
	}
	if err := db.Model(&models.ServiceRecord{}).Where("progress < ?", 100).Count(&stats.PendingTasks).Error; err != nil {
		return stats, fmt.Errorf("count pending: %w", err)
	}
	if err := db.Model(&models.Billing{}).Select("COALESCE(SUM(amount_paid), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		return stats, fmt.Errorf("sum revenue: %w", err)
	}
	return stats, nil
}

// ServiceStats returns one row per section in display order.
func (s *AnalyticsService) ServiceStats(ctx context.Context, today time.Time) ([]ServiceStat, error) {
	db := s.db.WithContext(ctx)
	out := make([]ServiceStat, 0, len(models.Sections))
	for _, section := range models.Sections {
		var total, completed int64
		if err := db.Model(&models.ServiceRecord{}).Where("section = ?", section).Count(&total).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", section, err)
		}
		if err := db.Model(&models.ServiceRecord{}).
			Where("section = ? AND progress >= ?", section, 100).
			Count(&completed).Error; err != nil {
			return nil, fmt.Errorf("count completed %s: %w", section, err)
		}

		stat := ServiceStat{Name: sectionNames[section], Completed: completed, Total: total, Status: "on-track"}

		var next models.ServiceRecord
		err := db.Where("section = ? AND progress < ?", section, 100).
			Order("deadline asc").First(&next).Error
		if err == nil {
			stat.Deadline = next.Deadline.Format("2006-01-02")
			if next.Deadline.Before(today) {
				stat.Status = "delayed"
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("next deadline %s: %w", section, err)
		}
		out = append(out, stat)
	}
	return out, nil
}

// SectionCounts returns per-section service counts in the fixed order the
// distribution chart indexes by.
func (s *AnalyticsService) SectionCounts(ctx context.Context) ([]SectionCount, error) {
	db := s.db.WithContext(ctx)
	out := make([]SectionCount, 0, len(analyticsOrder))
	for _, section := range analyticsOrder {
		var count int64
		if err := db.Model(&models.ServiceRecord{}).Where("section = ?", section).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", section, err)
		}
		out = append(out, SectionCount{Name: sectionNames[section], Count: count})
	}
	return out, nil
}

// RevenueByMonth sums collected payments per calendar month of the last
// twelve, oldest first. Months without payments appear with zero revenue.
func (s *AnalyticsService) RevenueByMonth(ctx context.Context, today time.Time) ([]MonthRevenue, error) {
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, -11, 0)

	var rows []models.Billing
	if err := s.db.WithContext(ctx).
		Where("updated_at >= ? AND amount_paid > 0", start).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load billing rows: %w", err)
	}

	byMonth := make(map[string]float64)
	for _, row := range rows {
		byMonth[row.UpdatedAt.Format("2006-01")] += row.AmountPaid
	}

	out := make([]MonthRevenue, 0, 12)
	for i := 0; i < 12; i++ {
		m := start.AddDate(0, i, 0)
		out = append(out, MonthRevenue{Month: m.Format("Jan"), Revenue: byMonth[m.Format("2006-01")]})
	}
	return out, nil
}

func (s *AnalyticsService) DashboardAnalytics(ctx context.Context) (DashboardAnalytics, error) {
	var out DashboardAnalytics
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Billing{}).Select("COALESCE(SUM(amount_paid), 0)").Scan(&out.TotalRevenue).Error; err != nil {
		return out, fmt.Errorf("sum revenue: %w", err)
	}
	if err := db.Model(&models.Client{}).Where("status = ?", "active").Count(&out.ActiveClients).Error; err != nil {
		return out, fmt.Errorf("count active clients: %w", err)
	}
	var totalServices int64
	if err := db.Model(&models.ServiceRecord{}).Count(&totalServices).Error; err != nil {
		return out, fmt.Errorf("count services: %w", err)
	}
	if err := db.Model(&models.ServiceRecord{}).Where("progress >= ?", 100).Count(&out.ServicesCompleted).Error; err != nil {
		return out, fmt.Errorf("count completed: %w", err)
	}
	if totalServices > 0 {
		out.EfficiencyRate = round2(float64(out.ServicesCompleted) / float64(totalServices) * 100)
	}
	return out, nil
}

// TeamPerformanceRows returns one row per team in the fixed chart order.
func (s *AnalyticsService) TeamPerformanceRows(ctx context.Context) ([]TeamPerformance, error) {
	db := s.db.WithContext(ctx)
	out := make([]TeamPerformance, 0, len(teamOrder))
	for _, section := range teamOrder {
		var total, completed int64
		if err := db.Model(&models.ServiceRecord{}).Where("section = ?", section).Count(&total).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", section, err)
		}
		if err := db.Model(&models.ServiceRecord{}).
			Where("section = ? AND progress >= ?", section, 100).
			Count(&completed).Error; err != nil {
			return nil, fmt.Errorf("count completed %s: %w", section, err)
		}
		row := TeamPerformance{Team: teamNames[section], TotalServices: total, CompletedServices: completed}
		if total > 0 {
			row.Efficiency = round2(float64(completed) / float64(total) * 100)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *AnalyticsService) ReportMetrics(ctx context.Context, today time.Time) (ReportMetrics, error) {
	var out ReportMetrics
	db := s.db.WithContext(ctx)

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	prevStart := monthStart.AddDate(0, -1, 0)

	var thisMonth, lastMonth float64
	if err := db.Model(&models.Billing{}).
		Select("COALESCE(SUM(amount_paid), 0)").
		Where("updated_at >= ?", monthStart).Scan(&thisMonth).Error; err != nil {
		return out, fmt.Errorf("sum current month: %w", err)
	}
	if err := db.Model(&models.Billing{}).
		Select("COALESCE(SUM(amount_paid), 0)").
		Where("updated_at >= ? AND updated_at < ?", prevStart, monthStart).Scan(&lastMonth).Error; err != nil {
		return out, fmt.Errorf("sum previous month: %w", err)
	}
	if lastMonth > 0 {
		out.MonthlyGrowth = round2((thisMonth - lastMonth) / lastMonth * 100)
	}

	var totalLeads, converted int64
	if err := db.Model(&models.Lead{}).Count(&totalLeads).Error; err != nil {
		return out, fmt.Errorf("count leads: %w", err)
	}
	if err := db.Model(&models.Lead{}).Where("stage_status = ?", string(lifecycle.StageConverted)).Count(&converted).Error; err != nil {
		return out, fmt.Errorf("count converted: %w", err)
	}
	if totalLeads > 0 {
		out.LeadConversionRate = round2(float64(converted) / float64(totalLeads) * 100)
	}

	var clients int64
	var revenue float64
	if err := db.Model(&models.Client{}).Count(&clients).Error; err != nil {
		return out, fmt.Errorf("count clients: %w", err)
	}
	if err := db.Model(&models.Billing{}).Select("COALESCE(SUM(amount_paid), 0)").Scan(&revenue).Error; err != nil {
		return out, fmt.Errorf("sum revenue: %w", err)
	}
	if clients > 0 {
		out.AvgRevenuePerClient = round2(revenue / float64(clients))
	}

	var totalServices, completedServices int64
	if err := db.Model(&models.ServiceRecord{}).Count(&totalServices).Error; err != nil {
		return out, fmt.Errorf("count services: %w", err)
	}
	if err := db.Model(&models.ServiceRecord{}).Where("progress >= ?", 100).Count(&completedServices).Error; err != nil {
		return out, fmt.Errorf("count completed: %w", err)
	}
	if totalServices > 0 {
		out.CompletionRate = round2(float64(completedServices) / float64(totalServices) * 100)
	}
	return out, nil
}

// DueAlerts lists billing rows that still carry a due amount, most
// overdue first.
func (s *AnalyticsService) DueAlerts(ctx context.Context, today time.Time) ([]DueAlert, error) {
	var rows []models.Billing
	if err := s.db.WithContext(ctx).
		Preload("Client").
		Where("due_amount > 0").
		Order("deadline asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load dues: %w", err)
	}

	out := make([]DueAlert, 0, len(rows))
	for _, row := range rows {
		out = append(out, DueAlert{
			ID:       row.ID,
			Title:    fmt.Sprintf("Invoice %s payment", row.InvoiceNumber),
			Client:   row.Client.CompanyName,
			DaysLeft: lifecycle.DaysLeft(row.Deadline, today),
		})
	}
	return out, nil
}

// UpcomingDeadlines lists unfinished services with a future deadline,
// nearest first, capped at ten rows.
func (s *AnalyticsService) UpcomingDeadlines(ctx context.Context, today time.Time) ([]UpcomingDeadline, error) {
	var rows []models.ServiceRecord
	if err := s.db.WithContext(ctx).
		Preload("Client").
		Where("progress < ? AND deadline >= ?", 100, today).
		Order("deadline asc").
		Limit(10).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load deadlines: %w", err)
	}

	out := make([]UpcomingDeadline, 0, len(rows))
	for _, row := range rows {
		out = append(out, UpcomingDeadline{
			ID:       row.ID,
			Title:    fmt.Sprintf("%s (%s)", sectionNames[row.Section], row.Period),
			Client:   row.Client.CompanyName,
			Date:     row.Deadline.Format("2006-01-02"),
			DaysLeft: lifecycle.DaysLeft(row.Deadline, today),
			Priority: lifecycle.PriorityFor(row.Deadline, today),
		})
	}
	return out, nil
}
