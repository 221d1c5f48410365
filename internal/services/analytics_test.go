package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/models"
)

func setupAnalyticsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Client{}, &models.Lead{}, &models.ServiceRecord{}, &models.Billing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedClient(t *testing.T, db *gorm.DB, name string) models.Client {
	t.Helper()
	client := models.Client{CompanyName: name, Status: "active"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestDashboardStats(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	c1 := seedClient(t, db, "Acme Traders")
	c2 := seedClient(t, db, "Zen Exports")
	db.Model(&models.Client{}).Where("id = ?", c2.ID).Update("status", "inactive")

	deadline := time.Now().Add(30 * 24 * time.Hour)
	db.Create(&models.ServiceRecord{ClientID: c1.ID, Section: models.SectionGST, Status: "filling", Progress: 67, Deadline: deadline})
	db.Create(&models.ServiceRecord{ClientID: c2.ID, Section: models.SectionITR, Status: "approval", Progress: 100, Deadline: deadline})
	db.Create(&models.Billing{ClientID: c1.ID, TotalAmount: 10000, AmountPaid: 4000, DueAmount: 6000})
	db.Create(&models.Billing{ClientID: c2.ID, TotalAmount: 5000, AmountPaid: 5000})

	stats, err := NewAnalyticsService(db).DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.TotalClients != 2 {
		t.Errorf("total clients = %d", stats.TotalClients)
	}
	if stats.ActiveServices != 1 {
		t.Errorf("active clients = %d", stats.ActiveServices)
	}
	if stats.PendingTasks != 1 {
		t.Errorf("pending tasks = %d", stats.PendingTasks)
	}
	if stats.TotalRevenue != 9000 {
		t.Errorf("total revenue = %v", stats.TotalRevenue)
	}
}

func TestSectionCounts_FixedOrder(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	c := seedClient(t, db, "Acme Traders")
	deadline := time.Now().Add(10 * 24 * time.Hour)
	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionIP, Status: "Filed", Progress: 15, Deadline: deadline})
	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionGST, Status: "started", Progress: 10, Deadline: deadline})

	counts, err := NewAnalyticsService(db).SectionCounts(context.Background())
	if err != nil {
		t.Fatalf("section counts: %v", err)
	}
	wantNames := []string{"Company Incorporation", "GST Filings", "Trademark/IP", "ITR Filing", "MCA Compliance"}
	if len(counts) != len(wantNames) {
		t.Fatalf("got %d rows, want %d", len(counts), len(wantNames))
	}
	for i, want := range wantNames {
		if counts[i].Name != want {
			t.Errorf("row %d = %q, want %q", i, counts[i].Name, want)
		}
	}
	if counts[1].Count != 1 || counts[2].Count != 1 || counts[0].Count != 0 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestTeamPerformanceRows(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	c := seedClient(t, db, "Acme Traders")
	deadline := time.Now().Add(10 * 24 * time.Hour)
	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionGST, Status: "approval", Progress: 100, Deadline: deadline})
	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionGST, Status: "started", Progress: 10, Deadline: deadline})

	rows, err := NewAnalyticsService(db).TeamPerformanceRows(context.Background())
	if err != nil {
		t.Fatalf("team performance: %v", err)
	}
	if rows[0].Team != "GST Team" || rows[4].Team != "INCORP Team" {
		t.Errorf("row order wrong: %+v", rows)
	}
	gst := rows[0]
	if gst.TotalServices != 2 || gst.CompletedServices != 1 || gst.Efficiency != 50 {
		t.Errorf("gst row = %+v", gst)
	}
}

func TestDueAlerts(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	c := seedClient(t, db, "Acme Traders")
	today := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db.Create(&models.Billing{
		ClientID: c.ID, InvoiceNumber: "0042",
		TotalAmount: 10000, AmountPaid: 4000, DueAmount: 6000,
		Deadline: today.AddDate(0, 0, -3),
	})
	db.Create(&models.Billing{ClientID: seedClient(t, db, "Zen Exports").ID, TotalAmount: 5000, AmountPaid: 5000, DueAmount: 0})

	alerts, err := NewAnalyticsService(db).DueAlerts(context.Background(), today)
	if err != nil {
		t.Fatalf("due alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Client != "Acme Traders" || alerts[0].DaysLeft != -3 {
		t.Errorf("alert = %+v", alerts[0])
	}
}

func TestUpcomingDeadlines(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	c := seedClient(t, db, "Acme Traders")
	today := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionGST, Period: "Q4 2025", Status: "filling", Progress: 67, Deadline: today.AddDate(0, 0, 3)})
	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionITR, Period: "FY 2025-26", Status: "started", Progress: 10, Deadline: today.AddDate(0, 0, 20)})
	// finished work never shows up
	db.Create(&models.ServiceRecord{ClientID: c.ID, Section: models.SectionMCA, Status: "approval", Progress: 100, Deadline: today.AddDate(0, 0, 1)})

	rows, err := NewAnalyticsService(db).UpcomingDeadlines(context.Background(), today)
	if err != nil {
		t.Fatalf("upcoming deadlines: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DaysLeft != 3 || rows[0].Priority != "high" {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Priority != "low" {
		t.Errorf("second row priority = %q", rows[1].Priority)
	}
}
