package policy

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/models"
)

func setupPolicyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.Lead{}, &models.Billing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@wealthempires.in", Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestProfileForRole(t *testing.T) {
	tests := []struct {
		role string
		perm gate.Permission
		want bool
	}{
		{models.RoleAdmin, "user:delete", true},
		{models.RoleAccountManager, "billing:update", true},
		{models.RoleAccountManager, "client:delete", false},
		{models.RoleAccountManager, "lead:update", false},
		{models.RoleSalesStaff, "lead:create", true},
		{models.RoleSalesStaff, "lead:delete", true},
		{models.RoleSalesStaff, "billing:view", false},
		{models.RoleFillingStaff, "service:update", true},
		{models.RoleFillingStaff, "service:assign", false},
		{models.RoleFillingStaff, "client:view", false},
	}
	for _, tt := range tests {
		profile := ProfileForRole(tt.role)
		if profile == nil {
			t.Fatalf("no profile for role %q", tt.role)
		}
		if got := profile.HasPermission(tt.perm); got != tt.want {
			t.Errorf("%s has %s = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
	if ProfileForRole("intern") != nil {
		t.Error("expected nil profile for unknown role")
	}
}

func TestAssignmentPolicy_AccountManagerScoping(t *testing.T) {
	db := setupPolicyTestDB(t)
	manager := seedUser(t, db, "Priya Nair", models.RoleAccountManager)
	other := seedUser(t, db, "Rahul Shah", models.RoleAccountManager)

	mine := &models.Client{CompanyName: "Acme Traders", AssignedTo: manager.Name}
	theirs := &models.Client{CompanyName: "Zen Exports", AssignedTo: other.Name}
	unassigned := &models.Client{CompanyName: "Fresh Foods"}

	p := NewAssignmentPolicy(db)
	ctx := context.Background()

	if !p.Can(ctx, manager.ID, gate.ActionUpdate, mine) {
		t.Error("manager denied on own client")
	}
	if p.Can(ctx, manager.ID, gate.ActionUpdate, theirs) {
		t.Error("manager allowed on another manager's client")
	}
	if !p.Can(ctx, manager.ID, gate.ActionView, unassigned) {
		t.Error("manager denied on unassigned client")
	}
}

func TestAssignmentPolicy_AdminBypass(t *testing.T) {
	db := setupPolicyTestDB(t)
	admin := seedUser(t, db, "Admin", models.RoleAdmin)
	other := seedUser(t, db, "Rahul Shah", models.RoleAccountManager)

	client := &models.Client{CompanyName: "Zen Exports", AssignedTo: other.Name}
	p := NewAssignmentPolicy(db)
	if !p.Can(context.Background(), admin.ID, gate.ActionDelete, client) {
		t.Error("admin denied by assignment scoping")
	}
}

func TestAssignmentPolicy_BillingScopesThroughClient(t *testing.T) {
	db := setupPolicyTestDB(t)
	manager := seedUser(t, db, "Priya Nair", models.RoleAccountManager)
	other := seedUser(t, db, "Rahul Shah", models.RoleAccountManager)

	client := models.Client{CompanyName: "Zen Exports", AssignedTo: other.Name}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	billing := &models.Billing{ClientID: client.ID, TotalAmount: 5000}

	p := NewAssignmentPolicy(db)
	if p.Can(context.Background(), manager.ID, gate.ActionUpdate, billing) {
		t.Error("manager allowed on billing for another manager's client")
	}
	if !p.Can(context.Background(), other.ID, gate.ActionUpdate, billing) {
		t.Error("assignee denied on own client's billing")
	}
}

func TestBuildCapabilities(t *testing.T) {
	db := setupPolicyTestDB(t)
	admin := seedUser(t, db, "Admin", models.RoleAdmin)
	filler := seedUser(t, db, "Dev Patel", models.RoleFillingStaff)

	g := NewGate(db)
	ctx := context.Background()

	caps := BuildCapabilities(ctx, g, admin.ID)
	if !caps.Clients.CanDelete || !caps.Users.CanCreate || !caps.Analytics {
		t.Errorf("admin capabilities incomplete: %+v", caps)
	}

	caps = BuildCapabilities(ctx, g, filler.ID)
	if caps.Clients.CanView || caps.Analytics || caps.Services.CanAssign {
		t.Errorf("filling staff capabilities too broad: %+v", caps)
	}
	if !caps.Services.CanView || !caps.Services.CanEdit {
		t.Errorf("filling staff missing service capabilities: %+v", caps)
	}
}
