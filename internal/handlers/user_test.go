package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wealthempires/crm-server/internal/models"
)

func TestRegisterInviteeAndDuplicateEmail(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")

	body := `{"name":"Ravi","email":"ravi@wealthempires.in","role":"sales_staff","team":"Sales"}`
	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}

	var stored models.User
	if err := db.Where("email = ?", "ravi@wealthempires.in").First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Password != "" {
		t.Fatalf("invitee must start without a password")
	}

	resp = serveAs(h, admin.ID, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409 got %d", resp.Code)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"name":"X","email":"x@wealthempires.in","role":"superuser"}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRegisterRequiresPermission(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	sales := seedHandlerUser(t, db, "Ravi", "ravi@wealthempires.in", models.RoleSalesStaff, "salespass")

	resp := serveAs(h, sales.ID, httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"name":"X","email":"x@wealthempires.in","role":"sales_staff"}`)))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestTeamGroups(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	db.Model(&models.User{}).Where("id = ?", admin.ID).Update("team", "Management")
	for _, u := range []models.User{
		{Name: "Asha", Email: "asha@wealthempires.in", Role: models.RoleFillingStaff, Team: "GST Team"},
		{Name: "Vikram", Email: "vikram@wealthempires.in", Role: models.RoleFillingStaff, Team: "GST Team"},
		{Name: "Drifter", Email: "drifter@wealthempires.in", Role: models.RoleSalesStaff},
	} {
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodGet, "/users/team-groups", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var groups []teamGroup
	if err := json.Unmarshal(resp.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	byName := map[string]int{}
	for _, g := range groups {
		byName[g.Name] = len(g.Members)
	}
	if byName["GST Team"] != 2 {
		t.Fatalf("expected 2 GST members got %d", byName["GST Team"])
	}
	if byName["Unassigned"] != 1 {
		t.Fatalf("expected teamless user under Unassigned, got %d", byName["Unassigned"])
	}
}

func TestGetUserByNameReturnsArray(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	seedHandlerUser(t, db, "Priya", "priya@wealthempires.in", models.RoleAccountManager, "")

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodGet, "/get_user/Priya", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var users []models.User
	if err := json.Unmarshal(resp.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Priya" {
		t.Fatalf("unexpected result: %+v", users)
	}
}

func TestDeleteSelfRefused(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/delete_user/%d", admin.ID), nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestEditUserPartialUpdate(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewUserHandler(db, newTestGate(db))
	admin := seedHandlerUser(t, db, "Admin", "admin@wealthempires.in", models.RoleAdmin, "rootpass1")
	member := seedHandlerUser(t, db, "Asha", "asha@wealthempires.in", models.RoleFillingStaff, "")

	resp := serveAs(h, admin.ID, httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/edit_user/%d", member.ID),
		strings.NewReader(`{"team":"ITR Team"}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var stored models.User
	db.First(&stored, member.ID)
	if stored.Team != "ITR Team" || stored.Name != "Asha" {
		t.Fatalf("partial update went wrong: %+v", stored)
	}
}
