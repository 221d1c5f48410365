package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/auth"
	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/models"
	"github.com/wealthempires/crm-server/internal/policy"
)

// unique in-memory DB per test name to avoid leakage via shared cache
func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Document{},
		&models.Lead{}, &models.ServiceRecord{}, &models.Billing{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestGate(db *gorm.DB) *gate.Gate {
	return policy.NewGate(db)
}

func seedHandlerUser(t *testing.T, db *gorm.DB, name, email, role, password string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Role: role}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		user.Password = string(hash)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

type registrar interface {
	Register(mux *http.ServeMux)
}

// serveAs registers the handler, attaches the caller's bearer token, and
// routes the request through the auth middleware.
func serveAs(h registrar, userID uint, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+auth.Token(userID))
	}
	w := httptest.NewRecorder()
	auth.Middleware(mux).ServeHTTP(w, req)
	return w
}
