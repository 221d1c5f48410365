package server

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/auth"
	"github.com/wealthempires/crm-server/internal/config"
	"github.com/wealthempires/crm-server/internal/handlers"
	"github.com/wealthempires/crm-server/internal/httpx"
	"github.com/wealthempires/crm-server/internal/middleware"
	"github.com/wealthempires/crm-server/internal/models"
	"github.com/wealthempires/crm-server/internal/policy"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	g := policy.NewGate(db)

	// RequireAuth consults this to reject tokens of deleted users.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	protected := http.NewServeMux()
	handlers.NewUserHandler(db, g).Register(protected)
	handlers.NewClientHandler(db, g, cfg.UploadDir).Register(protected)
	handlers.NewLeadHandler(db, g).Register(protected)
	handlers.NewServiceHandler(db, g).Register(protected)
	handlers.NewBillingHandler(db, g).Register(protected)
	handlers.NewAnalyticsHandler(db, g).Register(protected)

	mux := http.NewServeMux()
	handlers.NewAuthHandler(db, g).Register(mux)

	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	mux.Handle("/", auth.RequireAuth(protected))

	return middleware.CORS(middleware.Recover(middleware.Logger(auth.Middleware(mux))))
}
