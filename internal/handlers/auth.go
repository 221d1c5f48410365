package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/auth"
	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/httpx"
	"github.com/wealthempires/crm-server/internal/models"
	"github.com/wealthempires/crm-server/internal/policy"
	"github.com/wealthempires/crm-server/internal/validation"
)

type AuthHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate
}

func NewAuthHandler(db *gorm.DB, g *gate.Gate) *AuthHandler {
	return &AuthHandler{DB: db, Gate: g}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /set-password", h.setPassword)
	mux.HandleFunc("POST /logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUser struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type loginResponse struct {
	Success      bool                `json:"success"`
	Token        string              `json:"token"`
	User         loginUser           `json:"user"`
	Capabilities policy.Capabilities `json:"capabilities"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	if user.Password == "" {
		// invited but never completed the set-password step
		httpx.JSONError(w, http.StatusForbidden, "password_not_set", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	// presence is best effort; a failed write must not block the login
	if err := h.DB.Model(&user).Update("status", "online").Error; err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("mark user online")
	}
	auth.SetSessionCookie(w, user.ID)
	httpx.JSON(w, http.StatusOK, loginResponse{
		Success:      true,
		Token:        auth.Token(user.ID),
		User:         loginUser{Role: user.Role, Name: user.Name},
		Capabilities: policy.BuildCapabilities(r.Context(), h.Gate, user.ID),
	})
}

type setPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// setPassword completes the invite flow: it only works while the account
// has no password yet. Resetting afterwards goes through an admin.
func (h *AuthHandler) setPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if len(req.Password) > 0 && len(req.Password) < 8 {
		v["password"] = "too_short"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	if user.Password != "" {
		httpx.JSONError(w, http.StatusConflict, "password_already_set", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	if err := h.DB.Model(&user).Update("password", string(hash)).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		if err := h.DB.Model(&models.User{}).Where("id = ?", uid).Update("status", "offline").Error; err != nil {
			log.Error().Err(err).Uint("user_id", uid).Msg("mark user offline")
		}
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
