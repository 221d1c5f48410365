package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/auth"
	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/httpx"
	"github.com/wealthempires/crm-server/internal/models"
	"github.com/wealthempires/crm-server/internal/policy"
	"github.com/wealthempires/crm-server/internal/validation"
)

type UserHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate
}

func NewUserHandler(db *gorm.DB, g *gate.Gate) *UserHandler {
	return &UserHandler{DB: db, Gate: g}
}

func (h *UserHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/team-groups", h.teamGroups)
	mux.HandleFunc("GET /get_user/{user}", h.getByName)
	mux.HandleFunc("POST /register", h.create)
	mux.HandleFunc("PATCH /edit_user/{id}", h.update)
	mux.HandleFunc("DELETE /delete_user/{id}", h.remove)
	mux.HandleFunc("POST /reset-password/{id}", h.resetPassword)
	mux.HandleFunc("POST /update_profile", h.updateProfile)
}

type teamGroup struct {
	Name    string        `json:"name"`
	Members []models.User `json:"members"`
}

// teamGroups returns the roster grouped by team name, for the
// collaboration view and the "assign to" pickers.
func (h *UserHandler) teamGroups(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.Order("team, name").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}

	var groups []teamGroup
	index := map[string]int{}
	for _, u := range users {
		team := u.Team
		if team == "" {
			team = "Unassigned"
		}
		i, ok := index[team]
		if !ok {
			i = len(groups)
			index[team] = i
			groups = append(groups, teamGroup{Name: team})
		}
		groups[i].Members = append(groups[i].Members, u)
	}
	if groups == nil {
		groups = []teamGroup{}
	}
	httpx.JSON(w, http.StatusOK, groups)
}

// getByName looks a user up by display name. Returns an array because
// display names are not guaranteed unique.
func (h *UserHandler) getByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("user")
	var users []models.User
	if err := h.DB.Where("name = ?", name).Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Team  string `json:"team"`
}

// create adds a roster member with no password; the invitee completes
// the set-password step before first login.
func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionCreate, policy.ResourceUser, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.Required("role", req.Role, v)
	validation.OneOf("role", req.Role, models.Roles, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	user := models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Role:  req.Role,
		Team:  strings.TrimSpace(req.Team),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Team   *string `json:"team"`
	Status *string `json:"status"`
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceUser, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	user, ok := h.load(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	updates := map[string]any{}
	v := validation.Violations{}
	if req.Name != nil {
		validation.Required("name", *req.Name, v)
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		validation.Required("email", *req.Email, v)
		validation.Email("email", *req.Email, v)
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		validation.OneOf("role", *req.Role, models.Roles, v)
		updates["role"] = *req.Role
	}
	if req.Team != nil {
		updates["team"] = strings.TrimSpace(*req.Team)
	}
	if req.Status != nil {
		validation.OneOf("status", *req.Status, []string{"online", "away", "offline"}, v)
		updates["status"] = *req.Status
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if len(updates) == 0 {
		httpx.JSON(w, http.StatusOK, user)
		return
	}

	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) remove(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionDelete, policy.ResourceUser, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	user, ok := h.load(w, r)
	if !ok {
		return
	}
	if user.ID == uid {
		httpx.JSONError(w, http.StatusConflict, "cannot_delete_self", nil)
		return
	}
	if err := h.DB.Delete(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// resetPassword clears the stored hash so the member repeats the
// set-password step.
func (h *UserHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, gate.ActionUpdate, policy.ResourceUser, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	user, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.DB.Model(&user).Update("password", "").Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type updateProfileRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// updateProfile lets the logged-in user change their own name, email,
// and optionally password. The current password is always required.
func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if req.NewPassword != "" && len(req.NewPassword) < 8 {
		v["newPassword"] = "too_short"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	updates := map[string]any{
		"name":  strings.TrimSpace(req.Name),
		"email": strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if req.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
			return
		}
		updates["password"] = string(hash)
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (h *UserHandler) load(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return models.User{}, false
	}
	var user models.User
	dbErr := h.DB.First(&user, uint(id)).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return models.User{}, false
	}
	if dbErr != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "server_error", nil)
		return models.User{}, false
	}
	return user, true
}
