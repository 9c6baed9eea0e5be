package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"chorebank/internal/auth"
	"chorebank/internal/model"
	"chorebank/internal/policy"
	"chorebank/internal/store"
)

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, logger: logger}
}

// List is available to every family member so chores and redemptions can
// show names. Password hashes never serialize.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListChildren returns the active CHILD accounts chores can be assigned to.
// Restricted to the roles that create chores.
func (h *UserHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())
	if !policy.Allowed(actor.Role, policy.OpCreateChore, policy.Context{}) {
		errorJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	kids, err := h.users.ListActiveChildren()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, kids)
}

type createUserRequest struct {
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Role        model.Role `json:"role"`
	Password    string     `json:"password"`
	Avatar      string     `json:"avatar"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())
	if !policy.Allowed(actor.Role, policy.OpManageUsers, policy.Context{}) {
		errorJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" {
		errorJSON(w, http.StatusBadRequest, "username is required")
		return
	}
	if !req.Role.Valid() {
		errorJSON(w, http.StatusBadRequest, "unknown role")
		return
	}
	if len(req.Password) < 8 {
		errorJSON(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.DisplayName = strings.TrimSpace(req.DisplayName); req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// New accounts must rotate the password handed out by the admin.
	u, err := h.users.Create(req.Username, req.DisplayName, req.Role, hash, req.Avatar, true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user created", "user_id", u.ID, "role", u.Role, "actor_id", actor.ID)
	writeJSON(w, http.StatusCreated, u)
}

type updateUserRequest struct {
	DisplayName *string     `json:"display_name"`
	Role        *model.Role `json:"role"`
	Avatar      *string     `json:"avatar"`
	Active      *bool       `json:"is_active"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())
	if !policy.Allowed(actor.Role, policy.OpManageUsers, policy.Context{}) {
		errorJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil {
		errorJSON(w, http.StatusNotFound, "not found")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	displayName := u.DisplayName
	if req.DisplayName != nil {
		displayName = strings.TrimSpace(*req.DisplayName)
	}
	role := u.Role
	if req.Role != nil {
		if !req.Role.Valid() {
			errorJSON(w, http.StatusBadRequest, "unknown role")
			return
		}
		role = *req.Role
	}
	avatar := u.Avatar
	if req.Avatar != nil {
		avatar = *req.Avatar
	}
	active := u.Active
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := h.users.Update(id, displayName, role, avatar, active, u.MustChangePassword)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())
	if !policy.Allowed(actor.Role, policy.OpManageUsers, policy.Context{}) {
		errorJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil {
		errorJSON(w, http.StatusNotFound, "not found")
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Password) < 8 {
		errorJSON(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.UpdatePassword(id, hash, true); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("password reset", "user_id", id, "actor_id", actor.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}
