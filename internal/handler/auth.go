package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chorebank/internal/auth"
	"chorebank/internal/store"
)

const (
	sessionCookieName = "chorebank_session"
	sessionCookieAge  = 30 * 24 * time.Hour
)

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, sessions: ss, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u, err := h.users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil || !u.Active || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, err := h.sessions.Create(u.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login", "user_id", u.ID, "username", u.Username)
	writeJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteByToken(cookie.Value); err != nil {
			h.logger.Warn("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())
	u, err := h.users.GetByID(actor.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil {
		errorJSON(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor := auth.Actor(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.NewPassword) < 8 {
		errorJSON(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	u, err := h.users.GetByID(actor.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u == nil || !auth.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		errorJSON(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.UpdatePassword(u.ID, hash, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("password changed", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
