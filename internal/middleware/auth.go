package middleware

import (
	"encoding/json"
	"net/http"

	"chorebank/internal/auth"
	"chorebank/internal/store"
)

const sessionCookieName = "chorebank_session"

// RequireAuth validates the session cookie, loads the user, and populates
// AuthContext. The API is JSON-only, so failures are a 401 body rather
// than a login redirect.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			u, err := users.GetByID(sess.UserID)
			if err != nil || u == nil || !u.Active {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    u.ID,
				Role:      u.Role,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
