// Package handler contains the JSON API handlers. Each handler resolves the
// acting user from the request context, delegates to a domain service, and
// translates domain errors onto HTTP status codes.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"chorebank/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors to HTTP statuses. Anything unrecognized is
// logged and reported as a 500 without leaking internals.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		errorJSON(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotAssignee):
		errorJSON(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrLimitExceeded):
		errorJSON(w, http.StatusConflict, err.Error())
	default:
		logger.Error("internal error", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
