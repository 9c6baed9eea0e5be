package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"chorebank/internal/auth"
	"chorebank/internal/ledger"
	"chorebank/internal/realtime"
)

type LedgerHandler struct {
	service *ledger.Service
	hub     *realtime.Hub
	logger  *slog.Logger
}

func NewLedgerHandler(svc *ledger.Service, hub *realtime.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{service: svc, hub: hub, logger: logger}
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if s := r.URL.Query().Get("user_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = &id
	}

	st, err := h.service.Get(auth.Actor(r.Context()), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type adjustRequest struct {
	UserID int64  `json:"user_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (h *LedgerHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	e, err := h.service.Adjust(auth.Actor(r.Context()), req.UserID, req.Delta, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(realtime.NewEvent("ledger", "adjusted", e.ID).ForUser(req.UserID))
	}
	writeJSON(w, http.StatusCreated, e)
}
