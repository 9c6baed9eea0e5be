package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"chorebank/internal/auth"
	"chorebank/internal/realtime"
	"chorebank/internal/reward"
)

type RewardHandler struct {
	service *reward.Service
	hub     *realtime.Hub
	logger  *slog.Logger
}

func NewRewardHandler(svc *reward.Service, hub *realtime.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{service: svc, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(e realtime.Event) {
	if h.hub != nil {
		h.hub.Broadcast(e)
	}
}

type rewardRequest struct {
	Name         string `json:"name"`
	Cost         int    `json:"cost"`
	LimitPerWeek *int   `json:"limit_per_week"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rw, err := h.service.CreateReward(auth.Actor(r.Context()), reward.CreateInput{
		Name:         req.Name,
		Cost:         req.Cost,
		LimitPerWeek: req.LimitPerWeek,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("reward", "created", rw.ID))
	writeJSON(w, http.StatusCreated, rw)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.ListRewards(auth.Actor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

type setActiveRequest struct {
	Active bool `json:"is_active"`
}

func (h *RewardHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid reward id")
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.service.SetRewardActive(auth.Actor(r.Context()), id, req.Active); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("reward", "updated", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid reward id")
		return
	}

	red, err := h.service.Redeem(auth.Actor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("redemption", "requested", red.ID).ForUser(red.UserID))
	writeJSON(w, http.StatusCreated, red)
}

func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if s := r.URL.Query().Get("user_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = &id
	}

	reds, err := h.service.ListRedemptions(auth.Actor(r.Context()), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reds)
}

func (h *RewardHandler) ApproveRedemption(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid redemption id")
		return
	}
	var req decisionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	red, err := h.service.ApproveRedemption(auth.Actor(r.Context()), id, req.Note)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("redemption", "approved", red.ID).ForUser(red.UserID))
	h.broadcast(realtime.NewEvent("ledger", "debited", red.ID).ForUser(red.UserID))
	writeJSON(w, http.StatusOK, red)
}

func (h *RewardHandler) DenyRedemption(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid redemption id")
		return
	}
	var req decisionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	red, err := h.service.DenyRedemption(auth.Actor(r.Context()), id, req.Note)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("redemption", "denied", red.ID).ForUser(red.UserID))
	writeJSON(w, http.StatusOK, red)
}
