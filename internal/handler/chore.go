package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"chorebank/internal/auth"
	"chorebank/internal/chore"
	"chorebank/internal/model"
	"chorebank/internal/realtime"
)

type ChoreHandler struct {
	service *chore.Service
	hub     *realtime.Hub
	logger  *slog.Logger
}

func NewChoreHandler(svc *chore.Service, hub *realtime.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{service: svc, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(e realtime.Event) {
	if h.hub != nil {
		h.hub.Broadcast(e)
	}
}

type choreRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Points      int              `json:"points"`
	Recurrence  model.Recurrence `json:"recurrence"`
	DueDate     *string          `json:"due_date"`
	AssigneeIDs []int64          `json:"assignee_ids"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var due *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := time.ParseInLocation("2006-01-02", *req.DueDate, time.UTC)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		due = &d
	}

	c, err := h.service.Create(auth.Actor(r.Context()), chore.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		Recurrence:  req.Recurrence,
		DueDate:     due,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("chore", "created", c.ID))
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *model.ChoreStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := model.ChoreStatus(s)
		status = &st
	}
	includeUpcoming := r.URL.Query().Get("all") == "true"

	chores, err := h.service.List(auth.Actor(r.Context()), status, includeUpcoming)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid chore id")
		return
	}

	c, events, err := h.service.Get(auth.Actor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chore": c, "events": events})
}

func (h *ChoreHandler) PendingApproval(w http.ResponseWriter, r *http.Request) {
	chores, err := h.service.PendingApproval(auth.Actor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid chore id")
		return
	}

	c, err := h.service.MarkDone(auth.Actor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("chore", "done", c.ID))
	writeJSON(w, http.StatusOK, c)
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *ChoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid chore id")
		return
	}
	var req decisionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	c, err := h.service.Approve(auth.Actor(r.Context()), id, req.Note)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("chore", "approved", c.ID))
	// Balances changed for every assignee.
	for _, uid := range c.AssigneeIDs {
		h.broadcast(realtime.NewEvent("ledger", "credited", c.ID).ForUser(uid))
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid chore id")
		return
	}
	var req decisionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	c, err := h.service.Reject(auth.Actor(r.Context()), id, req.Note)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(realtime.NewEvent("chore", "rejected", c.ID))
	writeJSON(w, http.StatusOK, c)
}
