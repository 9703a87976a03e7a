package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/household"
	"github.com/dukerupert/choreboard/internal/websocket"
)

type HouseholdHandler struct {
	registry *household.Registry
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewHouseholdHandler(registry *household.Registry, hub *websocket.Hub, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{registry: registry, hub: hub, logger: logger}
}

func (h *HouseholdHandler) broadcast(householdID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	hh, err := h.registry.Create(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, hh)
}

type joinRequest struct {
	Code string `json:"code"`
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := auth.UserID(r.Context())
	hh, err := h.registry.Join(r.Context(), req.Code, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(hh.ID, websocket.NewMessage("member", "joined", userID, nil))
	writeJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	hh, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.registry.Profile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profileRequest struct {
	Name string `json:"name"`
}

func (h *HouseholdHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.registry.SetName(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if u.HouseholdID != nil {
		h.broadcast(*u.HouseholdID, websocket.NewMessage("member", "updated", u.ID, nil))
	}
	writeJSON(w, http.StatusOK, u)
}
