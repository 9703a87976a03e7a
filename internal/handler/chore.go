package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/websocket"
)

type ChoreHandler struct {
	manager *chore.Manager
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewChoreHandler(manager *chore.Manager, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{manager: manager, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(householdID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.manager.ListForHousehold(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

type boardResponse struct {
	Mine   []chore.ChoreWithStatus `json:"mine"`
	Others []chore.ChoreWithStatus `json:"others"`
}

// Board splits the household's open chores into the caller's and everyone
// else's.
func (h *ChoreHandler) Board(w http.ResponseWriter, r *http.Request) {
	chores, err := h.manager.ListForHousehold(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	mine, others := chore.Partition(chores, auth.UserID(r.Context()))
	if mine == nil {
		mine = []chore.ChoreWithStatus{}
	}
	if others == nil {
		others = []chore.ChoreWithStatus{}
	}
	writeJSON(w, http.StatusOK, boardResponse{Mine: mine, Others: others})
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, r.PathValue("id"), model.SourceManual)
}

// SensorCreate records a chore reported by a sensor in its household.
func (h *ChoreHandler) SensorCreate(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, auth.HouseholdID(r.Context()), model.SourceSensor)
}

func (h *ChoreHandler) create(w http.ResponseWriter, r *http.Request, householdID string, source model.Source) {
	var req chore.NewChore
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TriggeredBy = source

	c, err := h.manager.Create(r.Context(), householdID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "created", c.ID, map[string]any{
		"assigned_to": c.AssignedTo,
	}))
	writeJSON(w, http.StatusCreated, c)
}

// Complete marks a chore done. Any authenticated user may complete any
// chore; there is no ownership or membership check on this route.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	c, err := h.manager.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(c.HouseholdID, websocket.NewMessage("chore", "completed", c.ID, map[string]any{
		"assigned_to": c.AssignedTo,
	}))
	writeJSON(w, http.StatusOK, c)
}
