package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/shopping"
	"github.com/dukerupert/choreboard/internal/websocket"
)

type ShoppingHandler struct {
	list   *shopping.List
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewShoppingHandler(list *shopping.List, hub *websocket.Hub, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{list: list, hub: hub, logger: logger}
}

func (h *ShoppingHandler) broadcast(householdID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type itemRequest struct {
	Name string `json:"name"`
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.list.Items(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, r.PathValue("id"), model.SourceManual)
}

// SensorAdd puts an item on the list of the sensor's household.
func (h *ShoppingHandler) SensorAdd(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, auth.HouseholdID(r.Context()), model.SourceSensor)
}

func (h *ShoppingHandler) add(w http.ResponseWriter, r *http.Request, householdID string, source model.Source) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.list.Add(r.Context(), householdID, req.Name, source)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.broadcast(householdID, websocket.NewMessage("shopping_item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

// Remove deletes an item. Removing an item that is not on the list succeeds.
func (h *ShoppingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	householdID := r.PathValue("id")
	itemID := r.PathValue("itemId")

	removed, err := h.list.Remove(r.Context(), householdID, itemID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if removed {
		h.broadcast(householdID, websocket.NewMessage("shopping_item", "deleted", itemID, nil))
	}
	w.WriteHeader(http.StatusNoContent)
}
