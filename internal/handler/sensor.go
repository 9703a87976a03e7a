package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
)

type SensorHandler struct {
	store  *store.SensorStore
	logger *slog.Logger
}

func NewSensorHandler(s *store.SensorStore, logger *slog.Logger) *SensorHandler {
	return &SensorHandler{store: s, logger: logger}
}

type sensorRequest struct {
	Name string `json:"name"`
}

type registeredSensor struct {
	*model.Sensor
	Key string `json:"key"`
}

// Register creates a sensor for the household. The response carries the
// sensor key, which is not stored and cannot be shown again.
func (h *SensorHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req sensorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, apperr.Invalid("sensor name is required"))
		return
	}

	key, hash, err := auth.GenerateSensorKey()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	householdID := r.PathValue("id")
	sn, err := h.store.Create(r.Context(), householdID, req.Name, hash, time.Now())
	if err != nil {
		writeError(w, h.logger, apperr.Unavailable("create sensor", err))
		return
	}

	h.logger.Info("sensor registered", "sensor_id", sn.ID, "household_id", householdID)
	writeJSON(w, http.StatusCreated, registeredSensor{Sensor: sn, Key: key})
}

func (h *SensorHandler) List(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.store.ListByHousehold(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, apperr.Unavailable("list sensors", err))
		return
	}
	if sensors == nil {
		sensors = []model.Sensor{}
	}
	writeJSON(w, http.StatusOK, sensors)
}

func (h *SensorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id"), r.PathValue("sensorId")); err != nil {
		writeError(w, h.logger, apperr.Unavailable("delete sensor", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
