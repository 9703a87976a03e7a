package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreboard/internal/stats"
)

type StatsHandler struct {
	aggregator *stats.Aggregator
	logger     *slog.Logger
}

func NewStatsHandler(aggregator *stats.Aggregator, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{aggregator: aggregator, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.aggregator.ComputeStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
