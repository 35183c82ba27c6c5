package handlers

import (
	"context"
	"net/http"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
)

// StatsProvider reports index coverage.
type StatsProvider interface {
	CoverageStats(ctx context.Context, embeddingModelName string) (*indexer.CoverageStats, error)
}

// StatsHandler serves GET /api/stats.
type StatsHandler struct {
	stats              StatsProvider
	embeddingModelName string
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats StatsProvider, embeddingModelName string) *StatsHandler {
	return &StatsHandler{stats: stats, embeddingModelName: embeddingModelName}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.stats.CoverageStats(ctx, h.embeddingModelName)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to compute stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}
