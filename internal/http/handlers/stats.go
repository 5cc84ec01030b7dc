package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"shopple/internal/domain"
)

type StatsHandler struct {
	logger   *slog.Logger
	products domain.ProductRepository
	queue    RefreshQueue
}

// NewStatsHandler creates the dashboard handler; queue may be nil
func NewStatsHandler(logger *slog.Logger, products domain.ProductRepository, queue RefreshQueue) *StatsHandler {
	return &StatsHandler{
		logger:   logger,
		products: products,
		queue:    queue,
	}
}

// StatsResponse is the admin dashboard summary
type StatsResponse struct {
	Products  *domain.ProductStats `json:"products"`
	Queue     map[string]int64     `json:"queue,omitempty"`
	Timestamp string               `json:"timestamp"`
}

// HandleStats handles GET /api/admin/stats
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	stats, err := h.products.Stats(r.Context(), &userID)
	if err != nil {
		writeFailure(w, h.logger, err, "load stats")
		return
	}

	resp := StatsResponse{
		Products:  stats,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if h.queue != nil {
		queueStats, err := h.queue.GetQueueStats(r.Context(), domain.JobTypeRefreshProduct)
		if err != nil {
			h.logger.Warn("Failed to load queue stats", "error", err)
		} else {
			resp.Queue = queueStats
		}
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
