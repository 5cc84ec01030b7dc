package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	logger *slog.Logger
	checks map[string]HealthCheck
}

func NewHealthHandler(logger *slog.Logger, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		checks: checks,
	}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, h.logger, status, map[string]interface{}{
		"status":     overall,
		"components": components,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}
