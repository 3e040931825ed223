package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/finplan/internal/api/middleware"
	"github.com/felixgeelhaar/finplan/internal/api/respond"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health reports that the process is up
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, respond.OK)
}

// Ready reports whether the store answers within two seconds
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("store health check failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		respond.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":    false,
			"error": "Store unavailable",
		})
		return
	}
	respond.JSON(w, http.StatusOK, respond.OK)
}
