package handlers

import (
	"context"
	"net/http"
	"time"

	"meetpoint/internal/core"
)

// Pinger reports whether the backing database is reachable. Implemented by
// *pgxpool.Pool; nil skips the check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler. db may be nil when no database
// is configured.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz handles GET /healthz. The database check runs on a short deadline
// so a stalled pool turns into a clean 503 instead of a hung probe.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			core.JSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}

	core.JSON(w, r, http.StatusOK, status)
}
