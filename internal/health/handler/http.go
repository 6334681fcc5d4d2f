package handler

import (
	"context"
	"net/http"
	"time"

	"callerlens/internal/httpx"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HTTP serves the liveness endpoint.
type HTTP struct {
	db Pinger
}

// NewHTTP returns the health handler.
func NewHTTP(db Pinger) *HTTP {
	return &HTTP{db: db}
}

// Handle responds with overall and database status. A dead database is
// reported as 503 so load balancers take the instance out of rotation.
func (h *HTTP) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overall, dbStatus := "ok", "ok"
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		overall, dbStatus = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}

	httpx.JSON(w, status, httpx.Envelope{
		Success: status == http.StatusOK,
		Data: map[string]any{
			"status":   overall,
			"database": dbStatus,
			"time":     time.Now().UTC().Format(time.RFC3339),
		},
	})
}
