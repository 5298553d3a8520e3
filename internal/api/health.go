package api

import (
	"context"
	"net/http"
	"time"

	"ideias/internal/db"
)

// Pinger is an optional dependency probed by the health check (the Redis
// session store when configured).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	database *db.DB
	redis    Pinger
}

func NewHealthHandler(database *db.DB, redis Pinger) *HealthHandler {
	return &HealthHandler{database: database, redis: redis}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok"}

	if err := h.database.PingContext(ctx); err != nil {
		checks["database"] = "error"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "error"
			status = http.StatusServiceUnavailable
		}
	}

	result := "ok"
	if status != http.StatusOK {
		result = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"ok":     status == http.StatusOK,
		"status": result,
		"checks": checks,
	})
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
