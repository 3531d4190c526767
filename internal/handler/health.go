package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler exposes liveness and readiness probes. Liveness never
// touches dependencies; readiness pings them with a short deadline.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb}
}

// Healthz reports the process is up.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether the service can serve traffic. MySQL is
// required; Redis is reported but not required, since the rate limiter
// fails open without it.
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"mysql": "ok", "redis": "ok"}
	status := http.StatusOK

	if h.DB == nil {
		checks["mysql"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else if err := h.DB.PingContext(ctx); err != nil {
		checks["mysql"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.Redis == nil {
		checks["redis"] = "unavailable"
	} else if err := h.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
	}

	return c.JSON(status, checks)
}
