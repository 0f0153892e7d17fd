package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	db pinger
}

func NewHealthController(db pinger) *HealthController {
	return &HealthController{db: db}
}

func (c *HealthController) Welcome(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to our E-commerce Backend System!!",
	})
}

func (c *HealthController) Health(ctx echo.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	if err := c.db.PingContext(pingCtx); err != nil {
		logrus.WithError(err).Warn("Health check failed: database unreachable")
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":   "unavailable",
			"database": "down",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
	})
}
