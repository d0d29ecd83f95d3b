package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const probeTimeout = 5 * time.Second

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MessagingProber checks messaging-provider connectivity.
type MessagingProber interface {
	Healthy(ctx context.Context) error
}

// BillingProber checks payment-provider connectivity.
type BillingProber interface {
	Healthy(ctx context.Context) error
}

// StatusHandler reports per-dependency health. It always answers 200;
// the body tells operators which dependency is down.
type StatusHandler struct {
	db        Pinger
	messaging MessagingProber
	billing   BillingProber
	logger    *slog.Logger
}

func NewStatusHandler(log *slog.Logger, db Pinger, messaging MessagingProber, billing BillingProber) *StatusHandler {
	return &StatusHandler{
		db:        db,
		messaging: messaging,
		billing:   billing,
		logger:    log.With(slog.String("handler", "status")),
	}
}

func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/status", h.Status)
}

func (h *StatusHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	report := map[string]string{
		"database":  h.probe("database", h.db.Ping(ctx)),
		"messaging": h.probe("messaging", h.messaging.Healthy(ctx)),
		"billing":   h.probe("billing", h.billing.Healthy(ctx)),
	}
	return c.JSON(http.StatusOK, report)
}

func (h *StatusHandler) probe(name string, err error) string {
	if err != nil {
		h.logger.Warn("dependency probe failed",
			slog.String("dependency", name),
			slog.String("error", err.Error()))
		return "down"
	}
	return "up"
}
