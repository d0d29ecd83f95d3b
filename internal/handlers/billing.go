package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxWebhookBody caps the raw payload read for signature verification.
const maxWebhookBody = 1 << 20

// BillingService applies payment events, manual activations and checkout
// link creation.
type BillingService interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error
	Activate(ctx context.Context, phone string) (bool, error)
	CreatePaymentLink(ctx context.Context, priceID, phone string) (string, error)
}

type BillingHandler struct {
	billing BillingService
	logger  *slog.Logger
}

func NewBillingHandler(log *slog.Logger, billing BillingService) *BillingHandler {
	return &BillingHandler{
		billing: billing,
		logger:  log.With(slog.String("handler", "billing")),
	}
}

func (h *BillingHandler) Register(e *echo.Echo) {
	e.POST("/stripe-webhook", h.Webhook)
	e.POST("/billing/activate", h.Activate)
	e.POST("/billing/checkout-link", h.CheckoutLink)
}

// Webhook needs the raw body bytes; the provider signs the exact payload.
func (h *BillingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	if err := h.billing.HandleEvent(c.Request().Context(), payload, sig); err != nil {
		h.logger.Warn("webhook rejected", slog.String("error", err.Error()))
		return c.String(http.StatusBadRequest, "Bad Request")
	}
	return c.NoContent(http.StatusOK)
}

type activateRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (h *BillingHandler) Activate(c echo.Context) error {
	var req activateRequest
	if err := c.Bind(&req); err != nil || req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "phone_number is required"})
	}

	matched, err := h.billing.Activate(c.Request().Context(), req.PhoneNumber)
	if err != nil {
		h.logger.Error("manual activation failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "activation failed"})
	}
	if !matched {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no enrolled user for that phone"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "activated"})
}

type checkoutLinkRequest struct {
	PriceID     string `json:"price_id"`
	PhoneNumber string `json:"phone_number"`
}

// CheckoutLink creates a payment link with the buyer's phone stamped into
// the session metadata, so the completion webhook can activate their team.
func (h *BillingHandler) CheckoutLink(c echo.Context) error {
	var req checkoutLinkRequest
	if err := c.Bind(&req); err != nil || req.PriceID == "" || req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price_id and phone_number are required"})
	}

	url, err := h.billing.CreatePaymentLink(c.Request().Context(), req.PriceID, req.PhoneNumber)
	if err != nil {
		h.logger.Error("payment link creation failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "payment link creation failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
