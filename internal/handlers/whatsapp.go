package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureVerifier checks provider authenticity of an inbound webhook.
type SignatureVerifier interface {
	Verify(signature, requestURI string, form url.Values) bool
}

// TurnHandler runs one inbound message through the gateway and returns
// the TwiML reply.
type TurnHandler interface {
	HandleTurn(ctx context.Context, from, body string) (string, error)
}

// WhatsAppHandler terminates the provider's inbound message webhook.
type WhatsAppHandler struct {
	verifier SignatureVerifier
	gateway  TurnHandler
	logger   *slog.Logger
}

func NewWhatsAppHandler(log *slog.Logger, verifier SignatureVerifier, gateway TurnHandler) *WhatsAppHandler {
	return &WhatsAppHandler{
		verifier: verifier,
		gateway:  gateway,
		logger:   log.With(slog.String("handler", "whatsapp")),
	}
}

func (h *WhatsAppHandler) Register(e *echo.Echo) {
	e.POST("/whatsapp", h.Inbound)
}

// Inbound verifies the webhook signature before anything else runs; an
// unverifiable request gets a bare 403 and touches no other subsystem.
func (h *WhatsAppHandler) Inbound(c echo.Context) error {
	req := c.Request()
	if err := req.ParseForm(); err != nil {
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	if !h.verifier.Verify(req.Header.Get(signatureHeader), req.RequestURI, req.PostForm) {
		return c.String(http.StatusForbidden, "Forbidden")
	}

	from := req.PostForm.Get("From")
	body := req.PostForm.Get("Body")

	twiml, err := h.gateway.HandleTurn(req.Context(), from, body)
	if err != nil {
		h.logger.Error("turn failed", slog.String("error", err.Error()))
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}

	return c.Blob(http.StatusOK, "text/xml", []byte(twiml))
}
