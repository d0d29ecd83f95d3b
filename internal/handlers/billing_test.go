package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fakeBilling struct {
	eventErr    error
	matched     bool
	activateErr error
	linkURL     string
	linkErr     error

	payloads  []string
	activated []string
}

func (f *fakeBilling) HandleEvent(_ context.Context, payload []byte, _ string) error {
	f.payloads = append(f.payloads, string(payload))
	return f.eventErr
}

func (f *fakeBilling) Activate(_ context.Context, phone string) (bool, error) {
	f.activated = append(f.activated, phone)
	return f.matched, f.activateErr
}

func (f *fakeBilling) CreatePaymentLink(_ context.Context, _, _ string) (string, error) {
	return f.linkURL, f.linkErr
}

func serveBilling(billing *fakeBilling, method, path, contentType, body string) *httptest.ResponseRecorder {
	h := NewBillingHandler(slog.Default(), billing)
	e := echo.New()
	h.Register(e)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookPassesRawPayload(t *testing.T) {
	billing := &fakeBilling{}
	rec := serveBilling(billing, http.MethodPost, "/stripe-webhook", "", `{"id":"evt_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{`{"id":"evt_1"}`}, billing.payloads)
}

func TestWebhookBadSignatureIs400(t *testing.T) {
	billing := &fakeBilling{eventErr: errors.New("verify webhook: bad signature")}
	rec := serveBilling(billing, http.MethodPost, "/stripe-webhook", "", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivateEndpoint(t *testing.T) {
	billing := &fakeBilling{matched: true}
	rec := serveBilling(billing, http.MethodPost, "/billing/activate",
		echo.MIMEApplicationJSON, `{"phone_number":"whatsapp:+15550001111"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"whatsapp:+15550001111"}, billing.activated)
}

func TestActivateUnknownPhoneIs404(t *testing.T) {
	billing := &fakeBilling{matched: false}
	rec := serveBilling(billing, http.MethodPost, "/billing/activate",
		echo.MIMEApplicationJSON, `{"phone_number":"whatsapp:+19998887777"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutLink(t *testing.T) {
	billing := &fakeBilling{linkURL: "https://buy.stripe.test/abc"}
	rec := serveBilling(billing, http.MethodPost, "/billing/checkout-link",
		echo.MIMEApplicationJSON, `{"price_id":"price_123","phone_number":"whatsapp:+15550001111"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://buy.stripe.test/abc")
}

func TestCheckoutLinkMissingFieldsIs400(t *testing.T) {
	billing := &fakeBilling{}
	rec := serveBilling(billing, http.MethodPost, "/billing/checkout-link",
		echo.MIMEApplicationJSON, `{"price_id":"price_123"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivateMissingPhoneIs400(t *testing.T) {
	billing := &fakeBilling{}
	rec := serveBilling(billing, http.MethodPost, "/billing/activate",
		echo.MIMEApplicationJSON, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, billing.activated)
}
