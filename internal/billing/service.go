package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// metadataPhoneKey is the checkout-session metadata field carrying the
// purchaser's messaging number, set when the payment link is created.
const metadataPhoneKey = "user_phone"

// Store flips a team's subscription on after a successful payment.
type Store interface {
	ActivateSubscriptionByPhone(ctx context.Context, phone string) (bool, error)
}

// Service processes payment webhooks and manages checkout links.
type Service struct {
	api           *client.API
	store         Store
	webhookSecret string
	successURL    string
	logger        *slog.Logger
}

func NewService(log *slog.Logger, store Store, secretKey, webhookSecret, successURL string) *Service {
	if log == nil {
		log = slog.Default()
	}
	var api *client.API
	if secretKey != "" {
		api = client.New(secretKey, nil)
	}
	return &Service{
		api:           api,
		store:         store,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		logger:        log.With(slog.String("service", "billing")),
	}
}

// HandleEvent verifies and applies one webhook delivery. A bad signature
// is the caller's 400; activation failures after a verified payment are
// logged and retried by the provider's own redelivery.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
	if err != nil {
		return fmt.Errorf("verify webhook: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		s.activate(ctx, session.Metadata[metadataPhoneKey])
	default:
		s.logger.Debug("ignoring webhook event", slog.String("type", string(event.Type)))
	}
	return nil
}

// Activate marks the team owning phone as paid. Used by the webhook path
// and by the manual activation endpoint.
func (s *Service) Activate(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, fmt.Errorf("activate subscription: empty phone")
	}
	return s.store.ActivateSubscriptionByPhone(ctx, phone)
}

func (s *Service) activate(ctx context.Context, phone string) {
	if phone == "" {
		s.logger.Warn("checkout completed without a phone in metadata")
		return
	}
	ok, err := s.store.ActivateSubscriptionByPhone(ctx, phone)
	if err != nil {
		s.logger.Error("subscription activation failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		s.logger.Warn("paid phone matches no enrolled user")
		return
	}
	s.logger.Info("subscription activated")
}

// CreatePaymentLink builds a checkout link for priceID with the buyer's
// phone stamped into the session metadata so the completion webhook can
// find their team.
func (s *Service) CreatePaymentLink(ctx context.Context, priceID, phone string) (string, error) {
	if s.api == nil {
		return "", fmt.Errorf("create payment link: billing not configured")
	}

	params := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		Metadata: map[string]string{metadataPhoneKey: phone},
	}
	if s.successURL != "" {
		params.AfterCompletion = &stripe.PaymentLinkAfterCompletionParams{
			Type: stripe.String("redirect"),
			Redirect: &stripe.PaymentLinkAfterCompletionRedirectParams{
				URL: stripe.String(s.successURL),
			},
		}
	}
	params.Context = ctx

	link, err := s.api.PaymentLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment link: %w", err)
	}
	return link.URL, nil
}

// Healthy probes the billing provider with a cheap read.
func (s *Service) Healthy(ctx context.Context) error {
	if s.api == nil {
		return fmt.Errorf("billing not configured")
	}
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := s.api.Balance.Get(params); err != nil {
		return fmt.Errorf("billing probe: %w", err)
	}
	return nil
}
