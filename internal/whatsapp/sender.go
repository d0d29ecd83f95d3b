package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const sendTimeout = 10 * time.Second

// Sender delivers outbound messages from the configured business number.
type Sender struct {
	rest       *twilio.RestClient
	accountSID string
	from       string
	logger     *slog.Logger
}

func NewSender(log *slog.Logger, accountSID, authToken, fromNumber string) *Sender {
	if log == nil {
		log = slog.Default()
	}

	httpClient := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(accountSID, authToken),
	}
	httpClient.SetTimeout(sendTimeout)

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
		Client:   httpClient,
	})

	return &Sender{
		rest:       rest,
		accountSID: accountSID,
		from:       fromNumber,
		logger:     log.With(slog.String("service", "whatsapp_sender")),
	}
}

// Healthy fetches the provider account record, the cheapest authenticated
// read the REST API offers.
func (s *Sender) Healthy(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.accountSID == "" {
		return fmt.Errorf("messaging probe: no account configured")
	}
	if _, err := s.rest.Api.FetchAccount(s.accountSID); err != nil {
		return fmt.Errorf("messaging probe: %w", err)
	}
	return nil
}

// Send delivers one message to a single recipient. The underlying HTTP
// client enforces the timeout; ctx is honored for early cancellation
// before the call is issued.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.from == "" {
		return fmt.Errorf("send message: no from number configured")
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(to)
	params.SetBody(body)

	if _, err := s.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
