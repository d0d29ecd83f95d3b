package whatsapp

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/twilio/twilio-go/client"
)

// Verifier checks that an inbound webhook genuinely originates from the
// messaging provider. The signed URL is rebuilt from the configured
// public base URL plus the request URI, never from the internally
// observed host: the service runs behind a reverse proxy.
type Verifier struct {
	validator client.RequestValidator
	baseURL   string
	hasToken  bool
	logger    *slog.Logger
}

func NewVerifier(log *slog.Logger, authToken, publicBaseURL string) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{
		validator: client.NewRequestValidator(authToken),
		baseURL:   strings.TrimRight(publicBaseURL, "/"),
		hasToken:  authToken != "",
		logger:    log.With(slog.String("service", "signature")),
	}
}

// Verify recomputes the provider signature over the public URL and the
// form parameters. Missing header, missing configured secret, or any
// mismatch rejects the request.
func (v *Verifier) Verify(signature, requestURI string, form url.Values) bool {
	if signature == "" || !v.hasToken {
		v.logger.Warn("rejecting unsigned webhook", slog.String("uri", requestURI))
		return false
	}

	params := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	fullURL := v.baseURL + requestURI
	ok := v.validator.Validate(fullURL, params, signature)
	if !ok {
		v.logger.Warn("webhook signature mismatch", slog.String("url", fullURL))
	}
	return ok
}
