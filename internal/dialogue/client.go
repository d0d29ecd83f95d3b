package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client talks to the Voiceflow general runtime. State is kept per user
// on the engine side; the bridge only forwards actions and variables.
type Client struct {
	httpClient *http.Client
	runtimeURL string
	apiKey     string
	versionID  string
	logger     *slog.Logger
}

func NewClient(log *slog.Logger, runtimeURL, apiKey, versionID string) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		runtimeURL: strings.TrimRight(runtimeURL, "/"),
		apiKey:     apiKey,
		versionID:  versionID,
		logger:     log.With(slog.String("service", "dialogue")),
	}
}

type interactRequest struct {
	Request Action         `json:"request"`
	Config  interactConfig `json:"config"`
}

type interactConfig struct {
	TTS       bool `json:"tts"`
	StripSSML bool `json:"stripSSML"`
}

// Interact runs one turn for userID and returns the engine's reply
// segments. Every failure comes back wrapped in ErrEngineUnavailable.
func (c *Client) Interact(ctx context.Context, userID string, action Action) ([]Trace, error) {
	body, err := json.Marshal(interactRequest{
		Request: action,
		Config:  interactConfig{TTS: false, StripSSML: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrEngineUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/state/user/%s/interact", c.runtimeURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("engine interact failed",
			slog.String("user_id", userID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return nil, fmt.Errorf("%w: status %d", ErrEngineUnavailable, resp.StatusCode)
	}

	var traces []Trace
	if err := json.NewDecoder(resp.Body).Decode(&traces); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEngineUnavailable, err)
	}
	return traces, nil
}

// UpdateVariables pushes the session-variable bundle for userID. Callers
// treat failures as best-effort and still attempt the interaction.
func (c *Client) UpdateVariables(ctx context.Context, userID string, vars SessionVars) error {
	body, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}

	endpoint := fmt.Sprintf("%s/state/user/%s/variables", c.runtimeURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("update variables: status %d", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("versionID", c.versionID)
	req.Header.Set("Content-Type", "application/json")
}
