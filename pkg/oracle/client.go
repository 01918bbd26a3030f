// Package oracle talks to an Ollama-compatible generation endpoint. The
// transport retries network-level failures with exponential backoff and
// escalates "model not found" style responses as permanent errors; on top
// of it sits the structured-generation loop that re-prompts the model until
// its output parses into the expected shape.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultEndpoint = "http://localhost:11434"
	DefaultModel    = "llama3"

	defaultTimeout    = 300 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Client is a synchronous client for the /api/generate endpoint.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// Request carries one generation call.
type Request struct {
	Prompt      string
	System      string
	Temperature float64
}

type generatePayload struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets the transport retry budget and backoff base.
func WithRetries(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// New creates a client for the given endpoint and model. Empty arguments
// fall back to the defaults.
func New(endpoint, model string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate sends one prompt and returns the raw response text. Transport
// failures retry with exponential backoff; a 404 or a model-not-found body
// is permanent and returned immediately.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))
			logrus.Warnf("oracle request failed (%v), retrying in %s (attempt %d/%d)", lastErr, delay, attempt+1, c.maxRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := c.send(ctx, req)
		if err == nil {
			return text, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("oracle: request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, req Request) (string, error) {
	payload := generatePayload{
		Model:       c.model,
		Prompt:      req.Prompt,
		System:      req.System,
		Stream:      false,
		Temperature: req.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		msg := string(raw)
		if resp.StatusCode == http.StatusNotFound {
			return "", NewPermanentError(fmt.Errorf("oracle endpoint not found (is the server running?): %s", msg))
		}
		if strings.Contains(msg, "model") && strings.Contains(msg, "not found") {
			return "", NewPermanentError(fmt.Errorf("model %q not available: %s", c.model, msg))
		}
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, msg)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Response, nil
}
