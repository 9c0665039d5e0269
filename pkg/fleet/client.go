// Package fleet is the adapter for the cloud UniFi Site Manager API: hosts,
// sites, devices, ISP metrics, and SD-WAN configurations.
//
// Every response nests its payload under "data"; list endpoints page with an
// opaque server-issued nextToken which is handed back untouched.
package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
	"github.com/frousselet/unifi-mcp/pkg/config"
)

const (
	Backend         = "UniFi"
	DefaultBaseURL  = "https://api.ui.com/v1"
	DefaultPageSize = 25

	EnvAPIKey  = "UNIFI_API_KEY"
	EnvBaseURL = "UNIFI_API_BASE_URL"
	EnvTimeout = "UNIFI_API_TIMEOUT"
)

// Config holds construction parameters. Empty fields fall back to the
// environment, then to defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client talks to one Site Manager endpoint with one API key.
type Client struct {
	transport *adapter.Transport
	log       *slog.Logger
}

var _ adapter.Executor = (*Client)(nil)

// New resolves cfg against the environment and builds the client. A missing
// API key fails here, before any request is made.
func New(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, adapter.ErrMisconfigured(Backend, EnvAPIKey,
			"UniFi API key is required. Set UNIFI_API_KEY environment variable or pass an API key.")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.EnvOr(EnvBaseURL, DefaultBaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.EnvOrSeconds(EnvTimeout, adapter.DefaultTimeout)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	t := adapter.NewTransport(adapter.TransportConfig{
		Backend: Backend,
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: timeout,
		Logger:  log,
	})
	log.Info("site manager client initialized", "base_url", t.BaseURL(), "timeout", timeout.String())
	return &Client{transport: t, log: log}, nil
}

func (c *Client) Name() string { return Backend }

// Close releases the client's connections after in-flight calls finish.
func (c *Client) Close() error { return c.transport.Close() }

// Execute issues req and unwraps the {data, nextToken} envelope.
func (c *Client) Execute(ctx context.Context, req adapter.Request) (adapter.Result, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return adapter.Result{}, err
	}
	res, err := classify(resp)
	if err != nil {
		c.log.WarnContext(ctx, "site manager request failed",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode, "error", err)
		return adapter.Result{}, err
	}
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Response classification
// ──────────────────────────────────────────────────────────────────────────────

type envelope struct {
	Data      json.RawMessage `json:"data"`
	NextToken string          `json:"nextToken"`
	TraceID   string          `json:"traceId"`
}

func classify(resp *adapter.Response) (adapter.Result, error) {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return adapter.Result{}, adapter.ErrRateLimited(Backend, resp.Header)
	case resp.StatusCode == http.StatusNoContent:
		return adapter.Acknowledged(), nil
	case resp.StatusCode >= http.StatusBadRequest:
		message, traceID := errorDetail(resp.Body)
		return adapter.Result{}, adapter.ErrStatus(Backend, resp.StatusCode, message, traceID)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return adapter.Result{}, adapter.ErrInvalidResponse(Backend, resp.StatusCode, err)
	}
	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		// No data key means an empty collection.
		return adapter.ListResult(nil, Cursor{NextToken: env.NextToken}), nil
	case data[0] == '[':
		return adapter.ListResult(data, Cursor{NextToken: env.NextToken}), nil
	default:
		return adapter.ObjectResult(data), nil
	}
}

// errorDetail takes "message" from a JSON error body, falling back to the raw
// text, and picks up "traceId" when present.
func errorDetail(body []byte) (message, traceID string) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		message = adapter.FirstString(obj, "message")
		traceID = adapter.FirstString(obj, "traceId")
	}
	if message == "" {
		message = string(body)
	}
	return message, traceID
}
