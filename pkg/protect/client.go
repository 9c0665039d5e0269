// Package protect is the adapter for the UniFi Protect integration API served
// by a local console under /proxy/protect/api.
//
// Protect never paginates: every list endpoint returns the whole collection.
// Bodies come back as a bare JSON array, a bare JSON object, or (for
// snapshots) raw image bytes; nothing is wrapped in a "data" envelope.
package protect

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
	Backend = "UniFi Protect"

	EnvHost      = "UNIFI_PROTECT_HOST"
	EnvAPIKey    = "UNIFI_PROTECT_API_KEY"
	EnvVerifyTLS = "UNIFI_PROTECT_VERIFY_SSL"

	envSharedAPIKey = "UNIFI_API_KEY"
	envTimeout      = "UNIFI_API_TIMEOUT"
)

type Config struct {
	Host   string
	APIKey string
	// VerifyTLS overrides UNIFI_PROTECT_VERIFY_SSL when non-nil.
	VerifyTLS *bool
	Timeout   time.Duration
	Logger    *slog.Logger

	// BaseURL replaces the https://<host>/proxy/protect/api endpoint.
	BaseURL string
}

type Client struct {
	transport *adapter.Transport
	log       *slog.Logger
}

var _ adapter.Executor = (*Client)(nil)

// Configured reports whether a console host is available from the environment.
func Configured() bool {
	return os.Getenv(EnvHost) != ""
}

func New(cfg Config) (*Client, error) {
	host := cfg.Host
	if host == "" {
		host = os.Getenv(EnvHost)
	}
	if host == "" && cfg.BaseURL == "" {
		return nil, adapter.ErrMisconfigured(Backend, EnvHost,
			"UniFi Protect host is required. Set UNIFI_PROTECT_HOST environment variable or pass host parameter.")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = config.FirstEnv(EnvAPIKey, envSharedAPIKey)
	}
	if apiKey == "" {
		return nil, adapter.ErrMisconfigured(Backend, EnvAPIKey,
			"UniFi API key is required. Set UNIFI_PROTECT_API_KEY or UNIFI_API_KEY environment variable, or pass api_key parameter.")
	}
	verify := config.EnvOrBool(EnvVerifyTLS, false)
	if cfg.VerifyTLS != nil {
		verify = *cfg.VerifyTLS
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.EnvOrSeconds(envTimeout, adapter.DefaultTimeout)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + host + "/proxy/protect/api"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	t := adapter.NewTransport(adapter.TransportConfig{
		Backend:            Backend,
		BaseURL:            baseURL,
		APIKey:             apiKey,
		Timeout:            timeout,
		InsecureSkipVerify: !verify,
		Logger:             log,
	})
	log.Info("protect client initialized", "base_url", t.BaseURL(), "verify_tls", verify)
	return &Client{transport: t, log: log}, nil
}

func (c *Client) Name() string { return Backend }

func (c *Client) Close() error { return c.transport.Close() }

// Execute issues req and resolves the body as array, object, or bytes.
func (c *Client) Execute(ctx context.Context, req adapter.Request) (adapter.Result, error) {
	return c.do(ctx, req, classify)
}

// raw issues req and returns the body untouched once the status checks pass.
func (c *Client) raw(ctx context.Context, req adapter.Request) (adapter.Result, error) {
	return c.do(ctx, req, classifyRaw)
}

func (c *Client) do(ctx context.Context, req adapter.Request, fn func(*adapter.Response) (adapter.Result, error)) (adapter.Result, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return adapter.Result{}, err
	}
	res, err := fn(resp)
	if err != nil {
		c.log.WarnContext(ctx, "protect request failed",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode, "error", err)
		return adapter.Result{}, err
	}
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Response classification
// ──────────────────────────────────────────────────────────────────────────────

// statusError applies the failure rules shared by the JSON and raw paths.
func statusError(resp *adapter.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return adapter.ErrRateLimited(Backend, resp.Header)
	case resp.StatusCode >= http.StatusBadRequest:
		return adapter.ErrStatus(Backend, resp.StatusCode, errorMessage(resp.Body), "")
	}
	return nil
}

func classify(resp *adapter.Response) (adapter.Result, error) {
	if err := statusError(resp); err != nil {
		return adapter.Result{}, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return adapter.Acknowledged(), nil
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return adapter.Acknowledged(), nil
	}

	switch body[0] {
	case '[':
		if json.Valid(body) {
			return adapter.ListResult(body, nil), nil
		}
	case '{':
		if json.Valid(body) {
			return adapter.ObjectResult(body), nil
		}
	}
	return adapter.BytesResult(resp.Body, resp.ContentType()), nil
}

func classifyRaw(resp *adapter.Response) (adapter.Result, error) {
	if err := statusError(resp); err != nil {
		return adapter.Result{}, err
	}
	return adapter.BytesResult(resp.Body, resp.ContentType()), nil
}

// errorMessage only looks inside the body when it is a JSON object; arrays
// and non-JSON bodies are reported as raw text.
func errorMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil && obj != nil {
		if msg := adapter.FirstString(obj, "message", "error"); msg != "" {
			return msg
		}
	}
	return string(body)
}
