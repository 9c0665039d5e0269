// Package network is the adapter for the UniFi Network integration API served
// by a local console under /proxy/network/integration.
package network

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
	Backend      = "UniFi Network"
	DefaultLimit = 25

	EnvHost      = "UNIFI_NETWORK_HOST"
	EnvAPIKey    = "UNIFI_NETWORK_API_KEY"
	EnvVerifyTLS = "UNIFI_NETWORK_VERIFY_SSL"

	envSharedAPIKey = "UNIFI_API_KEY"
	envTimeout      = "UNIFI_API_TIMEOUT"
)

type Config struct {
	Host   string
	APIKey string
	// VerifyTLS overrides UNIFI_NETWORK_VERIFY_SSL when non-nil.
	VerifyTLS *bool
	Timeout   time.Duration
	Logger    *slog.Logger

	// BaseURL replaces the https://<host>/proxy/network/integration endpoint.
	// Tests point it at an httptest server.
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
			"UniFi Network host is required. Set UNIFI_NETWORK_HOST environment variable or pass host parameter.")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = config.FirstEnv(EnvAPIKey, envSharedAPIKey)
	}
	if apiKey == "" {
		return nil, adapter.ErrMisconfigured(Backend, EnvAPIKey,
			"UniFi API key is required. Set UNIFI_NETWORK_API_KEY or UNIFI_API_KEY environment variable, or pass api_key parameter.")
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
		baseURL = "https://" + host + "/proxy/network/integration"
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
	log.Info("network client initialized", "base_url", t.BaseURL(), "verify_tls", verify)
	return &Client{transport: t, log: log}, nil
}

func (c *Client) Name() string { return Backend }

func (c *Client) Close() error { return c.transport.Close() }

func (c *Client) Execute(ctx context.Context, req adapter.Request) (adapter.Result, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return adapter.Result{}, err
	}
	res, err := classify(resp)
	if err != nil {
		c.log.WarnContext(ctx, "network request failed",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode, "error", err)
		return adapter.Result{}, err
	}
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Response classification
// ──────────────────────────────────────────────────────────────────────────────

type page struct {
	Data       json.RawMessage `json:"data"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
	TotalCount int             `json:"totalCount"`
}

func classify(resp *adapter.Response) (adapter.Result, error) {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return adapter.Result{}, adapter.ErrRateLimited(Backend, resp.Header)
	case resp.StatusCode == http.StatusNoContent:
		return adapter.Acknowledged(), nil
	case resp.StatusCode >= http.StatusBadRequest:
		return adapter.Result{}, adapter.ErrStatus(Backend, resp.StatusCode, errorMessage(resp.Body), "")
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return adapter.Acknowledged(), nil
	}
	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return adapter.Result{}, adapter.ErrInvalidResponse(Backend, resp.StatusCode, err)
		}
		return adapter.ListResult(body, nil), nil
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return adapter.Result{}, adapter.ErrInvalidResponse(Backend, resp.StatusCode, err)
	}
	if data := bytes.TrimSpace(p.Data); len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return adapter.Result{}, adapter.ErrInvalidResponse(Backend, resp.StatusCode, err)
		}
		// Count is the length of the page actually returned; the console's
		// own "count" field is not always present.
		return adapter.ListResult(data, Window{
			Offset:     p.Offset,
			Limit:      p.Limit,
			Count:      len(items),
			TotalCount: p.TotalCount,
		}), nil
	}
	return adapter.ObjectResult(body), nil
}

// errorMessage prefers "message", then "error", then the raw body text.
func errorMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		if msg := adapter.FirstString(obj, "message", "error"); msg != "" {
			return msg
		}
	}
	return string(body)
}
