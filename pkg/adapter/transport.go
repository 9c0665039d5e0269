package adapter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultTimeout = 30 * time.Second
	APIKeyHeader   = "X-API-KEY"

	maxResponseBytes int64 = 16 << 20 // 16 MB, snapshots included
	meterName              = "github.com/frousselet/unifi-mcp/pkg/adapter"
)

// TransportConfig is fixed for the lifetime of a Transport.
type TransportConfig struct {
	Backend string
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Local
	// consoles usually serve self-signed certificates.
	InsecureSkipVerify bool

	Logger *slog.Logger
}

// Response is the raw outcome of one HTTP exchange, body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the response media type without parameters.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// Transport performs authenticated HTTP calls against one backend endpoint.
// It holds no per-call state; the only mutable field is the lifecycle guard.
type Transport struct {
	backend string
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     *slog.Logger
	maxBody int64

	requests metric.Int64Counter
	duration metric.Float64Histogram

	mu        sync.RWMutex
	closed    bool
	inflight  sync.WaitGroup
	closeOnce sync.Once
}

// NewTransport creates a transport with its own connection pool.
func NewTransport(cfg TransportConfig) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit construction-time opt-in
	}

	meter := otel.Meter(meterName)
	requests, _ := meter.Int64Counter("unifi.adapter.requests",
		metric.WithDescription("Outbound backend requests by backend and status"))
	duration, _ := meter.Float64Histogram("unifi.adapter.request.duration",
		metric.WithDescription("Outbound backend request latency"),
		metric.WithUnit("s"))

	return &Transport{
		backend: cfg.Backend,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(base),
		},
		log:      log,
		maxBody:  maxResponseBytes,
		requests: requests,
		duration: duration,
	}
}

// Backend returns the display name used in errors.
func (t *Transport) Backend() string { return t.backend }

// BaseURL returns the resolved endpoint.
func (t *Transport) BaseURL() string { return t.baseURL }

// Timeout returns the fixed per-call budget.
func (t *Transport) Timeout() time.Duration { return t.timeout }

// Do sends req and reads the whole response. It fails only for problems that
// prevented a complete HTTP exchange; status classification is the caller's.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.inflight.Done()

	target := t.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader = http.NoBody
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Backend: t.backend, Kind: KindClient, Message: "encode request body: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Backend: t.backend, Kind: KindClient, Message: "build request: " + err.Error(), Err: err}
	}
	httpReq.Header.Set(APIKeyHeader, t.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.observe(ctx, req.Method, StatusUnreachable, start)
		reason := t.unreachableReason(err)
		t.log.WarnContext(ctx, "backend unreachable",
			"backend", t.backend, "method", req.Method, "path", req.Path, "error", err)
		return nil, ErrUnreachable(t.backend, reason, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	t.observe(ctx, req.Method, resp.StatusCode, start)
	if err != nil {
		return nil, ErrUnreachable(t.backend, t.unreachableReason(err), err)
	}
	if int64(len(respBody)) > t.maxBody {
		return nil, ErrInvalidResponse(t.backend, resp.StatusCode,
			fmt.Errorf("body exceeds %d bytes", t.maxBody))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// Close waits for in-flight calls and releases pooled connections. Calls
// issued afterwards fail with KindUnreachable. Safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		t.inflight.Wait()
		t.client.CloseIdleConnections()
		t.log.Info("adapter closed", "backend", t.backend)
	})
	return nil
}

func (t *Transport) acquire() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrUnreachable(t.backend, "adapter closed", nil)
	}
	t.inflight.Add(1)
	return nil
}

func (t *Transport) unreachableReason(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("request timed out after %s", t.timeout)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Sprintf("cannot reach %s: %v", t.baseURL, err)
}

func (t *Transport) observe(ctx context.Context, method string, status int, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("backend", t.backend),
		attribute.String("http.method", method),
		attribute.Int("http.status_code", status),
	)
	if t.requests != nil {
		t.requests.Add(ctx, 1, attrs)
	}
	if t.duration != nil {
		t.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
