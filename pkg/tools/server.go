// Package tools exposes the UniFi adapters as MCP tools. It is routing only:
// each tool decodes its arguments, calls one or more adapter methods, and
// renders the normalized result or the classified error as tool content.
package tools

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
	"github.com/frousselet/unifi-mcp/pkg/audit"
	"github.com/frousselet/unifi-mcp/pkg/auth"
	"github.com/frousselet/unifi-mcp/pkg/backends"
)

const (
	ServerName = "unifi"
	tracerName = "github.com/frousselet/unifi-mcp/pkg/tools"
)

const instructions = `This server provides access to UniFi infrastructure via three APIs:
1. **Site Manager API** (cloud): list_hosts, get_host, list_sites, list_devices, get_isp_metrics, query_isp_metrics, get_sdwan_config
2. **Network API** (local console): network_* tools for devices, clients, networks, WiFi, firewall, DNS, vouchers, and more
3. **Protect API** (local console): protect_* tools for cameras, lights, sensors, chimes, door locks, events, liveviews, and viewers

Start with list_hosts, network_info, or protect_info to discover your infrastructure.`

// Recorder receives one audit record per tool invocation.
type Recorder interface {
	Record(ctx context.Context, inv *audit.Invocation) error
}

type Options struct {
	Version  string
	Logger   *slog.Logger
	Recorder Recorder
}

// New builds an MCP server whose tools act on set. caller is stamped on every
// audit record produced by this server.
func New(set *backends.Set, caller string, opts Options) *mcp.Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	ts := &toolset{
		set:    set,
		caller: caller,
		rec:    opts.Recorder,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	ts.registerFleet(s)
	ts.registerNetwork(s)
	ts.registerProtect(s)
	return s
}

// Servers hands out one MCP server per authenticated caller for the
// streamable HTTP transport.
type Servers struct {
	set  *backends.Set
	opts Options

	mu       sync.Mutex
	byCaller map[string]*mcp.Server
}

func NewServers(set *backends.Set, opts Options) *Servers {
	return &Servers{set: set, opts: opts, byCaller: make(map[string]*mcp.Server)}
}

// For returns the server bound to caller, creating it on first use.
func (s *Servers) For(caller string) *mcp.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.byCaller[caller]
	if !ok {
		srv = New(s.set, caller, s.opts)
		s.byCaller[caller] = srv
	}
	return srv
}

// ForRequest picks the server for the caller authenticated on r.
func (s *Servers) ForRequest(r *http.Request) *mcp.Server {
	return s.For(auth.CallerFromContext(r.Context()))
}

// ──────────────────────────────────────────────────────────────────────────────
// Invocation plumbing
// ──────────────────────────────────────────────────────────────────────────────

type toolset struct {
	set    *backends.Set
	caller string
	rec    Recorder
	log    *slog.Logger
	tracer trace.Tracer
}

// addTool registers a typed tool whose handler returns a reply or an adapter
// error. Errors become IsError results; they are never protocol errors.
func addTool[In any](s *mcp.Server, ts *toolset, name, description string, call func(ctx context.Context, in In) (reply, error)) {
	mcp.AddTool(s, &mcp.Tool{Name: name, Description: description},
		func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
			return ts.invoke(ctx, name, req, func(ctx context.Context) (reply, error) {
				return call(ctx, in)
			}), nil, nil
		})
}

func (ts *toolset) invoke(ctx context.Context, name string, req *mcp.CallToolRequest, fn func(context.Context) (reply, error)) *mcp.CallToolResult {
	ctx, span := ts.tracer.Start(ctx, "tool "+name, trace.WithAttributes(
		attribute.String("mcp.tool", name),
		attribute.String("mcp.caller", ts.caller),
	))
	defer span.End()

	inv := &audit.Invocation{
		ID:        uuid.NewString(),
		Caller:    ts.caller,
		Tool:      name,
		StartedAt: time.Now().UTC(),
	}
	if req != nil && req.Params != nil {
		inv.Arguments = req.Params.Arguments
	}

	r, err := fn(ctx)
	inv.Outcome.DurationMS = time.Since(inv.StartedAt).Milliseconds()

	var result *mcp.CallToolResult
	if err != nil {
		result = errorResult(err)
		inv.Outcome.Status = audit.StatusError
		inv.Outcome.Message = err.Error()
		if e, ok := adapter.AsError(err); ok {
			inv.Outcome.ErrorKind = string(e.Kind)
			inv.Outcome.StatusCode = e.StatusCode
			inv.Outcome.Message = e.Message
			inv.Outcome.TraceID = e.TraceID
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, inv.Outcome.ErrorKind)
	} else {
		result = &mcp.CallToolResult{Content: r.content}
		inv.Outcome.Status = audit.StatusOK
		inv.Outcome.ResultKind = r.kind.String()
	}

	if ts.rec != nil {
		// The recorder logs its own storage failures; the tool result stands.
		_ = ts.rec.Record(ctx, inv)
	}
	return result
}
