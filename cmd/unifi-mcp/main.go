// unifi-mcp serves the UniFi Site Manager, Network and Protect APIs as MCP
// tools over stdio or streamable HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frousselet/unifi-mcp/pkg/audit"
	"github.com/frousselet/unifi-mcp/pkg/auth"
	"github.com/frousselet/unifi-mcp/pkg/backends"
	"github.com/frousselet/unifi-mcp/pkg/config"
	"github.com/frousselet/unifi-mcp/pkg/httperr"
	umOtel "github.com/frousselet/unifi-mcp/pkg/otel"
	"github.com/frousselet/unifi-mcp/pkg/ratelimit"
	"github.com/frousselet/unifi-mcp/pkg/tools"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	transportStdio = "stdio"
	transportHTTP  = "streamable-http"
)

func main() {
	transport := flag.String("transport", transportStdio, "Transport protocol: stdio or streamable-http")
	host := flag.String("host", "0.0.0.0", "Host to bind to for the HTTP transport")
	port := flag.Int("port", 8000, "Port for the HTTP transport")
	flag.Parse()

	// stdout belongs to the MCP stream in stdio mode.
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if *transport != transportStdio && *transport != transportHTTP {
		log.Error("unsupported transport", "transport", *transport)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── OpenTelemetry ────────────────────────────────────────────────────
	otelShutdown, err := umOtel.Setup(ctx, umOtel.ConfigFromEnv(version))
	if err != nil {
		log.Error("otel setup failed", "error", err)
	} else {
		defer otelShutdown(context.Background()) //nolint:errcheck // best-effort shutdown
	}

	// ── Backends ─────────────────────────────────────────────────────────
	set, err := backends.New(backends.Options{Logger: log})
	if err != nil {
		log.Error("backend configuration failed", "error", err)
		os.Exit(1)
	}
	defer set.Close()

	// ── Audit ────────────────────────────────────────────────────────────
	var store *audit.Store
	if dsn := os.Getenv("AUDIT_DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			log.Error("audit database connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = audit.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			log.Error("audit migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("audit trail enabled")
	}
	opts := tools.Options{
		Version:  version,
		Logger:   log,
		Recorder: audit.NewRecorder(log, store),
	}

	switch *transport {
	case transportStdio:
		server := tools.New(set, auth.Anonymous, opts)
		log.Info("unifi-mcp starting", "transport", transportStdio, "version", version)
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("stdio server error", "error", err)
		}
	case transportHTTP:
		addr := net.JoinHostPort(*host, strconv.Itoa(*port))
		if err := serveHTTP(ctx, log, addr, set, store, opts); err != nil {
			log.Error("http server error", "error", err)
		}
	}
	log.Info("unifi-mcp stopped")
}

// ──────────────────────────────────────────────────────────────────────────────
// Streamable HTTP
// ──────────────────────────────────────────────────────────────────────────────

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	log     *slog.Logger
	mcp     http.Handler
	keys    *auth.KeyStore
	limiter *ratelimit.Limiter
	set     *backends.Set
	store   pinger
}

func serveHTTP(ctx context.Context, log *slog.Logger, addr string, set *backends.Set, store *audit.Store, opts tools.Options) error {
	keys := auth.NewKeyStore(os.Getenv("MCP_HTTP_API_KEYS"))
	if keys.Len() == 0 {
		log.Warn("MCP_HTTP_API_KEYS not set, HTTP transport is unauthenticated")
	}

	servers := tools.NewServers(set, opts)
	deps := routerDeps{
		log:     log,
		mcp:     mcp.NewStreamableHTTPHandler(servers.ForRequest, nil),
		keys:    keys,
		limiter: ratelimit.New(config.EnvOrInt("RATE_LIMIT_PER_CLIENT", 20), ratelimit.DefaultMaxKeys),
		set:     set,
	}
	if store != nil {
		deps.store = store
	}

	// ── Metrics (internal) ───────────────────────────────────────────────
	metricsAddr := config.EnvOr("METRICS_ADDR", "127.0.0.1:9090")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	go func() {
		log.Info("metrics server starting", "addr", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	// ── Server ───────────────────────────────────────────────────────────
	// No WriteTimeout: MCP sessions hold event streams open.
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deps),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("unifi-mcp starting", "transport", transportHTTP, "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	log.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := metricsSrv.Shutdown(shutCtx); err != nil {
		log.Error("metrics server shutdown error", "error", err)
	}
	return serveErr
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.keys != nil && d.keys.Len() > 0 {
		r.Use(auth.APIKeyAuth(d.keys))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.store != nil {
			if err := d.store.Ping(r.Context()); err != nil {
				d.log.WarnContext(r.Context(), "readiness check failed", "error", err)
				httperr.NotReady(map[string]string{"audit": "database unreachable"}).WriteJSON(w)
				return
			}
		}
		var names []string
		for _, ex := range d.set.Executors() {
			names = append(names, ex.Name())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "backends": names})
	})

	r.Group(func(r chi.Router) {
		if d.limiter != nil {
			r.Use(d.limiter.Middleware(ratelimit.CallerOrIP))
		}
		r.Handle("/mcp", d.mcp)
	})
	return r
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-transport stdio|streamable-http] [-host addr] [-port n]\n", os.Args[0])
		flag.PrintDefaults()
	}
}
