// Package backends owns the adapters a serving process talks to. The Site
// Manager adapter is mandatory; the two console adapters exist only when
// their host is configured.
package backends

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
	"github.com/frousselet/unifi-mcp/pkg/fleet"
	"github.com/frousselet/unifi-mcp/pkg/network"
	"github.com/frousselet/unifi-mcp/pkg/protect"
)

// Options carries explicit construction parameters; anything left empty is
// resolved from the environment by each adapter.
type Options struct {
	Fleet   fleet.Config
	Network network.Config
	Protect protect.Config
	Logger  *slog.Logger
}

// Set is built once when serving starts and closed once when it stops.
type Set struct {
	fleet   *fleet.Client
	network *network.Client
	protect *protect.Client
	log     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New constructs every configured adapter. Configuration problems surface
// here, before any request is made.
func New(opts Options) (*Set, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Fleet.Logger == nil {
		opts.Fleet.Logger = log
	}
	if opts.Network.Logger == nil {
		opts.Network.Logger = log
	}
	if opts.Protect.Logger == nil {
		opts.Protect.Logger = log
	}

	s := &Set{log: log}

	fc, err := fleet.New(opts.Fleet)
	if err != nil {
		return nil, fmt.Errorf("site manager adapter: %w", err)
	}
	s.fleet = fc

	if consoleRequested(opts.Network.Host, opts.Network.BaseURL, network.EnvHost) {
		nc, err := network.New(opts.Network)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("network adapter: %w", err)
		}
		s.network = nc
	} else {
		log.Info("network adapter not configured", "missing", network.EnvHost)
	}

	if consoleRequested(opts.Protect.Host, opts.Protect.BaseURL, protect.EnvHost) {
		pc, err := protect.New(opts.Protect)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("protect adapter: %w", err)
		}
		s.protect = pc
	} else {
		log.Info("protect adapter not configured", "missing", protect.EnvHost)
	}

	return s, nil
}

func consoleRequested(host, baseURL, envHost string) bool {
	return host != "" || baseURL != "" || os.Getenv(envHost) != ""
}

// Fleet returns the Site Manager adapter, which is always present.
func (s *Set) Fleet() *fleet.Client { return s.fleet }

// Network returns the console network adapter or the not-configured error.
func (s *Set) Network() (*network.Client, error) {
	if s.network == nil {
		return nil, adapter.ErrNotConfigured(network.Backend, network.EnvHost)
	}
	return s.network, nil
}

// Protect returns the console protect adapter or the not-configured error.
func (s *Set) Protect() (*protect.Client, error) {
	if s.protect == nil {
		return nil, adapter.ErrNotConfigured(protect.Backend, protect.EnvHost)
	}
	return s.protect, nil
}

// Executors lists the adapters that were constructed.
func (s *Set) Executors() []adapter.Executor {
	var out []adapter.Executor
	if s.fleet != nil {
		out = append(out, s.fleet)
	}
	if s.network != nil {
		out = append(out, s.network)
	}
	if s.protect != nil {
		out = append(out, s.protect)
	}
	return out
}

// Close releases every adapter exactly once, waiting for in-flight calls.
// Later calls return the first result.
func (s *Set) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for _, ex := range s.Executors() {
			if err := ex.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", ex.Name(), err))
			}
		}
		s.closeErr = errors.Join(errs...)
		s.log.Info("api clients closed")
	})
	return s.closeErr
}
