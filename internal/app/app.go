// Package app wires the catalog subsystems into a running HTTP service.
//
// New builds the fetcher, loader, browse sessions, health checks and API
// routes from a [config.Config]. Run serves until its context ends and
// Shutdown drains in-flight requests and stops background work.
//
// For testing, inject doubles via functional options ([WithGetter],
// [WithMetrics], [WithHTTPClient]).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/suminhong/diribon2gg/internal/api"
	"github.com/suminhong/diribon2gg/internal/browse"
	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/internal/config"
	"github.com/suminhong/diribon2gg/internal/health"
	"github.com/suminhong/diribon2gg/internal/observe"
	"github.com/suminhong/diribon2gg/internal/resilience"
	"github.com/suminhong/diribon2gg/internal/slug"
	"github.com/suminhong/diribon2gg/internal/source"
	"github.com/suminhong/diribon2gg/internal/suggest"
)

const (
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 10 * time.Second

	// fallbackWarmTimeout bounds the startup fetch cycle when source.timeout
	// is unset.
	fallbackWarmTimeout = 30 * time.Second

	// minWarmRetry is the shortest gap between background warm-up attempts.
	minWarmRetry = time.Second
)

// App owns the service's subsystems.
type App struct {
	cfg *config.Config

	getter   source.Getter
	fetcher  *source.Fetcher
	client   *http.Client
	metrics  *observe.Metrics
	tracker  *health.LoadTracker
	loader   *trackedLoader
	sessions *browse.Sessions
	handler  http.Handler
	server   *http.Server

	links   atomic.Pointer[slug.Links]
	matcher atomic.Pointer[suggest.Matcher]

	// closers are called in order during Shutdown.
	closers []func() error

	// background is cancelled by Shutdown and stops warm-up retries.
	background       context.Context
	cancelBackground context.CancelFunc

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithGetter replaces the HTTP fetcher with g. The origins readiness check is
// skipped since g has no circuit state.
func WithGetter(g source.Getter) Option {
	return func(a *App) { a.getter = g }
}

// WithMetrics records into m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithHTTPClient sets the client used to reach the dataset origins. The
// default traces every request with otelhttp.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.client = c }
}

// New builds an App from cfg. It does not fetch anything; [App.Serve] runs
// the first fetch cycle before accepting connections.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.Apply(cfg)

	if a.getter == nil {
		if err := a.initFetcher(); err != nil {
			return nil, fmt.Errorf("app: init fetcher: %w", err)
		}
	}

	a.tracker = health.NewLoadTracker()
	loader := &trackedLoader{
		next:    source.NewLoader(a.getter, source.WithLoaderMetrics(a.metrics)),
		tracker: a.tracker,
	}
	a.loader = loader

	a.background, a.cancelBackground = context.WithCancel(context.Background())
	a.closers = append(a.closers, func() error {
		a.cancelBackground()
		return nil
	})

	a.sessions = browse.NewSessions(browse.Config{
		Loader:  loader,
		Links:   func() slug.Links { return *a.links.Load() },
		Metrics: a.metrics,
	}, browse.WithSessionTTL(cfg.Sessions.TTL))
	a.closers = append(a.closers, func() error {
		a.sessions.Stop()
		return nil
	})

	checkers := []health.Checker{a.tracker.Checker()}
	if a.fetcher != nil {
		checkers = append(checkers, health.Origins(a.fetcher))
	}

	mux := http.NewServeMux()
	health.New(checkers, health.WithTimeout(cfg.Server.ReadinessTimeout)).Register(mux)
	api.New(api.Config{
		Sessions:  a.sessions,
		Loader:    loader,
		Suggester: a.matcher.Load,
	}).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.handler = observe.Middleware(a.metrics)(mux)
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return a, nil
}

func (a *App) initFetcher() error {
	client := a.client
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	f, err := source.NewFetcher(
		source.Origins(a.cfg.Source.BaseURL, a.cfg.Source.Mirrors),
		source.WithHTTPClient(client),
		source.WithTimeout(a.cfg.Source.Timeout),
		source.WithBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  a.cfg.Source.MaxFailures,
			ResetTimeout: a.cfg.Source.ResetTimeout,
		}),
		source.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.fetcher = f
	a.getter = f
	return nil
}

// Handler returns the instrumented root handler.
func (a *App) Handler() http.Handler { return a.handler }

// Apply installs the parts of cfg that can change without a restart: link
// templates and suggestion tuning.
func (a *App) Apply(cfg *config.Config) {
	a.links.Store(&slug.Links{
		ImageURL:        cfg.Links.ImageURL,
		ReferenceURL:    cfg.Links.ReferenceURL,
		EggReferenceURL: cfg.Links.EggReferenceURL,
		EggStage:        cfg.Links.EggStage,
	})
	a.matcher.Store(suggest.New(
		suggest.WithPhoneticThreshold(cfg.Suggest.PhoneticThreshold),
		suggest.WithFuzzyThreshold(cfg.Suggest.FuzzyThreshold),
		suggest.WithLimit(cfg.Suggest.MaxResults),
	))
}

// Run serves HTTP on the configured address and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is [App.Run] on an existing listener. It runs one fetch cycle before
// serving so /readyz reflects the dataset without waiting for client traffic.
// A failed warm-up does not stop the server; it is retried in the background
// until a fetch cycle succeeds.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Warm(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		go a.retryWarm(ctx)
	}
	a.sessions.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Warm runs one full fetch cycle and records it for readiness.
func (a *App) Warm(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.warmTimeout())
	defer cancel()

	start := time.Now()
	snap, err := a.loader.LoadAll(ctx)
	if err != nil {
		slog.Warn("dataset warm-up failed", "err", err)
		return err
	}
	slog.Info("dataset warm-up complete",
		"digimons", snap.Store.Len(catalog.TableDigimons),
		"evolutions", len(snap.Edges),
		"took", time.Since(start),
	)
	return nil
}

// warmTimeout allows every origin its full per-request timeout.
func (a *App) warmTimeout() time.Duration {
	if a.cfg.Source.Timeout <= 0 {
		return fallbackWarmTimeout
	}
	return a.cfg.Source.Timeout * time.Duration(1+len(a.cfg.Source.Mirrors))
}

// retryWarm repeats [App.Warm] every reset_timeout until the dataset has
// loaded once, by warm-up or by client traffic.
func (a *App) retryWarm(ctx context.Context) {
	interval := max(a.cfg.Source.ResetTimeout, minWarmRetry)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.background.Done():
			return
		case <-t.C:
			if !a.tracker.LastSuccess().IsZero() {
				return
			}
			if a.Warm(ctx) == nil {
				return
			}
		}
	}
}

// Shutdown stops accepting connections, waits for in-flight requests until
// ctx expires, then runs the remaining closers.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// trackedLoader reports every fetch cycle to the readiness tracker.
type trackedLoader struct {
	next    *source.Loader
	tracker *health.LoadTracker
}

func (l *trackedLoader) LoadCatalog(ctx context.Context) (*catalog.Snapshot, error) {
	s, err := l.next.LoadCatalog(ctx)
	l.tracker.Observe(err)
	return s, err
}

func (l *trackedLoader) LoadAll(ctx context.Context) (*catalog.Snapshot, error) {
	s, err := l.next.LoadAll(ctx)
	l.tracker.Observe(err)
	return s, err
}
