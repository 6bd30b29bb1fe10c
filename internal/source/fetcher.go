// Package source downloads the published dataset files.
//
// A [Fetcher] retrieves one file by name from an ordered list of [Origin]s,
// failing over to mirrors through per-origin circuit breakers. A [Loader]
// fans the individual downloads out concurrently and assembles a
// [catalog.Snapshot] only once every file has arrived and parsed.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/suminhong/diribon2gg/internal/observe"
	"github.com/suminhong/diribon2gg/internal/resilience"
)

// ErrUnavailable is returned when no origin could deliver a file.
var ErrUnavailable = errors.New("source: dataset unavailable")

// maxFileSize bounds a single downloaded file. The largest published table
// is well under 1 MiB.
const maxFileSize = 16 << 20

// Origin is one place the dataset is published.
type Origin struct {
	Name    string
	BaseURL string
}

// Origins names base "primary" and each mirror "mirror-N" (1-based), in
// failover order.
func Origins(base string, mirrors []string) []Origin {
	out := make([]Origin, 0, 1+len(mirrors))
	out = append(out, Origin{Name: "primary", BaseURL: base})
	for i, m := range mirrors {
		out = append(out, Origin{Name: "mirror-" + strconv.Itoa(i+1), BaseURL: m})
	}
	return out
}

// Getter retrieves a dataset file by name.
type Getter interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// StatusError reports a non-2xx response from an origin.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Option configures a [Fetcher].
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds each individual origin request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithBreaker configures the per-origin circuit breakers.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(f *Fetcher) { f.breaker = cfg }
}

// WithMetrics records fetch instruments into m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// Fetcher downloads dataset files with origin failover. It is safe for
// concurrent use.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	breaker resilience.CircuitBreakerConfig
	metrics *observe.Metrics
	origins *resilience.FallbackGroup[Origin]
}

// NewFetcher returns a Fetcher trying origins in order. At least one origin
// is required and every base URL must be absolute.
func NewFetcher(origins []Origin, opts ...Option) (*Fetcher, error) {
	if len(origins) == 0 {
		return nil, errors.New("source: at least one origin is required")
	}
	for _, o := range origins {
		u, err := url.Parse(o.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("source: origin %q: %w", o.Name, err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("source: origin %q: base URL %q is not absolute", o.Name, o.BaseURL)
		}
	}

	f := &Fetcher{client: http.DefaultClient}
	for _, o := range opts {
		o(f)
	}
	if f.metrics == nil {
		f.metrics = observe.DefaultMetrics()
	}

	f.origins = resilience.NewFallbackGroup(origins[0], origins[0].Name,
		resilience.FallbackConfig{CircuitBreaker: f.breaker})
	for _, o := range origins[1:] {
		f.origins.AddFallback(o.Name, o)
	}
	return f, nil
}

// Fetch returns the body of the named file from the first origin that serves
// it. When every origin fails the error wraps [ErrUnavailable] and each
// origin's cause. A cancelled ctx yields ctx.Err() unwrapped.
func (f *Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	ctx, span := observe.StartSpan(ctx, "source.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("dataset.file", name))

	body, err := resilience.ExecuteWithResult(ctx, f.origins, func(ctx context.Context, o Origin) ([]byte, error) {
		return f.fetchFrom(ctx, o, name)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
	}
	span.SetAttributes(attribute.Int("dataset.bytes", len(body)))
	return body, nil
}

// Origins reports the circuit state of every origin.
func (f *Fetcher) Origins() []resilience.MemberStatus {
	return f.origins.Status()
}

// Available reports whether any origin would currently be tried.
func (f *Fetcher) Available() bool {
	return f.origins.Available()
}

func (f *Fetcher) fetchFrom(ctx context.Context, o Origin, name string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if ctx.Err() == nil {
			f.metrics.RecordFetch(ctx, o.Name, name, time.Since(start), err)
		}
	}()

	target, err := url.JoinPath(o.BaseURL, name)
	if err != nil {
		return nil, fmt.Errorf("build URL: %w", err)
	}
	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if len(body) > maxFileSize {
		return nil, fmt.Errorf("read %s: body exceeds %d bytes", target, maxFileSize)
	}
	return body, nil
}
