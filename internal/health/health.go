// Package health serves liveness and readiness endpoints.
//
//   - /healthz is liveness and always answers 200 with the process uptime.
//   - /readyz runs every registered [Checker] concurrently, each under its own
//     deadline, and answers 200 only when all of them pass.
//
// Readiness bodies look like:
//
//	{"status":"fail","checked_at":"...","checks":{"dataset":{"status":"fail","error":"...","latency_ms":0.1}}}
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single readiness check unless [WithTimeout] says
// otherwise.
const DefaultTimeout = 5 * time.Second

// Checker is one named readiness check. Check returns nil when healthy.
type Checker struct {
	// Name keys the result in the JSON response, e.g. "dataset".
	Name string

	// Check must respect ctx cancellation.
	Check func(ctx context.Context) error
}

type checkResult struct {
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

type result struct {
	Status    string                 `json:"status"`
	CheckedAt time.Time              `json:"checked_at,omitzero"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

// Option configures a [Handler].
type Option func(*Handler)

// WithTimeout sets the per-check deadline. Non-positive values keep
// [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
	now      func() time.Time
	started  time.Time
}

// New returns a Handler evaluating checkers on each /readyz.
func New(checkers []Checker, opts ...Option) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	h.started = h.now()
	return h
}

// Healthz always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{
		Status: "ok",
		Uptime: h.now().Sub(h.started).Truncate(time.Second).String(),
	})
}

// Readyz answers 200 when every checker passes and 503 otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make([]checkResult, len(h.checkers))

	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			results[i] = h.run(r.Context(), c)
			return nil
		})
	}
	_ = g.Wait()

	res := result{
		Status:    "ok",
		CheckedAt: h.now().UTC(),
		Checks:    make(map[string]checkResult, len(h.checkers)),
	}
	status := http.StatusOK
	for i, c := range h.checkers {
		res.Checks[c.Name] = results[i]
		if results[i].Status != "ok" {
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, res)
}

func (h *Handler) run(parent context.Context, c Checker) checkResult {
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	start := h.now()
	err := c.Check(ctx)
	res := checkResult{
		Status:    "ok",
		LatencyMS: float64(h.now().Sub(start).Microseconds()) / 1000,
	}
	if err != nil {
		res.Status = "fail"
		res.Error = err.Error()
	}
	return res
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v before touching the response so an encoding failure
// can still answer 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
