package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/suminhong/diribon2gg/internal/resilience"
)

// ErrNeverLoaded is reported by [LoadTracker] before the first successful
// fetch cycle.
var ErrNeverLoaded = errors.New("dataset has not been loaded yet")

// LoadTracker remembers the outcome of dataset fetch cycles. It is safe for
// concurrent use.
type LoadTracker struct {
	now func() time.Time

	mu      sync.Mutex
	lastOK  time.Time
	lastErr error
}

// NewLoadTracker returns a tracker that has seen no loads.
func NewLoadTracker() *LoadTracker {
	return &LoadTracker{now: time.Now}
}

// Observe records the outcome of one fetch cycle. Context cancellation says
// nothing about the dataset and is ignored.
func (t *LoadTracker) Observe(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lastErr = err
		return
	}
	t.lastOK = t.now()
	t.lastErr = nil
}

// LastSuccess returns when the dataset last loaded, or the zero time.
func (t *LoadTracker) LastSuccess() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastOK
}

// Checker reports "dataset": failing until a load has succeeded and while
// the most recent load failed.
func (t *LoadTracker) Checker() Checker {
	return Checker{
		Name: "dataset",
		Check: func(context.Context) error {
			t.mu.Lock()
			defer t.mu.Unlock()
			switch {
			case t.lastErr != nil:
				return t.lastErr
			case t.lastOK.IsZero():
				return ErrNeverLoaded
			}
			return nil
		},
	}
}

// OriginPool is what [Origins] inspects. [source.Fetcher] implements it.
type OriginPool interface {
	Available() bool
	Origins() []resilience.MemberStatus
}

// Origins reports "origins": failing when every origin's circuit is open.
func Origins(pool OriginPool) Checker {
	return Checker{
		Name: "origins",
		Check: func(context.Context) error {
			if pool.Available() {
				return nil
			}
			var b strings.Builder
			for i, s := range pool.Origins() {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s=%s", s.Name, s.State)
			}
			return fmt.Errorf("every origin circuit is open (%s)", b.String())
		},
	}
}
