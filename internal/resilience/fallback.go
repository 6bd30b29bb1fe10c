package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every member of a [FallbackGroup] failed or
// had an open breaker.
var ErrAllFailed = errors.New("resilience: all origins failed")

// FallbackConfig configures the breaker created for each member of a
// [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type member[T any] struct {
	value   T
	breaker *CircuitBreaker
}

// MemberStatus is a point-in-time view of one member's breaker.
type MemberStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// FallbackGroup holds a primary and zero or more fallbacks of the same type.
// Members are tried in registration order; members with an open breaker are
// skipped.
//
// Members must be registered before the group is shared between goroutines.
type FallbackGroup[T any] struct {
	members []member[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first member.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a member tried after all earlier ones.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.members = append(fg.members, member[T]{
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of members.
func (fg *FallbackGroup[T]) Len() int { return len(fg.members) }

// Status reports every member's breaker in registration order.
func (fg *FallbackGroup[T]) Status() []MemberStatus {
	out := make([]MemberStatus, 0, len(fg.members))
	for _, m := range fg.members {
		out = append(out, MemberStatus{
			Name:     m.breaker.Name(),
			State:    m.breaker.State().String(),
			Failures: m.breaker.Failures(),
		})
	}
	return out
}

// Available reports whether at least one member would currently be tried.
func (fg *FallbackGroup[T]) Available() bool {
	for _, m := range fg.members {
		if m.breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

// Execute tries fn against each member until one succeeds.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(context.Context, T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return err
}

// ExecuteWithResult tries fn against each member of fg until one succeeds
// and returns its result. If ctx ends during failover, ctx.Err() is returned
// immediately. Otherwise a total failure wraps [ErrAllFailed] together with
// every member's error.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range fg.members {
		m := &fg.members[i]
		var result R
		err := m.breaker.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			result, innerErr = fn(ctx, m.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		name := m.breaker.Name()
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping origin (circuit open)", "origin", name)
		} else {
			slog.Warn("origin failed, trying next", "origin", name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
