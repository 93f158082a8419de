package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Watchdog errors.
var (
	// ErrStepTimeout marks a step that overran its timeout but did return.
	ErrStepTimeout = errors.New("step timed out")
	// ErrStepStalled marks a step that did not return within the grace
	// period after its timeout. The walk cannot continue safely.
	ErrStepStalled = errors.New("step stalled")
)

// Watchdog runs blocking walk steps under a per-step timeout. A step is
// first asked to stop through its context; if it has not returned after the
// grace period it is abandoned and reported as stalled.
type Watchdog struct {
	mu sync.Mutex

	timeout time.Duration
	grace   time.Duration
	logger  *slog.Logger

	stalledCount int
}

// NewWatchdog creates a Watchdog. A zero timeout disables it: steps then run
// with the caller's context only.
func NewWatchdog(timeout, grace time.Duration, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watchdog{timeout: timeout, grace: grace, logger: logger}
}

// StalledCount returns the number of stalls observed.
func (wd *Watchdog) StalledCount() int {
	wd.mu.Lock()
	defer wd.mu.Unlock()

	return wd.stalledCount
}

// Run executes fn and returns its error, ErrStepTimeout or ErrStepStalled.
func (wd *Watchdog) Run(ctx context.Context, step string, fn func(context.Context) error) error {
	if wd == nil || wd.timeout <= 0 {
		return fn(ctx)
	}

	stepCtx, cancel := context.WithTimeout(ctx, wd.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if stepCtx.Err() != nil && ctx.Err() == nil {
			return wd.timeoutError(step, err)
		}

		return err
	case <-stepCtx.Done():
	}

	grace := time.NewTimer(wd.grace)
	defer grace.Stop()

	select {
	case err := <-done:
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return wd.timeoutError(step, err)
	case <-grace.C:
		wd.handleStall(ctx, step)

		return fmt.Errorf("%w: %s did not return within %s", ErrStepStalled, step, wd.timeout+wd.grace)
	}
}

func (wd *Watchdog) timeoutError(step string, err error) error {
	if err == nil {
		err = context.DeadlineExceeded
	}

	return fmt.Errorf("%w: %s after %s: %w", ErrStepTimeout, step, wd.timeout, err)
}

// handleStall records a stall. The step goroutine is abandoned; it exits
// whenever the blocked call returns.
func (wd *Watchdog) handleStall(ctx context.Context, step string) {
	wd.mu.Lock()
	wd.stalledCount++
	count := wd.stalledCount
	wd.mu.Unlock()

	wd.logger.WarnContext(ctx, "walk step stalled",
		slog.String("step", step),
		slog.Int("stall_count", count),
		slog.Duration("timeout", wd.timeout),
		slog.Duration("grace", wd.grace),
	)

	trace.SpanFromContext(ctx).AddEvent("history.step_stalled", trace.WithAttributes(
		attribute.String("step", step),
		attribute.Int("stall_count", count),
	))
}
