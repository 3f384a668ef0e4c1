package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// Window is a [Min, Max] range a pause is drawn from uniformly.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// JitterPacer sleeps a random duration per stage. Stages without a window,
// or with a zero window, do not sleep.
type JitterPacer struct {
	windows map[domain.Stage]Window
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewJitterPacer creates a JitterPacer.
func NewJitterPacer(windows map[domain.Stage]Window) *JitterPacer {
	return &JitterPacer{windows: windows, sleep: sleepCtx}
}

// Pause implements domain.Pacer.
func (p *JitterPacer) Pause(ctx context.Context, stage domain.Stage) error {
	w, ok := p.windows[stage]
	if !ok {
		return ctx.Err()
	}
	d := w.pick()
	if d <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

func (w Window) pick() time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + rand.N(w.Max-w.Min+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimitedPacer adds a shared sliding-window limit on top of another
// pacer, so several processes pacing the same provider stay under one
// budget. Limiter failures other than cancellation are logged and ignored.
type RateLimitedPacer struct {
	next    domain.Pacer
	limiter domain.RateLimiter
	limits  map[domain.Stage]int
	window  time.Duration
	logger  *slog.Logger
}

// NewRateLimitedPacer wraps next. limits maps a stage to the maximum number
// of calls per window; stages with no positive limit are not throttled.
func NewRateLimitedPacer(next domain.Pacer, limiter domain.RateLimiter, limits map[domain.Stage]int, window time.Duration, logger *slog.Logger) *RateLimitedPacer {
	return &RateLimitedPacer{
		next:    next,
		limiter: limiter,
		limits:  limits,
		window:  window,
		logger:  logger,
	}
}

// Pause implements domain.Pacer.
func (p *RateLimitedPacer) Pause(ctx context.Context, stage domain.Stage) error {
	if err := p.next.Pause(ctx, stage); err != nil {
		return err
	}
	limit := p.limits[stage]
	if limit <= 0 {
		return nil
	}
	err := p.limiter.Wait(ctx, "ratelimit:"+string(stage), limit, p.window)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	p.logger.WarnContext(ctx, "pacer: rate limiter unavailable",
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()),
	)
	return nil
}
