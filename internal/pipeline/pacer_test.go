package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

func TestJitterPacerDrawsWithinWindow(t *testing.T) {
	var slept []time.Duration
	p := NewJitterPacer(map[domain.Stage]Window{
		domain.StageSearch: {Min: 1500 * time.Millisecond, Max: 4 * time.Second},
		domain.StageMatch:  {},
	})
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	for i := 0; i < 50; i++ {
		if err := p.Pause(context.Background(), domain.StageSearch); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range slept {
		if d < 1500*time.Millisecond || d > 4*time.Second {
			t.Fatalf("pause %v outside window", d)
		}
	}

	p.Pause(context.Background(), domain.StageMatch)
	p.Pause(context.Background(), domain.StageLLM)
	if len(slept) != 50 {
		t.Errorf("zero and missing windows must not sleep, got %d sleeps", len(slept))
	}
}

func TestJitterPacerHonoursCancel(t *testing.T) {
	p := NewJitterPacer(map[domain.Stage]Window{domain.StageMatch: {Min: time.Hour, Max: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Pause(ctx, domain.StageMatch); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type fakeLimiter struct {
	keys []string
	err  error
}

func (f *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeLimiter) Wait(_ context.Context, key string, _ int, _ time.Duration) error {
	f.keys = append(f.keys, key)
	return f.err
}

func TestRateLimitedPacer(t *testing.T) {
	lim := &fakeLimiter{}
	p := NewRateLimitedPacer(NewJitterPacer(nil), lim, map[domain.Stage]int{domain.StageSearch: 10}, time.Minute, discardLogger())

	p.Pause(context.Background(), domain.StageSearch)
	p.Pause(context.Background(), domain.StageMatch)
	if len(lim.keys) != 1 || lim.keys[0] != "ratelimit:search" {
		t.Errorf("keys = %v", lim.keys)
	}

	lim.err = errors.New("redis down")
	if err := p.Pause(context.Background(), domain.StageSearch); err != nil {
		t.Errorf("limiter outage must not block the run: %v", err)
	}

	lim.err = context.DeadlineExceeded
	if err := p.Pause(context.Background(), domain.StageSearch); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("deadline must propagate, got %v", err)
	}
}
