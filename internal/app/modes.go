package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// OnceMode performs a single run and returns.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")
	return a.runOnce(ctx, deps)
}

// ScheduleMode runs on the configured cron expression until ctx is
// cancelled. A tick that fires while a run is still going is skipped.
func (a *App) ScheduleMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting schedule mode",
		slog.String("cron", a.cfg.Schedule.Cron),
		slog.String("timezone", deps.Location.String()),
		slog.Bool("run_on_start", a.cfg.Schedule.RunOnStart),
	)

	g, ctx := errgroup.WithContext(ctx)

	cl := cronLogger{logger: a.logger}
	c := cron.New(
		cron.WithLocation(deps.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(a.cfg.Schedule.Cron, func() {
		if err := a.runOnce(ctx, deps); err != nil {
			a.logger.ErrorContext(ctx, "scheduled run failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("app: schedule %q: %w", a.cfg.Schedule.Cron, err)
	}

	if a.cfg.Schedule.RunOnStart {
		g.Go(func() error {
			if err := a.runOnce(ctx, deps); err != nil {
				a.logger.ErrorContext(ctx, "startup run failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if deps.Server != nil {
		g.Go(deps.Server.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return deps.Server.Shutdown(shutdownCtx)
		})
	}

	// Manual runs requested through the API. A nil channel never fires.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-deps.Trigger:
				if err := a.runOnce(ctx, deps); err != nil {
					a.logger.ErrorContext(ctx, "triggered run failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	c.Start()
	g.Go(func() error {
		<-ctx.Done()
		// Wait for a running job to write its partial report.
		<-c.Stop().Done()
		return ctx.Err()
	})

	return g.Wait()
}

// runOnce executes one pipeline run under the process mutex and, when
// Redis is enabled, the distributed run lock. A held lock skips the run.
func (a *App) runOnce(ctx context.Context, deps *Dependencies) error {
	if !a.runMu.TryLock() {
		a.logger.InfoContext(ctx, "run already in progress, skipping")
		return nil
	}
	defer a.runMu.Unlock()

	if timeout := a.cfg.Schedule.RunTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if deps.LockManager != nil {
		key := runLockKey(a.cfg.Odds.Sport)
		unlock, err := deps.LockManager.Acquire(ctx, key, a.cfg.Redis.LockTTL.Duration)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "run lock held elsewhere, skipping", slog.String("lock", key))
			return nil
		}
		if err != nil {
			return fmt.Errorf("app: acquire run lock: %w", err)
		}
		defer unlock()
	}

	report, err := deps.Runner.Run(ctx)
	if err != nil {
		if nerr := deps.Notifier.RunFailed(context.WithoutCancel(ctx), err); nerr != nil {
			a.logger.WarnContext(ctx, "failure notification not delivered", slog.String("error", nerr.Error()))
		}
		return fmt.Errorf("app: run: %w", err)
	}

	a.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", report.RunID),
		slog.String("status", string(report.Status)),
		slog.Int("predicted", report.Stats.Predicted),
		slog.Int("unavailable", report.Stats.Unavailable),
	)
	return nil
}

func runLockKey(sport string) string {
	return "run:" + strings.ToLower(sport)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
