// Package pipeline drives one prediction run: fetch, filter, cap, then per
// match gather intel, predict and pace, and finally hand the report to the
// configured sinks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/league"
)

const (
	// MessageNoMatches is the report message when the odds fetch yields
	// nothing usable.
	MessageNoMatches = "No matches found today."
	// MessageNoLeagueMatches is the report message when the whitelist
	// retains nothing.
	MessageNoLeagueMatches = "No matches found in the configured leagues."
)

// MatchFetcher returns the normalized matches of one odds request.
type MatchFetcher interface {
	FetchMatches(ctx context.Context) domain.FetchResult
}

// IntelGatherer returns intel text for a match; it never fails.
type IntelGatherer interface {
	Gather(ctx context.Context, m domain.Match) domain.Intel
}

// Predictor returns a prediction record, or its sentinel, for a match.
type Predictor interface {
	Predict(ctx context.Context, m domain.Match, intel domain.Intel) domain.Prediction
}

// RunnerConfig holds the run-shaping settings.
type RunnerConfig struct {
	Leagues         []string
	PriorityLeagues []string
	MaxMatches      int
	// Source labels the odds provider in the report's source field.
	Source   string
	Model    string
	Location *time.Location
}

// Runner executes runs. It is not safe for concurrent use; the scheduler
// never overlaps runs.
type Runner struct {
	fetcher   MatchFetcher
	intel     IntelGatherer
	predictor Predictor
	pacer     domain.Pacer
	filter    *league.Filter
	primary   domain.ReportSink
	extras    []domain.ReportSink
	cfg       RunnerConfig
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner. primary must succeed for a run to succeed;
// extras are best effort.
func NewRunner(
	fetcher MatchFetcher,
	intel IntelGatherer,
	predictor Predictor,
	pacer domain.Pacer,
	primary domain.ReportSink,
	extras []domain.ReportSink,
	cfg RunnerConfig,
	logger *slog.Logger,
) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Runner{
		fetcher:   fetcher,
		intel:     intel,
		predictor: predictor,
		pacer:     pacer,
		filter:    league.NewFilter(cfg.Leagues),
		primary:   primary,
		extras:    extras,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Run performs a single run and returns the report it wrote. The only error
// is a failure of the primary sink; every provider failure is folded into
// the report.
func (r *Runner) Run(ctx context.Context) (domain.Report, error) {
	now := r.now().In(r.cfg.Location)
	report := domain.Report{
		RunID:       r.newID(),
		UpdateTime:  now.Format(domain.UpdateTimeLayout),
		Status:      domain.ReportOK,
		Source:      r.cfg.Source + " + " + r.cfg.Model,
		Model:       r.cfg.Model,
		GeneratedAt: now,
	}
	logger := r.logger.With(slog.String("run_id", report.RunID))
	logger.InfoContext(ctx, "pipeline: run started")

	fetched := r.fetcher.FetchMatches(ctx)
	report.Stats.Fetched = fetched.Received
	report.Stats.Discarded = fetched.Discarded

	if len(fetched.Matches) == 0 {
		logger.WarnContext(ctx, "pipeline: no matches fetched",
			slog.String("failure", string(fetched.Failure)),
		)
		report.Status = domain.ReportNoMatches
		report.Message = MessageNoMatches
		return report, r.save(ctx, logger, report)
	}

	filtered := r.filter.Apply(fetched.Matches)
	report.Stats.FilteredIn = len(filtered)
	logger.InfoContext(ctx, "pipeline: filtered",
		slog.Int("usable", len(fetched.Matches)),
		slog.Int("retained", len(filtered)),
	)
	if len(filtered) == 0 {
		report.Status = domain.ReportNoMatches
		report.Message = MessageNoLeagueMatches
		return report, r.save(ctx, logger, report)
	}

	selected := league.Cap(league.PriorityFirst(filtered, r.cfg.PriorityLeagues), r.cfg.MaxMatches)

	report.Predictions = make([]domain.Prediction, 0, len(selected))
	for i, m := range selected {
		if ctx.Err() != nil {
			logger.WarnContext(ctx, "pipeline: run interrupted, writing partial report",
				slog.Int("processed", i),
				slog.Int("selected", len(selected)),
			)
			break
		}

		logger.InfoContext(ctx, "pipeline: processing match",
			slog.Int("index", i+1),
			slog.Int("of", len(selected)),
			slog.String("match", m.Title()),
			slog.String("league", m.League),
		)

		intel := r.intel.Gather(ctx, m)
		if intel.Available() {
			report.Stats.IntelHits++
		}

		p := r.predictor.Predict(ctx, m, intel)
		report.Predictions = append(report.Predictions, p)
		report.Stats.Processed++
		if p.Status == domain.PredictionOK {
			report.Stats.Predicted++
		} else {
			report.Stats.Unavailable++
		}

		if i < len(selected)-1 {
			if err := r.pacer.Pause(ctx, domain.StageMatch); err != nil {
				logger.DebugContext(ctx, "pipeline: pause interrupted", slog.String("error", err.Error()))
			}
		}
	}

	return report, r.save(ctx, logger, report)
}

// save writes the report to the primary sink, then to each extra sink. It
// detaches from ctx cancellation so an interrupted run still leaves a file.
func (r *Runner) save(ctx context.Context, logger *slog.Logger, report domain.Report) error {
	ctx = context.WithoutCancel(ctx)

	if err := r.primary.Save(ctx, report); err != nil {
		logger.ErrorContext(ctx, "pipeline: primary sink failed",
			slog.String("sink", r.primary.Name()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("pipeline: save report to %s: %w", r.primary.Name(), err)
	}
	logger.InfoContext(ctx, "pipeline: report written",
		slog.String("sink", r.primary.Name()),
		slog.String("status", string(report.Status)),
		slog.Int("predictions", len(report.Predictions)),
		slog.Int("predicted", report.Stats.Predicted),
		slog.Int("unavailable", report.Stats.Unavailable),
	)

	for _, sink := range r.extras {
		if err := sink.Save(ctx, report); err != nil {
			logger.WarnContext(ctx, "pipeline: sink failed",
				slog.String("sink", sink.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		logger.DebugContext(ctx, "pipeline: sink done", slog.String("sink", sink.Name()))
	}
	return nil
}
