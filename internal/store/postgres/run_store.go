package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// RunStore implements domain.RunStore and domain.ReportSink.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Name implements domain.ReportSink.
func (s *RunStore) Name() string { return "postgres" }

// Save implements domain.ReportSink.
func (s *RunStore) Save(ctx context.Context, report domain.Report) error {
	return s.SaveReport(ctx, report)
}

const insertRun = `
	INSERT INTO prediction_runs (
		run_id, generated_at, update_time, status, message, source, model, stats
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO NOTHING`

const insertPrediction = `
	INSERT INTO predictions (
		run_id, position, match, league, home_team, away_team, start_time,
		bookmaker, odds_home, odds_draw, odds_away,
		prediction, confidence, win_probability, predicted_score,
		analysis, key_factors, intel_available, status, failure
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11,
		$12, $13, $14, $15,
		$16, $17, $18, $19, $20
	)
	ON CONFLICT (run_id, position) DO NOTHING`

// SaveReport stores the run row and its predictions in one transaction.
// Saving the same run twice is a no-op.
func (s *RunStore) SaveReport(ctx context.Context, report domain.Report) error {
	stats, err := json.Marshal(report.Stats)
	if err != nil {
		return fmt.Errorf("run_store: marshal stats: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRun,
			report.RunID, report.GeneratedAt, report.UpdateTime, string(report.Status),
			report.Message, report.Source, report.Model, stats,
		); err != nil {
			return fmt.Errorf("run_store: insert run %s: %w", report.RunID, err)
		}

		if len(report.Predictions) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, p := range report.Predictions {
			batch.Queue(insertPrediction, predictionArgs(report.RunID, i, p)...)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range report.Predictions {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("run_store: insert prediction %d of run %s: %w", i, report.RunID, err)
			}
		}
		return br.Close()
	})
}

const listRuns = `
	SELECT run_id::text, generated_at, update_time, status, message, model, stats
	FROM prediction_runs
	ORDER BY generated_at DESC
	LIMIT $1 OFFSET $2`

// ListRuns returns run summaries, newest first.
func (s *RunStore) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.RunSummary, error) {
	rows, err := s.pool.Query(ctx, listRuns, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("run_store: list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("run_store: scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run_store: list runs: %w", err)
	}
	return out, nil
}

const getRun = `
	SELECT run_id::text, generated_at, update_time, status, message, model, stats, source
	FROM prediction_runs
	WHERE run_id = $1`

const getPredictions = `
	SELECT match, league, home_team, away_team, start_time,
	       bookmaker, odds_home, odds_draw, odds_away,
	       prediction, confidence, win_probability, predicted_score,
	       analysis, key_factors, intel_available, status, failure
	FROM predictions
	WHERE run_id = $1
	ORDER BY position`

// GetReport loads a run and its predictions in stored order.
func (s *RunStore) GetReport(ctx context.Context, runID string) (domain.Report, error) {
	var (
		report domain.Report
		status string
		stats  []byte
	)
	err := s.pool.QueryRow(ctx, getRun, runID).Scan(
		&report.RunID, &report.GeneratedAt, &report.UpdateTime, &status,
		&report.Message, &report.Model, &stats, &report.Source,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, fmt.Errorf("run_store: get run %s: %w", runID, err)
	}
	report.Status = domain.ReportStatus(status)
	if err := json.Unmarshal(stats, &report.Stats); err != nil {
		return domain.Report{}, fmt.Errorf("run_store: decode stats of %s: %w", runID, err)
	}

	rows, err := s.pool.Query(ctx, getPredictions, runID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("run_store: get predictions of %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                         domain.Prediction
			outcome, pStatus, failure string
		)
		if err := rows.Scan(
			&p.Match, &p.League, &p.HomeTeam, &p.AwayTeam, &p.StartTime,
			&p.Bookmaker, &p.Odds.HomeWin, &p.Odds.Draw, &p.Odds.AwayWin,
			&outcome, &p.Confidence, &p.WinProbability, &p.PredictedScore,
			&p.Analysis, &p.KeyFactors, &p.IntelAvailable, &pStatus, &failure,
		); err != nil {
			return domain.Report{}, fmt.Errorf("run_store: scan prediction of %s: %w", runID, err)
		}
		p.Prediction = domain.Outcome(outcome)
		p.Status = domain.PredictionStatus(pStatus)
		p.Failure = domain.FailureKind(failure)
		report.Predictions = append(report.Predictions, p)
	}
	if err := rows.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("run_store: get predictions of %s: %w", runID, err)
	}
	return report, nil
}

func scanRun(row pgx.Row) (domain.RunSummary, error) {
	var (
		run    domain.RunSummary
		status string
		stats  []byte
	)
	if err := row.Scan(&run.RunID, &run.GeneratedAt, &run.UpdateTime, &status, &run.Message, &run.Model, &stats); err != nil {
		return domain.RunSummary{}, err
	}
	run.Status = domain.ReportStatus(status)
	if err := json.Unmarshal(stats, &run.Stats); err != nil {
		return domain.RunSummary{}, fmt.Errorf("decode stats: %w", err)
	}
	return run, nil
}

func predictionArgs(runID string, position int, p domain.Prediction) []any {
	factors := p.KeyFactors
	if factors == nil {
		factors = []string{}
	}
	return []any{
		runID, position, p.Match, p.League, p.HomeTeam, p.AwayTeam, p.StartTime,
		p.Bookmaker, p.Odds.HomeWin, p.Odds.Draw, p.Odds.AwayWin,
		string(p.Prediction), p.Confidence, p.WinProbability, p.PredictedScore,
		p.Analysis, factors, p.IntelAvailable, string(p.Status), string(p.Failure),
	}
}

var (
	_ domain.RunStore   = (*RunStore)(nil)
	_ domain.ReportSink = (*RunStore)(nil)
)
