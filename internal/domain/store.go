package domain

import (
	"context"
	"time"
)

// ListOpts controls pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// RunSummary is the run-level row of a stored report, without predictions.
type RunSummary struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	UpdateTime  string       `json:"update_time"`
	Status      ReportStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	Model       string       `json:"model"`
	Stats       RunStats     `json:"stats"`
}

// RunStore persists finished run reports and their prediction records.
type RunStore interface {
	SaveReport(ctx context.Context, report Report) error
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, opts ListOpts) ([]RunSummary, error)
	// GetReport rebuilds a stored report. It returns ErrNotFound for an
	// unknown run id.
	GetReport(ctx context.Context, runID string) (Report, error)
}
