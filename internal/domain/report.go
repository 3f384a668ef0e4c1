package domain

import (
	"context"
	"time"
)

// ReportStatus is the top-level status of a run report.
type ReportStatus string

const (
	ReportOK        ReportStatus = "ok"
	ReportNoMatches ReportStatus = "no_matches"
)

// UpdateTimeLayout is the layout of Report.UpdateTime.
const UpdateTimeLayout = "2006-01-02 15:04:05"

// RunStats counts what happened to matches at each stage of a run.
type RunStats struct {
	Fetched     int `json:"fetched"`
	Discarded   int `json:"discarded"`
	FilteredIn  int `json:"filtered_in"`
	Processed   int `json:"processed"`
	Predicted   int `json:"predicted"`
	Unavailable int `json:"unavailable"`
	IntelHits   int `json:"intel_hits"`
}

// Report is the single document written at the end of a run. A run that
// found nothing to predict carries Status no_matches, a Message and no
// predictions.
type Report struct {
	RunID       string       `json:"run_id"`
	UpdateTime  string       `json:"update_time"`
	Status      ReportStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	Source      string       `json:"source"`
	Model       string       `json:"model"`
	Stats       RunStats     `json:"stats"`
	Predictions []Prediction `json:"predictions,omitempty"`

	GeneratedAt time.Time `json:"-"`
}

// ReportSink persists a finished report somewhere.
type ReportSink interface {
	Save(ctx context.Context, report Report) error
	Name() string
}
