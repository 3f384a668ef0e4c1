package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/output"
)

const jsonContentType = "application/json; charset=utf-8"

// ReportArchiver implements domain.ReportSink. Every report is stored under
// a dated key and copied to latest.json so consumers can poll one object.
type ReportArchiver struct {
	blob   domain.BlobWriter
	prefix string
}

// NewReportArchiver creates a ReportArchiver writing under prefix.
func NewReportArchiver(blob domain.BlobWriter, prefix string) *ReportArchiver {
	return &ReportArchiver{blob: blob, prefix: prefix}
}

// Name implements domain.ReportSink.
func (a *ReportArchiver) Name() string { return "s3" }

// ReportKey returns the dated object key for a report:
// <prefix>/YYYY/MM/DD/<run_id>.json.
func (a *ReportArchiver) ReportKey(r domain.Report) string {
	return path.Join(a.prefix, r.GeneratedAt.UTC().Format("2006/01/02"), r.RunID+".json")
}

// LatestKey returns the key of the rolling copy.
func (a *ReportArchiver) LatestKey() string {
	return path.Join(a.prefix, "latest.json")
}

// Save uploads the dated object first, then overwrites latest.json.
func (a *ReportArchiver) Save(ctx context.Context, r domain.Report) error {
	data, err := output.Encode(r)
	if err != nil {
		return err
	}

	for _, key := range []string{a.ReportKey(r), a.LatestKey()} {
		if err := a.blob.Put(ctx, key, bytes.NewReader(data), jsonContentType); err != nil {
			return fmt.Errorf("s3blob: archive report %s: %w", r.RunID, err)
		}
	}
	return nil
}

var _ domain.ReportSink = (*ReportArchiver)(nil)
