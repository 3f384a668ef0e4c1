package s3blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

type memBlob struct {
	objects map[string]string
	types   map[string]string
	failOn  string
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string]string{}, types: map[string]string{}}
}

func (m *memBlob) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if path == m.failOn {
		return errors.New("access denied")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = string(b)
	m.types[path] = contentType
	return nil
}

func TestReportArchiverKeys(t *testing.T) {
	a := NewReportArchiver(newMemBlob(), "predictions")
	r := domain.Report{RunID: "abc", GeneratedAt: time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("X", -5*3600))}
	if got := a.ReportKey(r); got != "predictions/2026/10/19/abc.json" {
		t.Errorf("ReportKey = %q", got)
	}
	if got := a.LatestKey(); got != "predictions/latest.json" {
		t.Errorf("LatestKey = %q", got)
	}
}

func TestReportArchiverSave(t *testing.T) {
	blob := newMemBlob()
	a := NewReportArchiver(blob, "p")
	r := domain.Report{RunID: "run-1", Status: domain.ReportOK, GeneratedAt: time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)}

	if err := a.Save(context.Background(), r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dated, latest := blob.objects["p/2026/10/18/run-1.json"], blob.objects["p/latest.json"]
	if dated == "" || dated != latest {
		t.Errorf("dated and latest copies should match: %q vs %q", dated, latest)
	}
	if !strings.Contains(dated, `"run_id": "run-1"`) {
		t.Errorf("unexpected body %s", dated)
	}
	if !strings.HasPrefix(blob.types["p/latest.json"], "application/json") {
		t.Errorf("content type = %q", blob.types["p/latest.json"])
	}
}

func TestReportArchiverStopsOnFailure(t *testing.T) {
	blob := newMemBlob()
	blob.failOn = "p/2026/10/18/run-1.json"
	a := NewReportArchiver(blob, "p")
	err := a.Save(context.Background(), domain.Report{RunID: "run-1", GeneratedAt: time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := blob.objects["p/latest.json"]; ok {
		t.Error("latest.json must not advance past a failed dated upload")
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		ssl    bool
		wanted string
	}{
		{"https://s3.example.com", false, "https://s3.example.com"},
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal:9000", true, "https://minio.internal:9000"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.ssl); got != tt.wanted {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.ssl, got, tt.wanted)
		}
	}
}
