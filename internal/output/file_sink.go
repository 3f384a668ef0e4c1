// Package output writes run reports to the local filesystem.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// Encode renders a report as indented UTF-8 JSON with non-ASCII and HTML
// characters left unescaped.
func Encode(report domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("output: encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// FileSink overwrites a single JSON file per run.
type FileSink struct {
	path string
}

// NewFileSink creates a FileSink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Name implements domain.ReportSink.
func (s *FileSink) Name() string { return "file" }

// Path returns the destination file.
func (s *FileSink) Path() string { return s.path }

// Save writes the report to a temp file in the destination directory and
// renames it into place, so readers never observe a partial document.
func (s *FileSink) Save(_ context.Context, report domain.Report) error {
	data, err := Encode(report)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("output: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("output: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("output: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("output: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("output: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("output: rename into %s: %w", s.path, err)
	}
	return nil
}

// Load reads back the last report written to the file. It returns
// domain.ErrNotFound when no run has written one yet.
func (s *FileSink) Load(_ context.Context) (domain.Report, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, fmt.Errorf("output: read %s: %w", s.path, err)
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.Report{}, fmt.Errorf("output: decode %s: %w", s.path, err)
	}
	return report, nil
}
