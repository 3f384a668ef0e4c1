package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// LatestReader returns the report of the most recent run.
type LatestReader interface {
	Load(ctx context.Context) (domain.Report, error)
}

// ReportHandler serves run reports: the latest from the result file and
// older ones from the run history when Postgres is enabled.
type ReportHandler struct {
	latest  LatestReader
	history domain.RunStore
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler. history may be nil.
func NewReportHandler(latest LatestReader, history domain.RunStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		latest:  latest,
		history: history,
		logger:  logger,
	}
}

// listRunsResponse wraps the list endpoint output with metadata.
type listRunsResponse struct {
	Runs   []domain.RunSummary `json:"runs"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Latest returns the last written report.
// GET /api/reports/latest
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.latest.Load(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no report written yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: load latest report failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListRuns returns stored runs with pagination.
// GET /api/reports?limit=20&offset=0
func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	opts := parseListOpts(r)

	runs, err := h.history.ListRuns(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}

	writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetReport returns one stored report by run id.
// GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	report, err := h.history.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get report failed",
			slog.String("run_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
