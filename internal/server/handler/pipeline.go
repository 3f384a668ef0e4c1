package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// PipelineHandler serves the manual run trigger.
type PipelineHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{}
}

// NewPipelineHandler creates a PipelineHandler that signals on triggerCh.
// The scheduler must receive from the channel to start a run.
func NewPipelineHandler(triggerCh chan<- struct{}, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{triggerCh: triggerCh, logger: logger}
}

// TriggerRun requests one run outside the schedule. A request made while
// another is still pending is coalesced with it.
// POST /api/pipeline/trigger
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	queued := true
	select {
	case h.triggerCh <- struct{}{}:
	default:
		queued = false
	}
	h.logger.InfoContext(r.Context(), "handler: run trigger requested", slog.Bool("queued", queued))

	msg := "run queued"
	if !queued {
		msg = "a run is already pending"
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      msg,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
