package handler

import (
	"net/http"
)

// StatusHandler serves the static run configuration.
type StatusHandler struct {
	Mode     string
	Cron     string
	Timezone string
	Sport    string
	Model    string
}

// GetStatus responds with the schedule and provider settings.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":     h.Mode,
		"cron":     h.Cron,
		"timezone": h.Timezone,
		"sport":    h.Sport,
		"model":    h.Model,
	})
}
