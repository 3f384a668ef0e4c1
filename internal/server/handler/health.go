package handler

import (
	"net/http"
	"time"
)

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
