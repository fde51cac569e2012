package http

import (
	"net/http"
	"time"

	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
)

// LivezHandler is the liveness probe: 200 whenever the process is up.
func LivezHandler(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, portalapi.HealthResponse{
			Status: "ok",
			Uptime: time.Since(startTime).String(),
		})
	}
}
