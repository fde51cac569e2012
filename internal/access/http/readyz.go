package http

import (
	"net/http"
	"time"

	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
)

// ReadyzHandler is the readiness probe: 200 only while the database is
// reachable.
func ReadyzHandler(startTime time.Time, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &portalapi.HealthChecks{Database: "ok"}
		status := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, portalapi.HealthResponse{
			Status: status,
			Uptime: time.Since(startTime).String(),
			Checks: checks,
		})
	}
}
