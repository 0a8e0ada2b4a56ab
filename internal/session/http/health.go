package http

import (
	"net/http"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/service"
	"github.com/afyapapo/sessioncore/pkg/httpx"
	"github.com/afyapapo/sessioncore/pkg/sessionsdk"
)

// LivezHandler always reports ok while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, sessionsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler reports degraded when the credential store is unreachable.
// A session still running its startup check is reported but does not fail
// readiness.
func ReadyzHandler(startTime time.Time, version string, st Pinger, session service.StateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &sessionsdk.HealthChecks{CredentialStore: "ok", Session: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.CredentialStore = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if session != nil {
			checks.Session = session.State().Phase.String()
		}

		httpx.WriteJSON(w, statusCode, sessionsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
