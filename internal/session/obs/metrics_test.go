package obs_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/obs"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *obs.Metrics
	m.ObserveTransition("authenticated")
	m.ObserveRefresh("success")
	m.ObserveGuard("allow")
	m.ObserveGateway("login", time.Millisecond, nil)
	m.SetBuildInfo("dev")

	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetricsExposition(t *testing.T) {
	m := obs.NewMetrics()
	m.ObserveTransition("authenticated")
	m.ObserveTransition("authenticated")
	m.ObserveRefresh("failure")
	m.ObserveGuard("redirect-unauthorized")
	m.ObserveGateway("refresh", 20*time.Millisecond, errors.New("boom"))

	body := scrape(t, m)

	require.Contains(t, body, `session_transitions_total{to="authenticated"} 2`)
	require.Contains(t, body, `session_refresh_total{result="failure"} 1`)
	require.Contains(t, body, `session_guard_decisions_total{decision="redirect-unauthorized"} 1`)
	require.Contains(t, body, `session_gateway_duration_seconds_count{op="refresh",outcome="error"} 1`)
}

func TestInstrumentCountsRequests(t *testing.T) {
	m := obs.NewMetrics()
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/session", nil))

	require.Contains(t, scrape(t, m), `http_requests_total{method="GET",path="/v1/session",status="403"} 1`)
}

func scrape(t *testing.T, m *obs.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
