package sessionsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, status int, body string) *SDKClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewSDKClient(srv.URL + "/")
}

func TestGetSession(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"phase":"authenticated","isAuthenticated":true,"version":3,
		"user":{"id":"u1","username":"amina","userType":"HOSPITAL_ADMIN","roleName":"Hospital Administrator","facilities":["f1"]},
		"permissions":{"source":"explicit","granted":["canManageBeds"]}}`)

	snap, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, uint64(3), snap.Version)
	require.Equal(t, []string{"f1"}, snap.User.Facilities)
	require.Equal(t, "explicit", snap.Permissions.Source)
}

func TestGuardErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     func(error) bool
	}{
		{"pending", http.StatusServiceUnavailable, `{"error":"session_pending","error_description":"session check in progress"}`, IsPending},
		{"unauthenticated", http.StatusUnauthorized, `{"error":"unauthenticated"}`, IsUnauthenticated},
		{"forbidden", http.StatusForbidden, `{"error":"forbidden"}`, IsForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.status, tt.body)
			_, err := c.GetCapabilities(context.Background())
			require.Error(t, err)
			require.True(t, tt.is(err))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestUnstructuredError(t *testing.T) {
	c := newTestClient(t, http.StatusBadGateway, `upstream down`)

	_, err := c.GetLiveness(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
	require.Equal(t, "502 server_error: HTTP 502: Bad Gateway", apiErr.Error())
	require.False(t, IsPending(err))
}
