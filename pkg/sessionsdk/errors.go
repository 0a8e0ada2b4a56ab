package sessionsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes written by the access guard.
const (
	ErrorCodePending         = "session_pending"
	ErrorCodeUnauthenticated = "unauthenticated"
	ErrorCodeForbidden       = "forbidden"
	ErrorCodeServerError     = "server_error"
)

// APIError is a non-2xx response from the status surface.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsPending reports whether err means the session was still loading.
func IsPending(err error) bool { return hasCode(err, ErrorCodePending) }

// IsUnauthenticated reports whether err means nobody is signed in.
func IsUnauthenticated(err error) bool { return hasCode(err, ErrorCodeUnauthenticated) }

// IsForbidden reports whether err means the user lacks a role or permission.
func IsForbidden(err error) bool { return hasCode(err, ErrorCodeForbidden) }

func hasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
