package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport wraps failures to reach the provider or decode its reply.
	ErrTransport = errors.New("gateway: transport failure")

	// ErrMissingTokens is returned when a success response lacks tokens.
	ErrMissingTokens = errors.New("gateway: response is missing tokens")
)

// Error is a rejection reported by the identity provider.
type Error struct {
	Op       string
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("gateway: %s rejected", e.Op)
	}
	return fmt.Sprintf("gateway: %s rejected: %s", e.Op, e.Message())
}

// Message joins the provider's messages for display.
func (e *Error) Message() string {
	return strings.Join(e.Messages, ", ")
}

// IsRejection reports whether err is a provider rejection rather than a
// transport failure.
func IsRejection(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr)
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
