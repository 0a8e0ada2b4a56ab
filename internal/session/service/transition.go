package service

import (
	"github.com/afyapapo/sessioncore/internal/session/domain"
)

type eventKind int

const (
	evAuthStart eventKind = iota
	evAuthSuccess
	evAuthFailure
	evSessionEnd
	evRefreshStart
	evRefreshDone
	evClearError
)

func (k eventKind) String() string {
	switch k {
	case evAuthStart:
		return "auth_start"
	case evAuthSuccess:
		return "auth_success"
	case evAuthFailure:
		return "auth_failure"
	case evSessionEnd:
		return "session_end"
	case evRefreshStart:
		return "refresh_start"
	case evRefreshDone:
		return "refresh_done"
	case evClearError:
		return "clear_error"
	default:
		return "unknown"
	}
}

type event struct {
	kind eventKind
	user *domain.User
	err  string
}

func unauthenticated() domain.AuthState {
	return domain.AuthState{Phase: domain.PhaseUnauthenticated}
}

// reduce is the session transition function. It is pure: the same state
// and event always produce the same result. changed is false when the event
// does not apply in the current state.
func reduce(st domain.AuthState, ev event, a *AuthorizeService) (domain.AuthState, bool) {
	switch ev.kind {
	case evAuthStart:
		if st.IsAuthenticated {
			return st, false
		}
		return domain.AuthState{Phase: domain.PhaseLoading, IsLoading: true}, true

	case evAuthSuccess:
		if ev.user == nil {
			return st, false
		}
		perms := a.DerivePermissions(ev.user)
		return domain.AuthState{
			Phase:           domain.PhaseAuthenticated,
			User:            ev.user.Clone(),
			IsAuthenticated: true,
			Permissions:     &perms,
		}, true

	case evAuthFailure:
		return domain.AuthState{Phase: domain.PhaseError, Error: ev.err}, true

	case evSessionEnd:
		if st.Phase == domain.PhaseUnauthenticated && st.Error == "" {
			return st, false
		}
		return unauthenticated(), true

	case evRefreshStart:
		if !st.IsAuthenticated || st.Refreshing {
			return st, false
		}
		st.Refreshing = true
		return st, true

	case evRefreshDone:
		if !st.Refreshing {
			return st, false
		}
		st.Refreshing = false
		return st, true

	case evClearError:
		if st.Phase == domain.PhaseError {
			return unauthenticated(), true
		}
		if st.Error == "" {
			return st, false
		}
		st.Error = ""
		return st, true
	}
	return st, false
}
