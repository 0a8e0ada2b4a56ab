package domain

// Phase is the session state machine's current state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAuthenticated
	PhaseUnauthenticated
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// AuthState is an immutable snapshot of the session. Readers get copies;
// only the state machine produces new ones.
//
// IsAuthenticated implies User is set and Error is empty. Permissions is
// nil whenever User is nil.
type AuthState struct {
	Phase           Phase
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	// Refreshing is set while a silent refresh runs on an authenticated
	// session. It never affects IsAuthenticated or IsLoading.
	Refreshing  bool
	Error       string
	Permissions *PermissionSet
	// Version increases by one on every applied transition.
	Version uint64
}

// InitialState is the state before the first startup check. It reports
// loading so guards defer instead of redirecting.
func InitialState() AuthState {
	return AuthState{Phase: PhaseIdle, IsLoading: true}
}

// Clone deep-copies the snapshot.
func (s AuthState) Clone() AuthState {
	c := s
	c.User = s.User.Clone()
	if s.Permissions != nil {
		p := *s.Permissions
		if s.Permissions.Grants != nil {
			p = ExplicitGrants(s.Permissions.Grants)
			p.Source = s.Permissions.Source
		}
		c.Permissions = &p
	}
	return c
}
