package http

import (
	"net/http"
	"sort"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/afyapapo/sessioncore/internal/session/service"
	"github.com/afyapapo/sessioncore/pkg/httpx"
	"github.com/afyapapo/sessioncore/pkg/sessionsdk"
)

type SessionHandler struct {
	Session    service.StateSource
	Authorizer *service.AuthorizeService
}

// HandleSnapshot serves the current session state.
func (h *SessionHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.snapshot(h.Session.State()))
}

// HandleCapabilities lists the signed-in user's capability strings.
func (h *SessionHandler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	st := h.Session.State()
	caps := h.Authorizer.Capabilities(st.User)
	if caps == nil {
		caps = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, sessionsdk.CapabilitiesResponse{Capabilities: caps})
}

func (h *SessionHandler) snapshot(st domain.AuthState) sessionsdk.SessionSnapshot {
	out := sessionsdk.SessionSnapshot{
		Phase:           st.Phase.String(),
		IsAuthenticated: st.IsAuthenticated,
		IsLoading:       st.IsLoading,
		Refreshing:      st.Refreshing,
		Error:           st.Error,
		Version:         st.Version,
	}
	if st.User == nil {
		return out
	}

	out.User = &sessionsdk.SessionUser{
		ID:         st.User.ID,
		Username:   st.User.Username,
		FullName:   st.User.FullName,
		UserType:   st.User.UserType.String(),
		RoleName:   h.Authorizer.RoleDisplayName(st.User.UserType),
		Facilities: h.Authorizer.AccessibleFacilities(st.User).Strings(),
	}

	// Grants come from the set resolved at login, not from the user record.
	set := h.Authorizer.DerivePermissions(st.User)
	if st.Permissions != nil {
		set = *st.Permissions
	}
	granted := []string{}
	for _, p := range domain.Permissions {
		if h.Authorizer.Allows(st.User, set, service.Requirement{Permission: p}) {
			granted = append(granted, string(p))
		}
	}
	sort.Strings(granted)

	out.Permissions = &sessionsdk.PermissionsView{Source: set.Source.String(), Granted: granted}
	return out
}
