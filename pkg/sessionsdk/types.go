package sessionsdk

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	CredentialStore string `json:"credential_store"`
	Session         string `json:"session"`
}

// SessionSnapshot is the public view of the session state. It never
// carries tokens.
type SessionSnapshot struct {
	Phase           string           `json:"phase"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	IsLoading       bool             `json:"isLoading"`
	Refreshing      bool             `json:"refreshing"`
	Error           string           `json:"error,omitempty"`
	Version         uint64           `json:"version"`
	User            *SessionUser     `json:"user,omitempty"`
	Permissions     *PermissionsView `json:"permissions,omitempty"`
}

type SessionUser struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	FullName   string   `json:"fullName,omitempty"`
	UserType   string   `json:"userType"`
	RoleName   string   `json:"roleName"`
	Facilities []string `json:"facilities"`
}

// PermissionsView lists granted permissions and where they come from:
// "explicit" or "role_default".
type PermissionsView struct {
	Source  string   `json:"source"`
	Granted []string `json:"granted"`
}

type CapabilitiesResponse struct {
	Capabilities []string `json:"capabilities"`
}

// ErrorResponse is the JSON body of every error the server writes.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
