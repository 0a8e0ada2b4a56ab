package domain

// Role is a coarse identity category. Roles are ordered by the RBAC policy,
// not by their string value.
type Role string

const (
	RoleCitizen       Role = "CITIZEN"
	RoleResponder     Role = "RESPONDER"
	RoleDispatcher    Role = "DISPATCHER"
	RoleHospitalAdmin Role = "HOSPITAL_ADMIN"
	RoleSystemAdmin   Role = "SYSTEM_ADMIN"
)

// Roles lists every known role, lowest privilege first.
var Roles = []Role{RoleCitizen, RoleResponder, RoleDispatcher, RoleHospitalAdmin, RoleSystemAdmin}

func (r Role) String() string { return string(r) }

// Known reports whether r is one of the defined roles.
func (r Role) Known() bool {
	for _, k := range Roles {
		if r == k {
			return true
		}
	}
	return false
}
