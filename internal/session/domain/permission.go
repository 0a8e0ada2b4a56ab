package domain

// Permission is a fine-grained capability flag.
type Permission string

const (
	PermManageBeds       Permission = "canManageBeds"
	PermManageStaff      Permission = "canManageStaff"
	PermViewPatientData  Permission = "canViewPatientData"
	PermGenerateReports  Permission = "canGenerateReports"
	PermManageResources  Permission = "canManageResources"
	PermManageAmbulances Permission = "canManageAmbulances"
)

// Permissions lists every permission with a default role mapping.
var Permissions = []Permission{
	PermManageBeds,
	PermManageStaff,
	PermViewPatientData,
	PermGenerateReports,
	PermManageResources,
	PermManageAmbulances,
}

// AdminPermissions is the explicit grant object carried on a hospital admin
// profile, in the shape the identity provider returns it.
type AdminPermissions struct {
	CanManageBeds       bool `json:"canManageBeds"`
	CanManageStaff      bool `json:"canManageStaff"`
	CanViewPatientData  bool `json:"canViewPatientData"`
	CanGenerateReports  bool `json:"canGenerateReports"`
	CanManageResources  bool `json:"canManageResources"`
	CanManageAmbulances bool `json:"canManageAmbulances"`
}

// Grants flattens the object into a permission lookup table.
func (p AdminPermissions) Grants() map[Permission]bool {
	return map[Permission]bool{
		PermManageBeds:       p.CanManageBeds,
		PermManageStaff:      p.CanManageStaff,
		PermViewPatientData:  p.CanViewPatientData,
		PermGenerateReports:  p.CanGenerateReports,
		PermManageResources:  p.CanManageResources,
		PermManageAmbulances: p.CanManageAmbulances,
	}
}

// PermissionSource tells where a user's permissions come from.
type PermissionSource int

const (
	// SourceRoleDefault means no explicit grants exist and checks fall back
	// to the role hierarchy table.
	SourceRoleDefault PermissionSource = iota
	// SourceExplicit means the profile carried an explicit grant object that
	// is authoritative for every permission it mentions or omits.
	SourceExplicit
)

func (s PermissionSource) String() string {
	if s == SourceExplicit {
		return "explicit"
	}
	return "role_default"
}

// PermissionSet is resolved once per user. The zero value is the
// role-default variant.
type PermissionSet struct {
	Source PermissionSource
	Grants map[Permission]bool
}

// ExplicitGrants builds the explicit variant. The map is copied.
func ExplicitGrants(grants map[Permission]bool) PermissionSet {
	cp := make(map[Permission]bool, len(grants))
	for k, v := range grants {
		cp[k] = v
	}
	return PermissionSet{Source: SourceExplicit, Grants: cp}
}

// IsExplicit reports whether explicit grants are present.
func (s PermissionSet) IsExplicit() bool { return s.Source == SourceExplicit }

// Granted reports the explicit grant for p. A missing entry is false.
func (s PermissionSet) Granted(p Permission) bool { return s.Grants[p] }
