package service

import (
	"slices"
	"sort"

	"github.com/afyapapo/sessioncore/internal/session/domain"
)

// AllFacilities is the marker returned for users who may access every
// facility.
const AllFacilities = "*"

// FacilitySet is the set of facilities a user can reach. When All is set,
// IDs is empty.
type FacilitySet struct {
	All bool
	IDs []string
}

// Contains reports whether id is in the set.
func (f FacilitySet) Contains(id string) bool {
	if id == "" {
		return false
	}
	return f.All || slices.Contains(f.IDs, id)
}

// Strings renders the set the way callers outside Go expect it.
func (f FacilitySet) Strings() []string {
	if f.All {
		return []string{AllFacilities}
	}
	return append([]string{}, f.IDs...)
}

// AuthorizeService answers role and permission questions about a user. It
// holds no session state and is safe for concurrent use.
type AuthorizeService struct {
	policy Policy
}

func NewAuthorizeService(p Policy) *AuthorizeService {
	return &AuthorizeService{policy: p}
}

func (a *AuthorizeService) Policy() Policy { return a.policy }

// RoleLevel returns the configured level, or 0 for unknown roles.
func (a *AuthorizeService) RoleLevel(r domain.Role) int {
	return a.policy.Levels[r]
}

// DerivePermissions resolves where the user's permissions come from. It is
// computed once per user and cached on the session state.
func (a *AuthorizeService) DerivePermissions(u *domain.User) domain.PermissionSet {
	if u != nil && u.HospitalAdminProfile != nil && u.HospitalAdminProfile.Permissions != nil {
		return domain.ExplicitGrants(u.HospitalAdminProfile.Permissions.Grants())
	}
	return domain.PermissionSet{Source: domain.SourceRoleDefault}
}

// HasRole compares levels, not identities. A required role the policy does
// not know is never satisfied.
func (a *AuthorizeService) HasRole(u *domain.User, required domain.Role) bool {
	if u == nil {
		return false
	}
	return a.roleSatisfied(u.UserType, required)
}

func (a *AuthorizeService) roleSatisfied(have, required domain.Role) bool {
	want, ok := a.policy.Levels[required]
	if !ok {
		return false
	}
	return a.policy.Levels[have] >= want
}

// HasPermission grants everything to SYSTEM_ADMIN, then defers to explicit
// grants when present, then to the role table.
func (a *AuthorizeService) HasPermission(u *domain.User, p domain.Permission) bool {
	if u == nil {
		return false
	}
	return a.permitted(u.UserType, a.DerivePermissions(u), p)
}

func (a *AuthorizeService) permitted(role domain.Role, set domain.PermissionSet, p domain.Permission) bool {
	if role == domain.RoleSystemAdmin {
		return true
	}
	if set.IsExplicit() {
		return set.Granted(p)
	}
	return slices.Contains(a.policy.Permissions[p], role)
}

func (a *AuthorizeService) HasAnyPermission(u *domain.User, perms []domain.Permission) bool {
	for _, p := range perms {
		if a.HasPermission(u, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true for an empty list.
func (a *AuthorizeService) HasAllPermissions(u *domain.User, perms []domain.Permission) bool {
	if u == nil {
		return false
	}
	for _, p := range perms {
		if !a.HasPermission(u, p) {
			return false
		}
	}
	return true
}

// CanAccessResource requires both the role and the permission when both are
// given. Neither substitutes for the other.
func (a *AuthorizeService) CanAccessResource(u *domain.User, role domain.Role, perm domain.Permission) bool {
	if u == nil {
		return false
	}
	if role != "" && !a.HasRole(u, role) {
		return false
	}
	if perm != "" && !a.HasPermission(u, perm) {
		return false
	}
	return true
}

// CanAccessFacility is true for SYSTEM_ADMIN and otherwise only for the
// facility the user's role is scoped to.
func (a *AuthorizeService) CanAccessFacility(u *domain.User, facilityID string) bool {
	if u == nil || facilityID == "" {
		return false
	}
	if u.UserType == domain.RoleSystemAdmin {
		return true
	}
	return u.AssignedFacilityID() == facilityID
}

// AccessibleFacilities lists every facility on the user's profiles, or the
// wildcard for SYSTEM_ADMIN.
func (a *AuthorizeService) AccessibleFacilities(u *domain.User) FacilitySet {
	if u == nil {
		return FacilitySet{}
	}
	if u.UserType == domain.RoleSystemAdmin {
		return FacilitySet{All: true}
	}
	return FacilitySet{IDs: u.BoundFacilityIDs()}
}

// CanManageDepartment checks the hospital admin's department list.
func (a *AuthorizeService) CanManageDepartment(u *domain.User, departmentID string) bool {
	if u == nil || u.HospitalAdminProfile == nil || departmentID == "" {
		return false
	}
	return slices.Contains(u.HospitalAdminProfile.DepartmentAccess, departmentID)
}

// CanPerformAction maps an action name such as "manage_beds" to its
// permission. Unknown actions are denied.
func (a *AuthorizeService) CanPerformAction(u *domain.User, action string) bool {
	p, ok := a.policy.Actions[action]
	if !ok {
		return false
	}
	return a.HasPermission(u, p)
}

// Gated is implemented by items that may require a permission to be shown.
type Gated interface {
	RequiredPermission() domain.Permission
}

// FilterByPermission keeps the items u may see. Items without a requirement
// are always kept; a nil user sees nothing.
func FilterByPermission[T Gated](a *AuthorizeService, u *domain.User, items []T) []T {
	if u == nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if p := it.RequiredPermission(); p == "" || a.HasPermission(u, p) {
			out = append(out, it)
		}
	}
	return out
}

// AllowedRoles lists every role at or below r's level, lowest first.
func (a *AuthorizeService) AllowedRoles(r domain.Role) []domain.Role {
	lvl := a.policy.Levels[r]
	var out []domain.Role
	for role, l := range a.policy.Levels {
		if l <= lvl {
			out = append(out, role)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := a.policy.Levels[out[i]], a.policy.Levels[out[j]]
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}

// CanAssignRole lets an assigner hand out roles up to their own level.
func (a *AuthorizeService) CanAssignRole(assigner, target domain.Role) bool {
	if _, ok := a.policy.Levels[assigner]; !ok {
		return false
	}
	return a.roleSatisfied(assigner, target)
}

// RoleDisplayName falls back to the raw identifier.
func (a *AuthorizeService) RoleDisplayName(r domain.Role) string {
	if name, ok := a.policy.DisplayNames[r]; ok {
		return name
	}
	return string(r)
}

var rolePermissions = map[domain.Role][]string{
	domain.RoleCitizen: {"create_emergency_report"},
	domain.RoleResponder: {
		"create_emergency_report",
		"respond_to_incidents",
		"update_incident_status",
		"view_assigned_incidents",
	},
	domain.RoleHospitalAdmin: {
		"manage_beds",
		"manage_staff",
		"manage_resources",
		"view_patient_data",
		"manage_ambulances",
		"generate_reports",
		"view_facility_dashboard",
	},
	domain.RoleSystemAdmin: {
		"manage_all_facilities",
		"manage_all_users",
		"system_configuration",
		"access_all_data",
		"generate_system_reports",
	},
	domain.RoleDispatcher: {
		"view_facility_dashboard",
		"dispatch_ambulances",
		"assign_responders",
		"monitor_incidents",
	},
}

// RolePermissions is the nominal capability list for a role, used when
// presenting roles rather than users.
func (a *AuthorizeService) RolePermissions(r domain.Role) []string {
	return slices.Clone(rolePermissions[r])
}

var userCapabilities = map[domain.Role][]string{
	domain.RoleCitizen: {"create_emergency_report"},
	domain.RoleResponder: {
		"create_emergency_report",
		"respond_to_incidents",
		"update_incident_status",
		"view_assigned_incidents",
		"accept_assignment",
		"decline_assignment",
		"update_location",
	},
	domain.RoleDispatcher: {
		"view_all_incidents",
		"assign_responders",
		"coordinate_emergencies",
		"view_all_responders",
		"dispatch_ambulances",
		"view_analytics",
	},
	domain.RoleSystemAdmin: {
		"manage_all_facilities",
		"manage_all_users",
		"system_configuration",
		"access_all_data",
		"generate_system_reports",
	},
}

// adminCapabilities orders the capability strings a hospital admin earns
// from explicit grants.
var adminCapabilities = []struct {
	perm domain.Permission
	name string
}{
	{domain.PermManageBeds, "manage_beds"},
	{domain.PermManageStaff, "manage_staff"},
	{domain.PermManageResources, "manage_resources"},
	{domain.PermViewPatientData, "view_patient_data"},
	{domain.PermGenerateReports, "generate_reports"},
	{domain.PermManageAmbulances, "manage_ambulances"},
}

// Capabilities lists the coarse capability strings u holds. Hospital admins
// only get what their explicit grants allow.
func (a *AuthorizeService) Capabilities(u *domain.User) []string {
	if u == nil {
		return nil
	}
	if u.UserType != domain.RoleHospitalAdmin {
		return slices.Clone(userCapabilities[u.UserType])
	}

	set := a.DerivePermissions(u)
	if !set.IsExplicit() {
		return nil
	}
	var out []string
	for _, c := range adminCapabilities {
		if set.Granted(c.perm) {
			out = append(out, c.name)
		}
	}
	return out
}

// Allows evaluates a guard requirement against a user and the permission
// set cached for them. Role and permission checks are independent and both
// must pass.
func (a *AuthorizeService) Allows(u *domain.User, set domain.PermissionSet, req Requirement) bool {
	if u == nil {
		return false
	}
	if req.Role != "" && !a.roleSatisfied(u.UserType, req.Role) {
		return false
	}
	if req.Permission != "" && !a.permitted(u.UserType, set, req.Permission) {
		return false
	}
	if len(req.Permissions) == 0 {
		return true
	}
	if req.RequireAll {
		for _, p := range req.Permissions {
			if !a.permitted(u.UserType, set, p) {
				return false
			}
		}
		return true
	}
	for _, p := range req.Permissions {
		if a.permitted(u.UserType, set, p) {
			return true
		}
	}
	return false
}
