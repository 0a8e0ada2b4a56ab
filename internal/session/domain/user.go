package domain

type Facility struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FacilityType string `json:"facilityType,omitempty"`
	Region       string `json:"region,omitempty"`
	District     string `json:"district,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HospitalAdminProfile is bound to one primary facility and carries explicit
// permission grants when the provider returns them.
type HospitalAdminProfile struct {
	ID               string            `json:"id"`
	PrimaryFacility  *Facility         `json:"primaryFacility,omitempty"`
	Permissions      *AdminPermissions `json:"permissions,omitempty"`
	DepartmentAccess []string          `json:"departmentAccess,omitempty"`
	CanManageFleet   bool              `json:"canManageFleet"`
	CanViewAnalytics bool              `json:"canViewAnalytics"`
}

// EmergencyResponderProfile has no explicit grants; its permissions derive
// from the role.
type EmergencyResponderProfile struct {
	ID                 string    `json:"id"`
	ResponderType      string    `json:"responderType,omitempty"`
	CertificationLevel string    `json:"certificationLevel,omitempty"`
	IsOnDuty           bool      `json:"isOnDuty"`
	CurrentLocation    *Location `json:"currentLocation,omitempty"`
	AssignedFacility   *Facility `json:"assignedFacility,omitempty"`
}

type User struct {
	ID                        string                     `json:"id"`
	Username                  string                     `json:"username"`
	Email                     string                     `json:"email,omitempty"`
	FullName                  string                     `json:"fullName,omitempty"`
	PhoneNumber               string                     `json:"phoneNumber,omitempty"`
	UserType                  Role                       `json:"userType"`
	IsActive                  bool                       `json:"isActive"`
	HospitalAdminProfile      *HospitalAdminProfile      `json:"hospitalAdminProfile,omitempty"`
	EmergencyResponderProfile *EmergencyResponderProfile `json:"emergencyResponderProfile,omitempty"`
}

// BoundFacilityIDs returns every facility named by the user's profiles,
// whatever the role: the admin primary facility first, then the responder
// assignment. Duplicates are dropped.
func (u *User) BoundFacilityIDs() []string {
	if u == nil {
		return nil
	}
	var ids []string
	if p := u.HospitalAdminProfile; p != nil && p.PrimaryFacility != nil && p.PrimaryFacility.ID != "" {
		ids = append(ids, p.PrimaryFacility.ID)
	}
	if p := u.EmergencyResponderProfile; p != nil && p.AssignedFacility != nil && p.AssignedFacility.ID != "" {
		if len(ids) == 0 || ids[0] != p.AssignedFacility.ID {
			ids = append(ids, p.AssignedFacility.ID)
		}
	}
	return ids
}

// AssignedFacilityID is the single facility the user's role is scoped to:
// the primary facility for a hospital admin, the assignment for a responder.
// Other roles have none.
func (u *User) AssignedFacilityID() string {
	if u == nil {
		return ""
	}
	switch u.UserType {
	case RoleHospitalAdmin:
		if p := u.HospitalAdminProfile; p != nil && p.PrimaryFacility != nil {
			return p.PrimaryFacility.ID
		}
	case RoleResponder:
		if p := u.EmergencyResponderProfile; p != nil && p.AssignedFacility != nil {
			return p.AssignedFacility.ID
		}
	}
	return ""
}

// Clone returns a deep copy so snapshots handed to readers can't be mutated
// through shared pointers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if p := u.HospitalAdminProfile; p != nil {
		hp := *p
		if p.PrimaryFacility != nil {
			f := *p.PrimaryFacility
			hp.PrimaryFacility = &f
		}
		if p.Permissions != nil {
			perms := *p.Permissions
			hp.Permissions = &perms
		}
		hp.DepartmentAccess = append([]string(nil), p.DepartmentAccess...)
		c.HospitalAdminProfile = &hp
	}
	if p := u.EmergencyResponderProfile; p != nil {
		rp := *p
		if p.CurrentLocation != nil {
			l := *p.CurrentLocation
			rp.CurrentLocation = &l
		}
		if p.AssignedFacility != nil {
			f := *p.AssignedFacility
			rp.AssignedFacility = &f
		}
		c.EmergencyResponderProfile = &rp
	}
	return &c
}
