package service

import (
	"errors"
	"fmt"
	"os"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"gopkg.in/yaml.v3"
)

// Policy is the static RBAC configuration: role levels, the default
// permission table, and the lookup tables used by the helper checks.
type Policy struct {
	// Levels orders roles. Equal levels are interchangeable for role checks.
	Levels map[domain.Role]int `yaml:"levels"`

	// Permissions lists the roles entitled to each permission when a user
	// carries no explicit grants.
	Permissions map[domain.Permission][]domain.Role `yaml:"permissions"`

	// Actions maps action names to the permission that gates them.
	Actions map[string]domain.Permission `yaml:"actions"`

	DisplayNames map[domain.Role]string `yaml:"display_names"`
}

// DefaultPolicy returns the built-in hierarchy.
func DefaultPolicy() Policy {
	return Policy{
		Levels: map[domain.Role]int{
			domain.RoleCitizen:       1,
			domain.RoleResponder:     2,
			domain.RoleDispatcher:    3,
			domain.RoleHospitalAdmin: 3,
			domain.RoleSystemAdmin:   4,
		},
		Permissions: map[domain.Permission][]domain.Role{
			domain.PermManageBeds:       {domain.RoleHospitalAdmin, domain.RoleSystemAdmin},
			domain.PermManageStaff:      {domain.RoleHospitalAdmin, domain.RoleSystemAdmin},
			domain.PermManageResources:  {domain.RoleHospitalAdmin, domain.RoleSystemAdmin},
			domain.PermViewPatientData:  {domain.RoleResponder, domain.RoleHospitalAdmin, domain.RoleSystemAdmin, domain.RoleDispatcher},
			domain.PermGenerateReports:  {domain.RoleHospitalAdmin, domain.RoleSystemAdmin, domain.RoleDispatcher},
			domain.PermManageAmbulances: {domain.RoleHospitalAdmin, domain.RoleSystemAdmin, domain.RoleDispatcher},
		},
		Actions: map[string]domain.Permission{
			"manage_beds":       domain.PermManageBeds,
			"manage_staff":      domain.PermManageStaff,
			"manage_resources":  domain.PermManageResources,
			"view_patient_data": domain.PermViewPatientData,
			"generate_reports":  domain.PermGenerateReports,
			"manage_ambulances": domain.PermManageAmbulances,
		},
		DisplayNames: map[domain.Role]string{
			domain.RoleCitizen:       "Citizen",
			domain.RoleResponder:     "Emergency Responder",
			domain.RoleHospitalAdmin: "Hospital Administrator",
			domain.RoleSystemAdmin:   "System Administrator",
			domain.RoleDispatcher:    "Dispatcher",
		},
	}
}

// ParsePolicy decodes YAML and overlays it on the defaults. Keys present in
// the document replace the default entry; everything else is kept.
func ParsePolicy(data []byte) (Policy, error) {
	var overlay Policy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	p := DefaultPolicy()
	for r, lvl := range overlay.Levels {
		p.Levels[r] = lvl
	}
	for perm, roles := range overlay.Permissions {
		p.Permissions[perm] = roles
	}
	for a, perm := range overlay.Actions {
		p.Actions[a] = perm
	}
	for r, name := range overlay.DisplayNames {
		p.DisplayNames[r] = name
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a YAML policy file. An empty path yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// Validate checks that every level is positive and that SYSTEM_ADMIN sits
// strictly above every other role.
func (p Policy) Validate() error {
	var errs []error

	top, ok := p.Levels[domain.RoleSystemAdmin]
	if !ok {
		errs = append(errs, errors.New("policy: SYSTEM_ADMIN has no level"))
	}
	for r, lvl := range p.Levels {
		if lvl <= 0 {
			errs = append(errs, fmt.Errorf("policy: role %s has non-positive level %d", r, lvl))
		}
		if ok && r != domain.RoleSystemAdmin && lvl >= top {
			errs = append(errs, fmt.Errorf("policy: role %s must rank below SYSTEM_ADMIN", r))
		}
	}
	for perm, roles := range p.Permissions {
		for _, r := range roles {
			if _, known := p.Levels[r]; !known {
				errs = append(errs, fmt.Errorf("policy: permission %s names unknown role %s", perm, r))
			}
		}
	}
	for a, perm := range p.Actions {
		if _, known := p.Permissions[perm]; !known {
			errs = append(errs, fmt.Errorf("policy: action %s maps to unknown permission %s", a, perm))
		}
	}
	return errors.Join(errs...)
}
