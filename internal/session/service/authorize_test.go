package service

import (
	"testing"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/stretchr/testify/require"
)

func TestHasRole_Levels(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	for _, have := range domain.Roles {
		for _, want := range domain.Roles {
			expected := a.RoleLevel(have) >= a.RoleLevel(want)
			require.Equal(t, expected, a.HasRole(userOf(have), want), "%s requires %s", have, want)
		}
	}

	t.Run("dispatcher and hospital admin are peers", func(t *testing.T) {
		require.True(t, a.HasRole(userOf(domain.RoleDispatcher), domain.RoleHospitalAdmin))
		require.True(t, a.HasRole(userOf(domain.RoleHospitalAdmin), domain.RoleDispatcher))
		require.False(t, a.HasRole(userOf(domain.RoleDispatcher), domain.RoleSystemAdmin))
	})

	t.Run("unknown required role is never satisfied", func(t *testing.T) {
		require.False(t, a.HasRole(userOf(domain.RoleSystemAdmin), domain.Role("SUPERUSER")))
	})

	t.Run("unknown user role only satisfies nothing", func(t *testing.T) {
		require.False(t, a.HasRole(userOf(domain.Role("GHOST")), domain.RoleCitizen))
	})

	t.Run("nil user", func(t *testing.T) {
		require.False(t, a.HasRole(nil, domain.RoleCitizen))
	})
}

func TestHasPermission_RoleDefaults(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	cases := []struct {
		role      domain.Role
		should    []domain.Permission
		shouldNot []domain.Permission
	}{
		{
			role:      domain.RoleCitizen,
			shouldNot: domain.Permissions,
		},
		{
			role:   domain.RoleResponder,
			should: []domain.Permission{domain.PermViewPatientData},
			shouldNot: []domain.Permission{
				domain.PermManageBeds, domain.PermManageStaff, domain.PermManageResources,
				domain.PermGenerateReports, domain.PermManageAmbulances,
			},
		},
		{
			role: domain.RoleDispatcher,
			should: []domain.Permission{
				domain.PermViewPatientData, domain.PermGenerateReports, domain.PermManageAmbulances,
			},
			shouldNot: []domain.Permission{
				domain.PermManageBeds, domain.PermManageStaff, domain.PermManageResources,
			},
		},
		{
			// No explicit grants object, so the table applies.
			role:   domain.RoleHospitalAdmin,
			should: domain.Permissions,
		},
	}

	for _, tc := range cases {
		u := userOf(tc.role)
		for _, p := range tc.should {
			require.True(t, a.HasPermission(u, p), "%s should have %s", tc.role, p)
		}
		for _, p := range tc.shouldNot {
			require.False(t, a.HasPermission(u, p), "%s should NOT have %s", tc.role, p)
		}
	}
}

func TestHasPermission_SystemAdminBypassesEverything(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	admin := userOf(domain.RoleSystemAdmin)
	// Even an explicit denial does not apply to system admins.
	admin.HospitalAdminProfile = &domain.HospitalAdminProfile{Permissions: &domain.AdminPermissions{}}

	for _, p := range append(domain.Permissions, domain.Permission("canLaunchDrones")) {
		require.True(t, a.HasPermission(admin, p), "system admin should have %s", p)
	}
}

func TestHasPermission_ExplicitGrantsOverrideTable(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	u := hospitalAdmin(&domain.AdminPermissions{
		CanManageBeds:      false,
		CanManageStaff:     true,
		CanViewPatientData: true,
	})

	require.False(t, a.HasPermission(u, domain.PermManageBeds))
	require.True(t, a.HasPermission(u, domain.PermManageStaff))
	require.False(t, a.HasPermission(u, domain.PermGenerateReports))
	require.False(t, a.HasPermission(u, domain.Permission("canLaunchDrones")), "absent entry is false")

	require.True(t, a.HasAnyPermission(u, []domain.Permission{domain.PermManageBeds, domain.PermManageStaff}))
	require.False(t, a.HasAllPermissions(u, []domain.Permission{domain.PermManageBeds, domain.PermManageStaff}))
	require.True(t, a.HasAllPermissions(u, nil))
	require.False(t, a.HasAnyPermission(u, nil))
}

func TestCanAccessResource_RoleAndPermissionAreIndependent(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	r := responder()
	r.HospitalAdminProfile = &domain.HospitalAdminProfile{
		Permissions: &domain.AdminPermissions{CanGenerateReports: true},
	}

	require.True(t, a.HasPermission(r, domain.PermGenerateReports))
	require.False(t, a.CanAccessResource(r, domain.RoleDispatcher, domain.PermGenerateReports))
	require.True(t, a.CanAccessResource(r, "", domain.PermGenerateReports))
	require.True(t, a.CanAccessResource(userOf(domain.RoleDispatcher), domain.RoleDispatcher, domain.PermGenerateReports))
	require.False(t, a.CanAccessResource(nil, "", ""))
}

func TestFacilityAccess(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	admin := hospitalAdmin(nil)
	resp := responder()
	sys := userOf(domain.RoleSystemAdmin)
	dispatcher := userOf(domain.RoleDispatcher)

	require.True(t, a.CanAccessFacility(admin, "fac-1"))
	require.False(t, a.CanAccessFacility(admin, "fac-2"))
	require.True(t, a.CanAccessFacility(resp, "fac-2"))
	require.False(t, a.CanAccessFacility(resp, "fac-1"))
	require.True(t, a.CanAccessFacility(sys, "anything"))
	require.False(t, a.CanAccessFacility(dispatcher, "fac-1"))
	require.False(t, a.CanAccessFacility(admin, ""))
	require.False(t, a.CanAccessFacility(nil, "fac-1"))

	require.Equal(t, []string{"*"}, a.AccessibleFacilities(sys).Strings())
	require.Equal(t, []string{"fac-1"}, a.AccessibleFacilities(admin).Strings())
	require.Equal(t, []string{}, a.AccessibleFacilities(dispatcher).Strings())

	t.Run("accessible set collects every profile", func(t *testing.T) {
		mixed := responder()
		mixed.HospitalAdminProfile = hospitalAdmin(nil).HospitalAdminProfile
		require.Equal(t, []string{"fac-1", "fac-2"}, a.AccessibleFacilities(mixed).Strings())

		// Access checks stay scoped to the role's own facility.
		require.True(t, a.CanAccessFacility(mixed, "fac-2"))
		require.False(t, a.CanAccessFacility(mixed, "fac-1"))
	})

	t.Run("set membership", func(t *testing.T) {
		require.True(t, a.AccessibleFacilities(sys).Contains("fac-7"))
		require.True(t, a.AccessibleFacilities(admin).Contains("fac-1"))
		require.False(t, a.AccessibleFacilities(admin).Contains(""))
	})

	t.Run("dispatcher with an admin profile", func(t *testing.T) {
		d := userOf(domain.RoleDispatcher)
		d.HospitalAdminProfile = hospitalAdmin(nil).HospitalAdminProfile
		require.Equal(t, []string{"fac-1"}, a.AccessibleFacilities(d).Strings())
		require.False(t, a.CanAccessFacility(d, "fac-1"))
	})
}

func TestDepartmentsAndActions(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	u := hospitalAdmin(&domain.AdminPermissions{CanManageBeds: true})

	require.True(t, a.CanManageDepartment(u, "dept-icu"))
	require.False(t, a.CanManageDepartment(u, "dept-maternity"))
	require.False(t, a.CanManageDepartment(responder(), "dept-icu"))

	require.True(t, a.CanPerformAction(u, "manage_beds"))
	require.False(t, a.CanPerformAction(u, "manage_staff"))
	require.False(t, a.CanPerformAction(u, "launch_drones"))
	require.True(t, a.CanPerformAction(userOf(domain.RoleDispatcher), "manage_ambulances"))
}

func TestRoleHelpers(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	require.Equal(t,
		[]domain.Role{domain.RoleCitizen, domain.RoleResponder, domain.RoleDispatcher, domain.RoleHospitalAdmin},
		a.AllowedRoles(domain.RoleHospitalAdmin))
	require.Equal(t, []domain.Role{domain.RoleCitizen}, a.AllowedRoles(domain.RoleCitizen))
	require.Empty(t, a.AllowedRoles(domain.Role("GHOST")))

	require.True(t, a.CanAssignRole(domain.RoleHospitalAdmin, domain.RoleDispatcher))
	require.False(t, a.CanAssignRole(domain.RoleHospitalAdmin, domain.RoleSystemAdmin))
	require.False(t, a.CanAssignRole(domain.Role("GHOST"), domain.RoleCitizen))

	require.Equal(t, "Emergency Responder", a.RoleDisplayName(domain.RoleResponder))
	require.Equal(t, "GHOST", a.RoleDisplayName(domain.Role("GHOST")))

	perms := a.RolePermissions(domain.RoleDispatcher)
	require.Contains(t, perms, "dispatch_ambulances")
	perms[0] = "mutated"
	require.NotEqual(t, "mutated", a.RolePermissions(domain.RoleDispatcher)[0])
}

func TestCapabilities(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	require.Equal(t, []string{"create_emergency_report"}, a.Capabilities(userOf(domain.RoleCitizen)))
	require.Contains(t, a.Capabilities(responder()), "update_location")
	require.Contains(t, a.Capabilities(userOf(domain.RoleSystemAdmin)), "system_configuration")

	admin := hospitalAdmin(&domain.AdminPermissions{CanManageBeds: true, CanGenerateReports: true})
	require.Equal(t, []string{"manage_beds", "generate_reports"}, a.Capabilities(admin))

	require.Empty(t, a.Capabilities(hospitalAdmin(nil)))
	require.Nil(t, a.Capabilities(nil))
}

type menuItem struct {
	name string
	perm domain.Permission
}

func (m menuItem) RequiredPermission() domain.Permission { return m.perm }

func TestFilterByPermission(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	items := []menuItem{
		{"dashboard", ""},
		{"beds", domain.PermManageBeds},
		{"reports", domain.PermGenerateReports},
	}

	got := FilterByPermission(a, userOf(domain.RoleDispatcher), items)
	require.Equal(t, []menuItem{items[0], items[2]}, got)

	require.Nil(t, FilterByPermission(a, nil, items))
}

func TestDerivePermissions(t *testing.T) {
	t.Parallel()
	a := NewAuthorizeService(DefaultPolicy())

	set := a.DerivePermissions(hospitalAdmin(&domain.AdminPermissions{CanManageStaff: true}))
	require.True(t, set.IsExplicit())
	require.True(t, set.Granted(domain.PermManageStaff))
	require.False(t, set.Granted(domain.PermManageBeds))

	set = a.DerivePermissions(responder())
	require.False(t, set.IsExplicit())
	require.Equal(t, "role_default", set.Source.String())
}
