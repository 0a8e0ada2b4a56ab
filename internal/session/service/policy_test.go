package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultPolicy().Validate())
}

func TestParsePolicyOverlaysDefaults(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy([]byte(`
levels:
  DISPATCHER: 2
permissions:
  canManageBeds: [HOSPITAL_ADMIN, SYSTEM_ADMIN, DISPATCHER]
display_names:
  DISPATCHER: Emergency Dispatcher
`))
	require.NoError(t, err)

	require.Equal(t, 2, p.Levels[domain.RoleDispatcher])
	require.Equal(t, 3, p.Levels[domain.RoleHospitalAdmin], "untouched levels keep defaults")
	require.Contains(t, p.Permissions[domain.PermManageBeds], domain.RoleDispatcher)
	require.Len(t, p.Permissions[domain.PermGenerateReports], 3)

	a := NewAuthorizeService(p)
	require.False(t, a.HasRole(userOf(domain.RoleDispatcher), domain.RoleHospitalAdmin))
	require.True(t, a.HasPermission(userOf(domain.RoleDispatcher), domain.PermManageBeds))
	require.Equal(t, "Emergency Dispatcher", a.RoleDisplayName(domain.RoleDispatcher))
}

func TestParsePolicyRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed yaml":         "levels: [",
		"non-positive level":     "levels:\n  CITIZEN: 0\n",
		"outranks system admin":  "levels:\n  DISPATCHER: 9\n",
		"unknown role in table":  "permissions:\n  canManageBeds: [JANITOR]\n",
		"action to unknown perm": "actions:\n  launch: canLaunchDrones\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Parallel()

	p, err := LoadPolicy("")
	require.NoError(t, err)
	require.Equal(t, DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "rbac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels:\n  RESPONDER: 3\n"), 0o600))

	p, err = LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, 3, p.Levels[domain.RoleResponder])

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
