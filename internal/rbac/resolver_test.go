package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, payload string) *User {
	t.Helper()
	user, err := DecodeUser([]byte(payload))
	require.NoError(t, err)
	return user
}

func TestHasAnyPermissionArrayAndMapShapesAgree(t *testing.T) {
	arrayShaped := decode(t, `{"id":1,"permissions":[{"name":"view_news"},"manage_sliders"]}`)
	mapShaped := decode(t, `{"id":1,"permissions":{"7":{"name":"manage_sliders"},"3":"view_news"}}`)

	cases := []struct {
		names []string
		want  bool
	}{
		{[]string{"view_news"}, true},
		{[]string{"manage_news", "manage_sliders"}, true},
		{[]string{"manage_news"}, false},
		{nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasAnyPermission(arrayShaped, tc.names), "array %v", tc.names)
		assert.Equal(t, tc.want, HasAnyPermission(mapShaped, tc.names), "map %v", tc.names)
	}
}

func TestHasAllPermissions(t *testing.T) {
	user := decode(t, `{"permissions":["view_news","manage_news"]}`)

	assert.True(t, HasAllPermissions(user, []string{"view_news", "manage_news"}))
	assert.False(t, HasAllPermissions(user, []string{"view_news", "manage_gallery"}))
	assert.True(t, HasAllPermissions(user, nil))
	assert.False(t, HasAllPermissions(nil, nil))
}

func TestPermissionsEmbeddedInRolesCount(t *testing.T) {
	user := decode(t, `{"roles":[{"name":"editor","permissions":["manage_news"]}]}`)

	assert.True(t, HasPermission(user, "manage_news"))
	assert.False(t, HasPermission(user, "manage_users"))
	assert.Equal(t, []string{"manage_news"}, EffectivePermissions(user))
}

func TestHasRolePrefersRoleCollection(t *testing.T) {
	user := decode(t, `{"role":"admin","roles":[{"name":"editor"}]}`)

	assert.True(t, HasRole(user, "editor"))
	assert.False(t, HasRole(user, "admin"), "legacy scalar must not override explicit roles")

	legacyOnly := decode(t, `{"role":"admin","roles":[]}`)
	assert.True(t, HasRole(legacyOnly, "admin"))
}

func TestLegacyRoleAcceptsObject(t *testing.T) {
	user := decode(t, `{"role":{"name":"super_admin"}}`)
	assert.Equal(t, LegacyRole("super_admin"), user.Role)
	assert.True(t, IsSuperAdmin(user))
}

func TestIsSuperAdmin(t *testing.T) {
	assert.True(t, IsSuperAdmin(decode(t, `{"role":"super_admin"}`)))
	assert.True(t, IsSuperAdmin(decode(t, `{"roles":{"a":{"name":"Super Admin"}}}`)))
	assert.True(t, IsSuperAdmin(decode(t, `{"role":"super_admin","roles":["editor"]}`)))
	assert.False(t, IsSuperAdmin(decode(t, `{"role":"admin","roles":["editor"]}`)))
	assert.False(t, IsSuperAdmin(nil))
}

func TestNilUserFailsClosed(t *testing.T) {
	assert.False(t, HasPermission(nil, "view_news"))
	assert.False(t, HasAnyPermission(nil, []string{"view_news"}))
	assert.False(t, HasAllPermissions(nil, []string{"view_news"}))
	assert.False(t, HasRole(nil, "admin"))
}
