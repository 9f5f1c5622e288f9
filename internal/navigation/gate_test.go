package navigation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-web/portal/internal/rbac"
)

func keys(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	return out
}

func TestCanAccessRuleOrder(t *testing.T) {
	dashboard := Entry{Key: "dashboard", AlwaysVisible: true}
	open := Entry{Key: "open"}
	news := Entry{Key: "news", Permissions: []string{"view_news", "manage_news"}}

	assert.True(t, CanAccess(nil, dashboard))
	assert.False(t, CanAccess(nil, open), "anonymous users only see always-visible entries")
	assert.False(t, CanAccess(nil, news))

	viewer := &rbac.User{Permissions: rbac.PermissionList{{Name: "manage_news"}}}
	assert.True(t, CanAccess(viewer, open))
	assert.True(t, CanAccess(viewer, news), "any one permission suffices")
	assert.False(t, CanAccess(viewer, Entry{Permissions: []string{"view_users"}}))
}

func TestSuperAdminBypassesEveryRequirement(t *testing.T) {
	admins := []*rbac.User{
		{Role: "super_admin"},
		{Role: "editor", Roles: rbac.RoleList{{Name: "Super Admin"}}},
	}
	requirements := [][]string{nil, {}, {"view_news"}, {"does_not_exist", ""}}
	for _, admin := range admins {
		for _, perms := range requirements {
			assert.True(t, CanAccess(admin, Entry{Permissions: perms}))
		}
		assert.Len(t, Visible(admin, BackOffice()), len(BackOffice()))
	}
}

func TestVisibleFiltersChildren(t *testing.T) {
	user := &rbac.User{Permissions: rbac.PermissionList{{Name: "view_users"}, {Name: "view_news"}}}
	visible := Visible(user, BackOffice())

	assert.Equal(t, []string{"dashboard", "news", "access"}, keys(visible))
	assert.Equal(t, []string{"users"}, keys(visible[2].Children))

	noAccess := &rbac.User{Permissions: rbac.PermissionList{{Name: "view_news"}}}
	assert.Equal(t, []string{"dashboard", "news"}, keys(Visible(noAccess, BackOffice())))

	assert.Equal(t, []string{"dashboard"}, keys(Visible(nil, BackOffice())))
}

func TestRolePermissionsGrantAccess(t *testing.T) {
	user, err := rbac.DecodeUser([]byte(`{"roles":{"1":{"name":"editor","permissions":{"a":"view_menus"}}}}`))
	require.NoError(t, err)
	assert.Contains(t, keys(Visible(user, BackOffice())), "menus")
}

type fakeSession struct {
	user    *rbac.User
	loading bool
}

func (f fakeSession) CurrentUser() *rbac.User { return f.user }
func (f fakeSession) IsLoading() bool         { return f.loading }

func serveNavigation(lookup SessionLookup) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	NewHandler(nil, lookup, nil).MountRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/navigation", nil))
	return rec
}

func TestHandlerFailsVisiblyWithoutSessionContext(t *testing.T) {
	rec := serveNavigation(func(*http.Request) (Session, error) { return nil, nil })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"authentication_error"`)

	rec = serveNavigation(nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serveNavigation(func(*http.Request) (Session, error) { return nil, errors.New("redis down") })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlerRefusesWhileLoading(t *testing.T) {
	rec := serveNavigation(func(*http.Request) (Session, error) {
		return fakeSession{user: &rbac.User{Role: "super_admin"}, loading: true}, nil
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"session_loading"`)
}

func TestHandlerServesGatedEntries(t *testing.T) {
	rec := serveNavigation(func(*http.Request) (Session, error) {
		return fakeSession{user: &rbac.User{Permissions: rbac.PermissionList{{Name: "manage_sliders"}}}}, nil
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"sliders"`)
	assert.NotContains(t, rec.Body.String(), `"key":"news"`)
	assert.NotContains(t, rec.Body.String(), "manage_sliders")
}
