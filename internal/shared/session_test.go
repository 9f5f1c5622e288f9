package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, sm *SessionManager, sess *BrowserSession) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	sm.Commit(rec, sess)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionManagerIssuesAndReloadsSignedCookie(t *testing.T) {
	sm := NewSessionManager("portal_session", "secret", time.Hour, true)

	sess, err := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, sess.IsNew())
	assert.NotEmpty(t, sess.ID)

	cookie := roundTrip(t, sm, sess)
	assert.Equal(t, "portal_session", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.True(t, strings.HasPrefix(cookie.Value, sess.ID+"."))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	again, err := sm.Load(req)
	require.NoError(t, err)
	assert.False(t, again.IsNew())
	assert.Equal(t, sess.ID, again.ID)
}

func TestSessionManagerRejectsTamperedCookie(t *testing.T) {
	sm := NewSessionManager("portal_session", "secret", time.Hour, false)
	other := NewSessionManager("portal_session", "other-secret", time.Hour, false)

	sess, err := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	id, sig, _ := strings.Cut(roundTrip(t, sm, sess).Value, ".")

	cases := map[string]string{
		"foreign signature": roundTrip(t, other, sess).Value,
		"swapped id":        "00000000-0000-0000-0000-000000000000." + sig,
		"missing signature": id,
		"not a uuid":        "admin." + sig,
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "portal_session", Value: value})
			got, err := sm.Load(req)
			require.NoError(t, err)
			assert.True(t, got.IsNew())
			assert.NotEqual(t, id, got.ID)
		})
	}
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	csrf := NewCSRFManager("secret")
	a := &BrowserSession{ID: "a"}
	b := &BrowserSession{ID: "b"}

	token := csrf.Token(a)
	require.NotEmpty(t, token)
	assert.Equal(t, token, csrf.Token(a))
	assert.NoError(t, csrf.VerifyToken(a, token))
	assert.ErrorIs(t, csrf.VerifyToken(b, token), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(a, "%%%"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(a, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(nil, token), ErrCSRFTokenMissing)
	assert.Empty(t, csrf.Token(nil))
}

func TestCoreScopesPairsEveryResource(t *testing.T) {
	scopes := CoreScopes()
	assert.Len(t, scopes, len(ContentResources)*2)
	assert.Contains(t, scopes, PermMenusManage)
	assert.Contains(t, scopes, PermMenusView)
}
