package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BrowserSession identifies one browser. It carries no data itself; the
// session store keeps token and user under a namespace derived from ID.
type BrowserSession struct {
	ID    string
	isNew bool
}

// IsNew reports whether the cookie was issued by this request.
func (s *BrowserSession) IsNew() bool {
	return s != nil && s.isNew
}

// SessionManager issues and verifies signed browser-session cookies.
type SessionManager struct {
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load returns the browser session named by the request cookie, or a new
// one when the cookie is absent or fails verification.
func (sm *SessionManager) Load(r *http.Request) (*BrowserSession, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}
	return &BrowserSession{ID: id}, nil
}

// Commit writes the cookie, refreshing its expiry.
func (sm *SessionManager) Commit(w http.ResponseWriter, sess *BrowserSession) {
	if sess == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
}

func (sm *SessionManager) newSession() *BrowserSession {
	return &BrowserSession{ID: uuid.NewString(), isNew: true}
}

func (sm *SessionManager) sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(sm.mac("session", id))
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(want, sm.mac("session", id)) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) mac(purpose, id string) []byte {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(purpose))
	_, _ = mac.Write([]byte{'|'})
	_, _ = mac.Write([]byte(id))
	return mac.Sum(nil)
}
