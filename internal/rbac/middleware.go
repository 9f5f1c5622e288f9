package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harmonia-web/portal/internal/platform/httpx"
)

// UserLookup resolves the authenticated user for a request. It returns a nil
// user when nobody is signed in and an error when the lookup itself failed.
type UserLookup func(r *http.Request) (*User, error)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Lookup UserLookup
	Logger *slog.Logger
}

// RequireAny ensures the current user has at least one of the required
// permissions. Super admins always pass.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require("rbac require any", func(u *User) bool {
		return len(normalized) == 0 || hasAnyPermission(EffectivePermissions(u), normalized)
	})
}

// RequireAll ensures the current user has all required permissions. Super
// admins always pass.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require("rbac require all", func(u *User) bool {
		return hasAllPermissions(EffectivePermissions(u), normalized)
	})
}

func (m Middleware) require(op string, allowed func(*User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Lookup == nil {
				httpx.RespondError(w, errors.New("rbac: user lookup not configured"))
				return
			}
			user, err := m.Lookup(r)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(op, slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if user == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if IsSuperAdmin(user) || allowed(user) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
