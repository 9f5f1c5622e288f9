// Package navigation decides which back-office destinations a user may see.
package navigation

import (
	"errors"

	"github.com/harmonia-web/portal/internal/rbac"
)

// ErrNoSessionContext is returned when navigation is requested without any
// session to evaluate it against.
var ErrNoSessionContext = errors.New("navigation: no session context")

// Entry is one destination in the back-office navigation.
type Entry struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	Href          string   `json:"href"`
	Icon          string   `json:"icon,omitempty"`
	Permissions   []string `json:"-"`
	AlwaysVisible bool     `json:"-"`
	Children      []Entry  `json:"children,omitempty"`
}

// CanAccess applies the gate rules in order: without a user only always
// visible entries pass; super admins pass everything; an entry without
// requirements passes; otherwise any one of its permissions suffices.
func CanAccess(user *rbac.User, entry Entry) bool {
	if user == nil {
		return entry.AlwaysVisible
	}
	if rbac.IsSuperAdmin(user) {
		return true
	}
	if len(entry.Permissions) == 0 {
		return true
	}
	return rbac.HasAnyPermission(user, entry.Permissions)
}

// Visible filters entries for user, keeping order. Children go through the
// same gate and a parent whose children are all hidden is dropped.
func Visible(user *rbac.User, entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if !CanAccess(user, entry) {
			continue
		}
		if len(entry.Children) > 0 {
			children := Visible(user, entry.Children)
			if len(children) == 0 {
				continue
			}
			entry.Children = children
		}
		out = append(out, entry)
	}
	return out
}
