package rbac

// SuperAdminRole is the role name that bypasses navigation permission checks.
const SuperAdminRole = "super_admin"

// Permission represents an atomic capability granted to a user.
type Permission struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Group       string `json:"group,omitempty"`
}

// Role represents a named grouping of permissions.
type Role struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Permissions PermissionList `json:"permissions,omitempty"`
}

// PermissionList is an ordered permission sequence. It decodes from either a
// JSON array or a JSON object keyed by arbitrary identifiers.
type PermissionList []Permission

// RoleList is an ordered role sequence with the same decoding rules as
// PermissionList.
type RoleList []Role

// LegacyRole is the single role scalar carried by older user payloads.
type LegacyRole string

// User is the authenticated account as reported by the remote API.
type User struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Role        LegacyRole     `json:"role,omitempty"`
	Roles       RoleList       `json:"roles,omitempty"`
	Permissions PermissionList `json:"permissions,omitempty"`
	Status      string         `json:"status,omitempty"`
	Avatar      string         `json:"avatar,omitempty"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	dup := *u
	dup.Permissions = append(PermissionList(nil), u.Permissions...)
	if u.Roles != nil {
		dup.Roles = make(RoleList, len(u.Roles))
		for i, role := range u.Roles {
			role.Permissions = append(PermissionList(nil), role.Permissions...)
			dup.Roles[i] = role
		}
	}
	return &dup
}
