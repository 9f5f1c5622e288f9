package rbac

import "strings"

// EffectivePermissions returns the user's direct permissions followed by the
// permissions embedded in their roles, deduplicated in first-seen order.
func EffectivePermissions(u *User) []string {
	if u == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(u.Permissions))
	out := make([]string, 0, len(u.Permissions))
	add := func(perms PermissionList) {
		for _, p := range perms {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			out = append(out, p.Name)
		}
	}
	add(u.Permissions)
	for _, role := range u.Roles {
		add(role.Permissions)
	}
	return out
}

// HasPermission reports whether the user holds the named permission.
func HasPermission(u *User, name string) bool {
	if u == nil {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, p := range EffectivePermissions(u) {
		if p == name {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the user holds at least one of names.
func HasAnyPermission(u *User, names []string) bool {
	if u == nil {
		return false
	}
	return hasAnyPermission(EffectivePermissions(u), names)
}

// HasAllPermissions reports whether the user holds every one of names.
func HasAllPermissions(u *User, names []string) bool {
	if u == nil {
		return false
	}
	return hasAllPermissions(EffectivePermissions(u), names)
}

// HasRole checks the role collection first and only falls back to the legacy
// scalar when the user has no explicit role assignment.
func HasRole(u *User, name string) bool {
	if u == nil {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if len(u.Roles) > 0 {
		for _, role := range u.Roles {
			if role.Name == name {
				return true
			}
		}
		return false
	}
	return string(u.Role) == name
}

// IsSuperAdmin checks both the legacy scalar and the role collection for the
// super admin role. Unlike HasRole, an explicit role list does not hide the
// legacy scalar here.
func IsSuperAdmin(u *User) bool {
	if u == nil {
		return false
	}
	if isSuperAdminName(string(u.Role)) {
		return true
	}
	for _, role := range u.Roles {
		if isSuperAdminName(role.Name) {
			return true
		}
	}
	return false
}

func isSuperAdminName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name == SuperAdminRole
}

func hasAnyPermission(granted []string, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[strings.TrimSpace(r)]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[strings.TrimSpace(r)]; !ok {
			return false
		}
	}
	return true
}
