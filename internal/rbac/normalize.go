package rbac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DecodeUser parses a user payload and normalizes it. It is the ingestion
// boundary for login responses, server refreshes and storage restores.
func DecodeUser(data []byte) (*User, error) {
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("rbac: decode user: %w", err)
	}
	Normalize(&user)
	return &user, nil
}

// Normalize trims names and drops unnamed entries so membership tests can
// assume a clean ordered sequence.
func Normalize(u *User) {
	if u == nil {
		return
	}
	u.Role = LegacyRole(strings.TrimSpace(string(u.Role)))
	u.Permissions = normalizePermissionList(u.Permissions)
	roles := make(RoleList, 0, len(u.Roles))
	for _, role := range u.Roles {
		role.Name = strings.TrimSpace(role.Name)
		if role.Name == "" {
			continue
		}
		role.Permissions = normalizePermissionList(role.Permissions)
		roles = append(roles, role)
	}
	u.Roles = roles
}

func normalizePermissionList(perms PermissionList) PermissionList {
	out := make(PermissionList, 0, len(perms))
	for _, p := range perms {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UnmarshalJSON accepts an array or a keyed object of permissions, each
// element being either a plain name or an object with a name field.
func (l *PermissionList) UnmarshalJSON(data []byte) error {
	elems, err := sequenceElements(data)
	if err != nil {
		return fmt.Errorf("permissions: %w", err)
	}
	out := make(PermissionList, 0, len(elems))
	for _, raw := range elems {
		if name, ok := plainName(raw); ok {
			out = append(out, Permission{Name: name})
			continue
		}
		var p Permission
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("permissions: %w", err)
		}
		out = append(out, p)
	}
	*l = out
	return nil
}

// UnmarshalJSON accepts an array or a keyed object of roles.
func (l *RoleList) UnmarshalJSON(data []byte) error {
	elems, err := sequenceElements(data)
	if err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	out := make(RoleList, 0, len(elems))
	for _, raw := range elems {
		if name, ok := plainName(raw); ok {
			out = append(out, Role{Name: name})
			continue
		}
		var r Role
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("roles: %w", err)
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

// UnmarshalJSON accepts a plain string or an object carrying a name.
func (r *LegacyRole) UnmarshalJSON(data []byte) error {
	if name, ok := plainName(data); ok {
		*r = LegacyRole(name)
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = ""
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("role: %w", err)
	}
	*r = LegacyRole(obj.Name)
	return nil
}

// sequenceElements flattens a JSON array or object into ordered raw elements.
// Object values are ordered by key, numerically when every key is an integer.
func sequenceElements(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		return elems, nil
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sortKeys(keys)
		elems := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			elems = append(elems, keyed[k])
		}
		return elems, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", trimmed[0])
	}
}

func sortKeys(keys []string) {
	numeric := true
	for _, k := range keys {
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
			break
		}
	}
	if !numeric {
		sort.Strings(keys)
		return
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
}

func plainName(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var name string
	if err := json.Unmarshal(trimmed, &name); err != nil {
		return "", false
	}
	return name, true
}
