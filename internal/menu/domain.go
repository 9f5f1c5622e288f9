package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Status marks whether a taxonomy node participates in navigation.
type Status string

// Known statuses.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Active reports whether the node is active.
func (s Status) Active() bool {
	return s == StatusActive
}

// UnmarshalJSON accepts "active"/"inactive" strings, booleans and 0/1.
func (s *Status) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch string(trimmed) {
	case "true", "1", `"1"`:
		*s = StatusActive
		return nil
	case "false", "0", `"0"`, "null":
		*s = StatusInactive
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("menu: status: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(raw), string(StatusActive)) {
		*s = StatusActive
	} else {
		*s = StatusInactive
	}
	return nil
}

// MenuType is the top level of the menu taxonomy, e.g. "Main Navigation".
type MenuType struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Status Status      `json:"status"`
	Order  int         `json:"order"`
	Groups []MenuGroup `json:"menu_groups"`
}

// MenuGroup is a navigation entry candidate.
type MenuGroup struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Status Status     `json:"status"`
	Order  int        `json:"order"`
	Icon   string     `json:"icon,omitempty"`
	Items  []MenuItem `json:"menu_items"`
}

// MenuItem is a leaf link within a group.
type MenuItem struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Link   string `json:"link,omitempty"`
	Status Status `json:"status"`
	Order  int    `json:"order"`
	Icon   string `json:"icon,omitempty"`
}

// NavigationItem is the flattened view-model rendered by the site header.
type NavigationItem struct {
	Name     string          `json:"name"`
	Href     string          `json:"href"`
	Icon     string          `json:"icon,omitempty"`
	Dropdown []DropdownEntry `json:"dropdown,omitempty"`
}

// DropdownEntry describes one child of a dropdown navigation item.
type DropdownEntry struct {
	Name string `json:"name"`
	Href string `json:"href"`
	Icon string `json:"icon,omitempty"`
}

// HasDropdown reports whether the entry renders as a dropdown.
func (n NavigationItem) HasDropdown() bool {
	return len(n.Dropdown) > 0
}

// DecodeTaxonomy parses a menu-structure payload that is either a bare array
// or wrapped in a {"data": [...]} envelope.
func DecodeTaxonomy(data []byte) ([]MenuType, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("menu: empty payload")
	}
	if trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("menu: decode envelope: %w", err)
		}
		trimmed = bytes.TrimSpace(envelope.Data)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil, nil
		}
	}
	var types []MenuType
	if err := json.Unmarshal(trimmed, &types); err != nil {
		return nil, fmt.Errorf("menu: decode taxonomy: %w", err)
	}
	return types, nil
}

func cloneNavigation(items []NavigationItem) []NavigationItem {
	if items == nil {
		return nil
	}
	out := make([]NavigationItem, len(items))
	for i, item := range items {
		item.Dropdown = append([]DropdownEntry(nil), item.Dropdown...)
		out[i] = item
	}
	return out
}
