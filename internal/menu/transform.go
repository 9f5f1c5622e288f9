package menu

import (
	"sort"
	"strings"
)

// LoginEntry is appended to every resolved navigation list.
var LoginEntry = NavigationItem{Name: "Login", Href: "/login", Icon: IconFor("login")}

var primaryHints = []string{"navigation", "primary", "main", "header"}

// SelectType picks the menu type that drives site navigation. A type whose
// name hints at primary navigation wins; otherwise the first active type.
func SelectType(types []MenuType) (MenuType, bool) {
	var first *MenuType
	for i := range types {
		t := &types[i]
		if !t.Status.Active() {
			continue
		}
		name := strings.ToLower(t.Name)
		for _, hint := range primaryHints {
			if strings.Contains(name, hint) {
				return *t, true
			}
		}
		if first == nil {
			first = t
		}
	}
	if first == nil {
		return MenuType{}, false
	}
	return *first, true
}

// Transform flattens the selected menu type into navigation items. The second
// return value is false when no usable menu type exists.
func Transform(types []MenuType) ([]NavigationItem, bool) {
	selected, ok := SelectType(types)
	if !ok {
		return nil, false
	}

	groups := activeGroups(selected.Groups)
	out := make([]NavigationItem, 0, len(groups)+1)
	for _, group := range groups {
		items := activeItems(group.Items)
		switch len(items) {
		case 0:
			continue
		case 1:
			out = append(out, NavigationItem{
				Name: group.Name,
				Href: itemHref(items[0], group.Name),
				Icon: IconFor(group.Icon),
			})
		default:
			dropdown := make([]DropdownEntry, 0, len(items))
			for _, item := range items {
				dropdown = append(dropdown, DropdownEntry{
					Name: item.Name,
					Href: itemHref(item, item.Name),
					Icon: IconFor(item.Icon),
				})
			}
			out = append(out, NavigationItem{
				Name:     group.Name,
				Href:     "#",
				Icon:     IconFor(group.Icon),
				Dropdown: dropdown,
			})
		}
	}
	return append(out, LoginEntry), true
}

func activeGroups(groups []MenuGroup) []MenuGroup {
	out := make([]MenuGroup, 0, len(groups))
	for _, g := range groups {
		if g.Status.Active() {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func activeItems(items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if item.Status.Active() {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func itemHref(item MenuItem, fallbackName string) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	return "/" + Slug(fallbackName)
}
