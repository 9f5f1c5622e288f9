package navigation

func crud(key, name, href, icon string) Entry {
	return Entry{
		Key:         key,
		Name:        name,
		Href:        href,
		Icon:        icon,
		Permissions: []string{"view_" + key, "manage_" + key},
	}
}

var backOffice = []Entry{
	{Key: "dashboard", Name: "Dashboard", Href: "/admin", Icon: "gauge", AlwaysVisible: true},
	crud("sliders", "Sliders", "/admin/sliders", "images"),
	crud("news", "News", "/admin/news", "newspaper"),
	crud("services", "Services", "/admin/services", "briefcase"),
	crud("gallery", "Gallery", "/admin/gallery", "image"),
	crud("band_members", "Band Members", "/admin/band-members", "users"),
	crud("guides", "Guides", "/admin/guides", "book-open"),
	crud("welcome_messages", "Welcome Messages", "/admin/welcome-messages", "message-square"),
	crud("menus", "Menus", "/admin/menus", "list"),
	{Key: "access", Name: "Access Control", Href: "#", Icon: "shield", Children: []Entry{
		crud("users", "Users", "/admin/users", "user"),
		crud("roles", "Roles", "/admin/roles", "key"),
	}},
}

// BackOffice returns a copy of the declarative back-office navigation.
func BackOffice() []Entry {
	return cloneEntries(backOffice)
}

func cloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Permissions = append([]string(nil), e.Permissions...)
		e.Children = cloneEntries(e.Children)
		out[i] = e
	}
	return out
}
