package menu

var defaultNavigation = []NavigationItem{
	{Name: "Home", Href: "/", Icon: IconFor("home")},
	{Name: "About", Href: "/about", Icon: IconFor("about")},
	{Name: "Services", Href: "/services", Icon: IconFor("services")},
	{Name: "Guidelines", Href: "/guides", Icon: IconFor("guides")},
	{Name: "Media", Href: "#", Icon: IconFor("media"), Dropdown: []DropdownEntry{
		{Name: "Gallery", Href: "/gallery", Icon: IconFor("gallery")},
		{Name: "News", Href: "/news", Icon: IconFor("news")},
	}},
	{Name: "Contact", Href: "/contact", Icon: IconFor("contact")},
	LoginEntry,
}

// DefaultNavigation returns a copy of the hand-authored navigation served
// when the menu service cannot be used.
func DefaultNavigation() []NavigationItem {
	return cloneNavigation(defaultNavigation)
}
