package menu

import "strings"

// DefaultIcon is rendered for unknown or empty icon keys.
const DefaultIcon = "circle"

var icons = map[string]string{
	"home":      "house",
	"house":     "house",
	"about":     "info",
	"info":      "info",
	"services":  "briefcase",
	"briefcase": "briefcase",
	"guides":    "book-open",
	"guide":     "book-open",
	"book":      "book-open",
	"media":     "film",
	"gallery":   "image",
	"image":     "image",
	"news":      "newspaper",
	"contact":   "mail",
	"mail":      "mail",
	"band":      "users",
	"users":     "users",
	"music":     "music",
	"calendar":  "calendar",
	"login":     "log-in",
}

// IconFor maps a stored icon key to the icon rendered by the front end.
func IconFor(key string) string {
	if icon, ok := icons[strings.ToLower(strings.TrimSpace(key))]; ok {
		return icon
	}
	return DefaultIcon
}
