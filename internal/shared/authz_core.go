package shared

// Menu permissions guard the navigation refresh endpoint.
const (
	PermMenusView   = "view_menus"
	PermMenusManage = "manage_menus"
)

// ContentResources lists the back-office resources gated by view_/manage_
// permission pairs.
var ContentResources = []string{
	"sliders",
	"news",
	"services",
	"gallery",
	"band_members",
	"guides",
	"welcome_messages",
	"menus",
	"users",
	"roles",
}

// CoreScopes lists every permission the back office knows about.
func CoreScopes() []string {
	scopes := make([]string, 0, len(ContentResources)*2)
	for _, resource := range ContentResources {
		scopes = append(scopes, "view_"+resource, "manage_"+resource)
	}
	return scopes
}
