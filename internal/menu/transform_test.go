package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name, link string, status Status, order int) MenuItem {
	return MenuItem{Name: name, Link: link, Status: status, Order: order}
}

func TestTransformGroups(t *testing.T) {
	types := []MenuType{{
		Name:   "Main Navigation",
		Status: StatusActive,
		Groups: []MenuGroup{
			{Name: "Media", Status: StatusActive, Order: 2, Items: []MenuItem{
				item("Gallery", "/gallery", StatusActive, 1),
				item("Archive", "/archive", StatusInactive, 2),
				item("News", "/news", StatusActive, 3),
			}},
			{Name: "About", Status: StatusActive, Order: 1, Items: []MenuItem{
				item("About us", "/about-us", StatusActive, 1),
			}},
			{Name: "Empty", Status: StatusActive, Order: 3, Items: []MenuItem{
				item("Hidden", "/hidden", StatusInactive, 1),
			}},
			{Name: "Band Members", Status: StatusActive, Order: 4, Items: []MenuItem{
				item("Members", "", StatusActive, 1),
			}},
			{Name: "Disabled", Status: StatusInactive, Order: 0, Items: []MenuItem{
				item("X", "/x", StatusActive, 1),
			}},
		},
	}}

	nav, ok := Transform(types)
	require.True(t, ok)
	require.Len(t, nav, 4)

	assert.Equal(t, "About", nav[0].Name)
	assert.Equal(t, "/about-us", nav[0].Href)
	assert.False(t, nav[0].HasDropdown())

	assert.Equal(t, "Media", nav[1].Name)
	require.Len(t, nav[1].Dropdown, 2)
	assert.Equal(t, "Gallery", nav[1].Dropdown[0].Name)
	assert.Equal(t, "News", nav[1].Dropdown[1].Name)

	assert.Equal(t, "/band-members", nav[2].Href)
	assert.Equal(t, LoginEntry, nav[3])
}

func TestTransformStableOrderForTies(t *testing.T) {
	types := []MenuType{{Name: "Header", Status: StatusActive, Groups: []MenuGroup{
		{Name: "B", Status: StatusActive, Items: []MenuItem{item("b", "/b", StatusActive, 0)}},
		{Name: "A", Status: StatusActive, Items: []MenuItem{item("a", "/a", StatusActive, 0)}},
	}}}

	nav, ok := Transform(types)
	require.True(t, ok)
	assert.Equal(t, "B", nav[0].Name)
	assert.Equal(t, "A", nav[1].Name)
}

func TestSelectTypePrefersPrimaryNavigation(t *testing.T) {
	types := []MenuType{
		{Name: "Footer", Status: StatusActive},
		{Name: "Primary", Status: StatusInactive},
		{Name: "Site Navigation", Status: StatusActive},
	}
	selected, ok := SelectType(types)
	require.True(t, ok)
	assert.Equal(t, "Site Navigation", selected.Name)

	selected, ok = SelectType(types[:2])
	require.True(t, ok)
	assert.Equal(t, "Footer", selected.Name)

	_, ok = SelectType([]MenuType{{Name: "Main", Status: StatusInactive}})
	assert.False(t, ok)
}

func TestTransformWithoutTypes(t *testing.T) {
	nav, ok := Transform(nil)
	assert.False(t, ok)
	assert.Nil(t, nav)
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Band Members":       "band-members",
		"  Café & Crème  ":   "cafe-creme",
		"Welcome--Messages!": "welcome-messages",
		"":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestIconForDefaults(t *testing.T) {
	assert.Equal(t, "house", IconFor(" Home "))
	assert.Equal(t, DefaultIcon, IconFor("unknown"))
	assert.Equal(t, DefaultIcon, IconFor(""))
}

func TestDecodeTaxonomyEnvelope(t *testing.T) {
	types, err := DecodeTaxonomy([]byte(`{"data":[{"id":1,"name":"Main","status":1,"menu_groups":[{"name":"Home","status":"active","menu_items":[{"name":"Home","link":"/","status":true}]}]}]}`))
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.True(t, types[0].Status.Active())
	assert.True(t, types[0].Groups[0].Items[0].Status.Active())

	types, err = DecodeTaxonomy([]byte(`[{"name":"Main","status":"inactive"}]`))
	require.NoError(t, err)
	assert.False(t, types[0].Status.Active())
}

func TestDefaultNavigationIsACopy(t *testing.T) {
	nav := DefaultNavigation()
	require.NotEmpty(t, nav)
	assert.Equal(t, "Login", nav[len(nav)-1].Name)

	nav[4].Dropdown[0].Name = "changed"
	assert.Equal(t, "Gallery", DefaultNavigation()[4].Dropdown[0].Name)
}
