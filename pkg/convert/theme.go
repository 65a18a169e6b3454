package convert

import (
	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/story"
)

// darkThemeID is the base theme forced onto dark-group documents and onto
// floating-panel documents that carry no legacy theme at all.
const darkThemeID = "obsidian"

type themeResult struct {
	Base      string
	Overrides map[string]string
}

// deriveTheme maps the legacy color settings to a base theme id plus variable
// overrides. Documents that request a floating panel layout without any
// legacy theme force the dark default.
func deriveTheme(values *classic.Values) themeResult {
	var colors *classic.ThemeColors
	if values.Settings != nil && values.Settings.Theme != nil {
		colors = values.Settings.Theme.Colors
	}

	if colors == nil {
		if isFloatingLayout(values) {
			return themeResult{Base: darkThemeID}
		}
		return themeResult{Base: story.DefaultThemeID}
	}

	out := themeResult{Base: story.DefaultThemeID}
	if colors.Group == "dark" {
		out.Base = darkThemeID
	}

	overrides := make(map[string]string)
	if colors.Panel != "" {
		overrides["panel-background"] = colors.Panel
	}
	if colors.Text != "" {
		overrides["text-color"] = colors.Text
	}
	if colors.Media != "" {
		overrides["media-background"] = colors.Media
	}
	if len(overrides) > 0 {
		out.Overrides = overrides
	}
	return out
}

// applyTheme writes the derived theme onto the builder's theme resource and
// records it for converter metadata.
func (c *converter) applyTheme() {
	theme := deriveTheme(c.values)
	c.baseTheme = theme.Base
	c.overrides = theme.Overrides

	c.b.UpdateResourceData(c.b.ThemeResourceID(), func(data story.Data) {
		data["themeId"] = theme.Base
		if len(theme.Overrides) > 0 {
			data["overrides"] = theme.Overrides
		}
	})
	if theme.Base != story.DefaultThemeID {
		c.decide("legacy theme", "mapped to base theme "+theme.Base)
	}
}
