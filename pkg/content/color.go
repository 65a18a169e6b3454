package content

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// namedColors maps the CSS color keywords seen in legacy documents to 6-digit
// hex values.
var namedColors = map[string]string{
	"black":     "000000",
	"white":     "ffffff",
	"red":       "ff0000",
	"green":     "008000",
	"blue":      "0000ff",
	"yellow":    "ffff00",
	"orange":    "ffa500",
	"purple":    "800080",
	"gray":      "808080",
	"grey":      "808080",
	"silver":    "c0c0c0",
	"maroon":    "800000",
	"olive":     "808000",
	"lime":      "00ff00",
	"aqua":      "00ffff",
	"cyan":      "00ffff",
	"teal":      "008080",
	"navy":      "000080",
	"fuchsia":   "ff00ff",
	"magenta":   "ff00ff",
	"brown":     "a52a2a",
	"pink":      "ffc0cb",
	"gold":      "ffd700",
	"beige":     "f5f5dc",
	"coral":     "ff7f50",
	"crimson":   "dc143c",
	"darkblue":  "00008b",
	"darkgreen": "006400",
	"darkred":   "8b0000",
	"darkgray":  "a9a9a9",
	"lightgray": "d3d3d3",
	"lightblue": "add8e6",
	"tomato":    "ff6347",
	"turquoise": "40e0d0",
	"violet":    "ee82ee",
	"indigo":    "4b0082",
	"khaki":     "f0e68c",
	"lavender":  "e6e6fa",
	"salmon":    "fa8072",
	"sienna":    "a0522d",
	"tan":       "d2b48c",
	"plum":      "dda0dd",
	"orchid":    "da70d6",
	"steelblue": "4682b4",
	"slategray": "708090",
	"seagreen":  "2e8b57",
	"royalblue": "4169e1",
	"skyblue":   "87ceeb",
	"chocolate": "d2691e",
	"firebrick": "b22222",
	"hotpink":   "ff69b4",
	"goldenrod": "daa520",
	"dimgray":   "696969",
	"gainsboro": "dcdcdc",
	"ivory":     "fffff0",
	"snow":      "fffafa",
}

var reRGB = regexp.MustCompile(`(?i)^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})`)

// resolveColor resolves a CSS color value (hex, rgb()/rgba(), or keyword) to
// a lowercase 6-digit hex string without the leading '#'.
func resolveColor(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}

	if strings.HasPrefix(value, "#") {
		hex := value[1:]
		switch len(hex) {
		case 3:
			var b strings.Builder
			for _, c := range hex {
				b.WriteRune(c)
				b.WriteRune(c)
			}
			hex = b.String()
		case 6:
		default:
			return "", false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", false
		}
		return hex, true
	}

	if m := reRGB.FindStringSubmatch(value); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		if r > 255 || g > 255 || b > 255 {
			return "", false
		}
		return fmt.Sprintf("%02x%02x%02x", r, g, b), true
	}

	if hex, ok := namedColors[value]; ok {
		return hex, true
	}
	return "", false
}

// colorClass is the generated class name encoding a resolved text color, so
// the output theme system can re-skin text without inline styles.
func colorClass(hex string) string {
	return "sg-color-" + hex
}

var (
	reTagWithStyle = regexp.MustCompile(`(?i)<[a-z][a-z0-9]*\b[^>]*\bstyle\s*=\s*("[^"]*"|'[^']*')[^>]*>`)
	reStyleAttr    = regexp.MustCompile(`(?i)\bstyle\s*=\s*("[^"]*"|'[^']*')`)
	reClassAttr    = regexp.MustCompile(`(?i)\bclass\s*=\s*("[^"]*"|'[^']*')`)
)

// rewriteInlineColors rewrites inline `color:` declarations inside a markup
// slice: the color value is resolved to hex and replaced by a generated class
// name, and the declaration is removed from the style attribute (the style
// attribute itself is dropped when it becomes empty).
func rewriteInlineColors(fragment string) string {
	return reTagWithStyle.ReplaceAllStringFunc(fragment, func(tag string) string {
		styleMatch := reStyleAttr.FindStringSubmatch(tag)
		if styleMatch == nil {
			return tag
		}
		style := strings.Trim(styleMatch[1], `"'`)

		var kept []string
		hex := ""
		for _, decl := range strings.Split(style, ";") {
			name, value, found := strings.Cut(decl, ":")
			if !found {
				if strings.TrimSpace(decl) != "" {
					kept = append(kept, decl)
				}
				continue
			}
			if strings.EqualFold(strings.TrimSpace(name), "color") {
				if resolved, ok := resolveColor(value); ok {
					hex = resolved
					continue
				}
			}
			kept = append(kept, decl)
		}
		if hex == "" {
			return tag
		}

		newStyle := strings.TrimSpace(strings.Join(kept, ";"))
		if newStyle == "" {
			tag = reStyleAttr.ReplaceAllString(tag, "")
			tag = strings.ReplaceAll(tag, "  ", " ")
			tag = strings.Replace(tag, " >", ">", 1)
		} else {
			tag = reStyleAttr.ReplaceAllString(tag, `style="`+newStyle+`"`)
		}

		if classMatch := reClassAttr.FindStringSubmatch(tag); classMatch != nil {
			existing := strings.Trim(classMatch[1], `"'`)
			tag = reClassAttr.ReplaceAllString(tag, `class="`+existing+" "+colorClass(hex)+`"`)
		} else {
			idx := strings.Index(tag, ">")
			insert := ` class="` + colorClass(hex) + `"`
			if strings.HasSuffix(tag[:idx], "/") {
				idx--
			}
			tag = tag[:idx] + insert + tag[idx:]
		}
		return tag
	})
}
