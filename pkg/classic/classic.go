// Package classic models the legacy story documents produced by the
// historical authoring templates. The shapes are wildly inconsistent between
// templates, so decoding is deliberately loose: every field is optional and
// flexible fields accept more than one JSON shape.
package classic

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/atlastales/storygraph/pkg/geo"
)

// Document is a legacy story document: an item identity plus a values object
// whose shape depends on the authoring template.
type Document struct {
	ItemID string `json:"item,omitempty"`
	Title  string `json:"title,omitempty"`
	Values Values `json:"values"`

	// Raw keeps the original JSON for structural fingerprinting.
	Raw []byte `json:"-"`
}

// Values carries the template-specific fields. Only the fields a given
// template writes are ever present.
type Values struct {
	Template string `json:"template,omitempty"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Layout   string `json:"layout,omitempty"`

	// Journal-family documents.
	Story *Story `json:"story,omitempty"`

	// Swipe documents.
	WebMap    FlexID   `json:"webmap,omitempty"`
	WebMaps   []FlexID `json:"webmaps,omitempty"`
	DataModel string   `json:"dataModel,omitempty"`
	Layers    []Layer  `json:"layers,omitempty"`

	// Tour documents.
	Order []Place `json:"order,omitempty"`

	// Series documents.
	Series  []Entry `json:"series,omitempty"`
	Entries []Entry `json:"entries,omitempty"`

	Settings *Settings `json:"settings,omitempty"`
}

// FlexID tolerates both a bare string id and an object carrying an id field.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	*f = FlexID(gjson.GetBytes(data, "id").String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// Story is the section list of a journal-family document.
type Story struct {
	Sections []Section `json:"sections,omitempty"`
}

// Section is one narrative unit: rich markup content, an optional primary
// media, and the declared content actions its anchors reference.
type Section struct {
	Title          string   `json:"title,omitempty"`
	Type           string   `json:"type,omitempty"`
	Content        string   `json:"content,omitempty"`
	Media          *Media   `json:"media,omitempty"`
	ContentActions []Action `json:"contentActions,omitempty"`
}

// Action is a declared content action referenced from section markup by id.
type Action struct {
	ID    string `json:"id"`
	Type  string `json:"type"` // "media" or "navigate"
	Index int    `json:"index,omitempty"`
	Media *Media `json:"media,omitempty"`
}

// Action types as written by the legacy templates.
const (
	ActionTypeMedia    = "media"
	ActionTypeNavigate = "navigate"
)

// Media is the legacy discriminated media union.
type Media struct {
	Type    string        `json:"type,omitempty"` // webmap | image | video | webpage
	WebMap  *MediaWebMap  `json:"webmap,omitempty"`
	Image   *MediaImage   `json:"image,omitempty"`
	Video   *MediaVideo   `json:"video,omitempty"`
	WebPage *MediaWebPage `json:"webpage,omitempty"`
}

// MediaWebMap is a webmap reference with optional explicit view state and
// per-layer visibility overrides.
type MediaWebMap struct {
	ID      FlexID      `json:"id,omitempty"`
	Extent  *geo.Extent `json:"extent,omitempty"`
	Center  *geo.Point  `json:"center,omitempty"`
	Zoom    int         `json:"zoom,omitempty"`
	Layers  []Layer     `json:"layers,omitempty"`
	AltText string      `json:"altText,omitempty"`
}

type MediaImage struct {
	URL     string `json:"url,omitempty"`
	Caption string `json:"caption,omitempty"`
	AltText string `json:"altText,omitempty"`
}

type MediaVideo struct {
	URL string `json:"url,omitempty"`
}

type MediaWebPage struct {
	URL string `json:"url,omitempty"`
}

// Layer is an operational layer reference with a visibility flag.
type Layer struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	Visibility bool   `json:"visibility"`
}

// Place is one tour stop, either from an explicit order list or extracted
// from a linked feature layer. Coordinates appear as flat lat/lng attribute
// fields or as an explicit geometry object depending on the tour's vintage.
type Place struct {
	Title       string    `json:"title,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	PicURL      string    `json:"pic_url,omitempty"`
	ThumbURL    string    `json:"thumb_url,omitempty"`
	IsVideo     bool      `json:"is_video,omitempty"`
	Lat         float64   `json:"lat,omitempty"`
	Lng         float64   `json:"lng,omitempty"`
	Geometry    *Geometry `json:"geometry,omitempty"`
}

// Geometry is an explicit point geometry on a tour place.
type Geometry struct {
	X                float64               `json:"x"`
	Y                float64               `json:"y"`
	SpatialReference *geo.SpatialReference `json:"spatialReference,omitempty"`
}

// Entry is one element of a multi-entry series document. Nested legacy
// documents embed their values inline.
type Entry struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Media       *Media  `json:"media,omitempty"`
	Values      *Values `json:"values,omitempty"`
}

// Settings carries theme and layout intent.
type Settings struct {
	Theme  *Theme          `json:"theme,omitempty"`
	Layout *LayoutSettings `json:"layout,omitempty"`
	Panel  *PanelSettings  `json:"panel,omitempty"`
}

// Theme is the legacy color configuration.
type Theme struct {
	Colors *ThemeColors `json:"colors,omitempty"`
}

// ThemeColors names a color group plus the individual slot colors.
type ThemeColors struct {
	Name  string `json:"name,omitempty"`
	Group string `json:"group,omitempty"` // "dark" or "light"
	Panel string `json:"panel,omitempty"`
	Text  string `json:"text,omitempty"`
	Media string `json:"media,omitempty"`
	Esri  string `json:"esriLogo,omitempty"`
}

// LayoutSettings identifies the chosen layout, e.g. "float" for the floating
// panel layout.
type LayoutSettings struct {
	ID string `json:"id,omitempty"`
}

// PanelSettings carries the shared panel sizing of a series collection.
type PanelSettings struct {
	Position string `json:"position,omitempty"`
	Size     string `json:"size,omitempty"`
}

// Parse decodes a legacy document, tolerating missing fields. Only documents
// that are not JSON objects at all are rejected.
func Parse(raw []byte) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("legacy document is not valid JSON")
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode legacy document: %w", err)
	}
	doc.Raw = raw
	return &doc, nil
}

// MediaURL returns the single URL a media union references, if any.
func (m *Media) MediaURL() string {
	if m == nil {
		return ""
	}
	switch {
	case m.Image != nil:
		return m.Image.URL
	case m.Video != nil:
		return m.Video.URL
	case m.WebPage != nil:
		return m.WebPage.URL
	}
	return ""
}

// DisplayTitle returns the place title, falling back to the feature name.
func (p *Place) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}
