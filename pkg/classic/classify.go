package classic

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Template labels the legacy authoring template a document came from.
type Template string

const (
	TemplateJournal    Template = "journal"
	TemplateSwipe      Template = "swipe"
	TemplateTour       Template = "tour"
	TemplateSeries     Template = "series"
	TemplateSequential Template = "sequential"
	TemplateBasic      Template = "basic"
)

// Classify determines the template of a legacy document from its raw JSON.
// The declared template field wins when recognizable; otherwise structural
// fingerprints decide. Classify never fails: documents with no recognizable
// shape are treated as basic single-view stories.
func Classify(raw []byte) Template {
	declared := strings.ToLower(gjson.GetBytes(raw, "values.template").String())
	switch {
	case strings.Contains(declared, "journal"):
		return TemplateJournal
	case strings.Contains(declared, "swipe"), strings.Contains(declared, "spyglass"):
		return TemplateSwipe
	case strings.Contains(declared, "tour"):
		return TemplateTour
	case strings.Contains(declared, "series"):
		return TemplateSeries
	case strings.Contains(declared, "basic"):
		return TemplateBasic
	}

	if gjson.GetBytes(raw, "values.series").IsArray() || gjson.GetBytes(raw, "values.entries").IsArray() {
		return TemplateSeries
	}
	if gjson.GetBytes(raw, "values.order").Exists() {
		return TemplateTour
	}
	if gjson.GetBytes(raw, "values.dataModel").Exists() ||
		gjson.GetBytes(raw, "values.layers").IsArray() ||
		gjson.GetBytes(raw, "values.webmaps").IsArray() {
		return TemplateSwipe
	}

	sections := gjson.GetBytes(raw, "values.story.sections")
	if sections.IsArray() {
		sequential := false
		sections.ForEach(func(_, section gjson.Result) bool {
			if section.Get("type").String() == "sequence" {
				sequential = true
				return false
			}
			return true
		})
		if sequential {
			return TemplateSequential
		}
		return TemplateJournal
	}

	return TemplateBasic
}

// ClassifyEntry determines the template of a nested series entry, preferring
// the entry's inline values and falling back to its URL shape.
func ClassifyEntry(entry gjson.Result) Template {
	if entry.Get("values").Exists() {
		return Classify([]byte("{" + `"values":` + entry.Get("values").Raw + "}"))
	}
	url := strings.ToLower(entry.Get("url").String())
	switch {
	case strings.Contains(url, "journal"):
		return TemplateJournal
	case strings.Contains(url, "swipe"):
		return TemplateSwipe
	case strings.Contains(url, "tour"):
		return TemplateTour
	}
	return TemplateBasic
}
