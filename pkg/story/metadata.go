package story

import "strings"

// ConverterMetadata is the typed payload of the single classic-converter
// resource a document may carry. Multiple conversion passes enrich the same
// record through MergeConverterMetadata instead of creating duplicates.
type ConverterMetadata struct {
	Version     int               `json:"version"`
	ClassicType string            `json:"classicType,omitempty"`
	Theme       *ThemeMetadata    `json:"theme,omitempty"`
	Decisions   []MappingDecision `json:"decisions,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	CustomCSS   string            `json:"customCss,omitempty"`
}

// ConverterMetadataVersion is the current schema version of the
// classic-converter resource payload.
const ConverterMetadataVersion = 1

// ThemeMetadata records the theme intent derived from the legacy document.
type ThemeMetadata struct {
	BaseTheme string            `json:"baseTheme,omitempty"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// MappingDecision records one conversion choice that a reviewer may want to
// audit, e.g. which layout a legacy template was mapped to.
type MappingDecision struct {
	Source  string `json:"source"`
	Outcome string `json:"outcome"`
}

// MergeConverterMetadata merges payload into the document's classic-converter
// resource, creating the resource on first call. The operation is idempotent:
// a second call with an overlapping payload yields the union, with the second
// call's scalar fields winning ties. The resource is relocated to the end of
// the resource iteration order so consumers always read the latest merge last.
func (b *Builder) MergeConverterMetadata(classicType string, payload ConverterMetadata) (string, error) {
	if b.metadata == nil {
		meta := payload
		meta.Version = ConverterMetadataVersion
		if classicType != "" {
			meta.ClassicType = classicType
		}
		id, err := b.AddResource(ResourceTypeConverterMetadata, Data{"classicMetadata": &meta})
		if err != nil {
			return "", err
		}
		b.metadata = &meta
		b.metadataID = id
		return id, nil
	}

	mergeMetadata(b.metadata, classicType, payload)

	for i, id := range b.resourceOrder {
		if id == b.metadataID {
			b.resourceOrder = append(b.resourceOrder[:i], b.resourceOrder[i+1:]...)
			b.resourceOrder = append(b.resourceOrder, id)
			break
		}
	}

	return b.metadataID, nil
}

func mergeMetadata(dst *ConverterMetadata, classicType string, src ConverterMetadata) {
	if classicType != "" {
		dst.ClassicType = classicType
	} else if src.ClassicType != "" {
		dst.ClassicType = src.ClassicType
	}

	if src.Theme != nil {
		if dst.Theme == nil {
			dst.Theme = &ThemeMetadata{}
		}
		if src.Theme.BaseTheme != "" {
			dst.Theme.BaseTheme = src.Theme.BaseTheme
		}
		if len(src.Theme.Overrides) > 0 {
			if dst.Theme.Overrides == nil {
				dst.Theme.Overrides = make(map[string]string, len(src.Theme.Overrides))
			}
			for k, v := range src.Theme.Overrides {
				dst.Theme.Overrides[k] = v
			}
		}
	}

	for _, d := range src.Decisions {
		if !containsDecision(dst.Decisions, d) {
			dst.Decisions = append(dst.Decisions, d)
		}
	}

	for _, w := range src.Warnings {
		if !containsString(dst.Warnings, w) {
			dst.Warnings = append(dst.Warnings, w)
		}
	}

	if src.CustomCSS != "" && !strings.Contains(dst.CustomCSS, src.CustomCSS) {
		if dst.CustomCSS == "" {
			dst.CustomCSS = src.CustomCSS
		} else {
			dst.CustomCSS += "\n" + src.CustomCSS
		}
	}
}

func containsDecision(list []MappingDecision, d MappingDecision) bool {
	for _, have := range list {
		if have == d {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}
