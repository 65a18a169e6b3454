package convert

import (
	"context"
	"html"
	"net/url"

	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/story"
)

// convertSeries builds one independent document per series entry. Entries
// embedding another legacy document are delegated to the matching strategy;
// plain media entries get a single-section document around their media.
func convertSeries(ctx context.Context, legacy *classic.Document, opts Options, depth int) (*Result, error) {
	entries := legacy.Values.Series
	if len(entries) == 0 {
		entries = legacy.Values.Entries
	}
	report(opts, Event{Stage: StageStructure, Total: len(entries)})

	result := &Result{
		Template:   classic.TemplateSeries,
		Collection: collectionSettings(&legacy.Values),
	}
	for i := range entries {
		if err := ctx.Err(); err != nil {
			report(opts, Event{Stage: StageCancelled, Message: "conversion cancelled"})
			return nil, err
		}
		doc, media, err := convertSeriesEntry(ctx, &entries[i], opts, depth)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, doc)
		for _, u := range media {
			result.Media = appendUnique(result.Media, u)
		}
		report(opts, Event{Stage: StageContent, Current: i + 1, Total: len(entries)})
	}

	report(opts, Event{Stage: StageMedia, Total: len(result.Media)})
	return result, nil
}

func convertSeriesEntry(ctx context.Context, entry *classic.Entry, opts Options, depth int) (*story.Document, []string, error) {
	if entry.Values != nil && depth+1 < maxNestedDepth {
		return convertNestedValues(ctx, entry.Title, entry.Values, opts, depth+1)
	}

	if values := fetchEntryApp(ctx, entry, opts); values != nil && depth+1 < maxNestedDepth {
		return convertNestedValues(ctx, entry.Title, values, opts, depth+1)
	}

	section := classic.Section{Title: entry.Title, Media: entry.Media}
	if entry.Description != "" {
		section.Content = "<p>" + html.EscapeString(entry.Description) + "</p>"
	}
	if section.Media == nil && entry.URL != "" {
		section.Media = &classic.Media{
			Type:    "webpage",
			WebPage: &classic.MediaWebPage{URL: entry.URL},
		}
	}

	nested := &classic.Document{
		Title: entry.Title,
		Values: classic.Values{
			Title: entry.Title,
			Story: &classic.Story{Sections: []classic.Section{section}},
		},
	}
	c := newConverter(nested, classic.TemplateJournal, opts)
	c.depth = depth
	if err := c.run(ctx); err != nil {
		return nil, nil, err
	}
	doc, err := c.finalize(ctx)
	if err != nil {
		return nil, nil, err
	}
	return doc, c.media, nil
}

// convertNestedValues runs the full strategy pipeline on an entry's inline
// legacy document.
func convertNestedValues(ctx context.Context, title string, values *classic.Values, opts Options, depth int) (*story.Document, []string, error) {
	raw, err := rawValues(values)
	if err != nil {
		return nil, nil, err
	}
	template := classic.Classify(raw)
	if template == classic.TemplateSeries {
		// A series inside a series is not expanded further.
		template = classic.TemplateJournal
	}

	nested := &classic.Document{Title: title, Values: *values}
	c := newConverter(nested, template, opts)
	c.depth = depth
	if err := c.run(ctx); err != nil {
		return nil, nil, err
	}
	doc, err := c.finalize(ctx)
	if err != nil {
		return nil, nil, err
	}
	return doc, c.media, nil
}

// fetchEntryApp resolves an entry that links another legacy application by
// URL, returning its values when they can be fetched and decoded.
func fetchEntryApp(ctx context.Context, entry *classic.Entry, opts Options) *classic.Values {
	if entry.URL == "" || opts.Apps == nil {
		return nil
	}
	u, err := url.Parse(entry.URL)
	if err != nil {
		return nil
	}
	appID := u.Query().Get("appid")
	if appID == "" {
		appID = u.Query().Get("appID")
	}
	if appID == "" {
		return nil
	}
	raw, err := opts.Apps.AppData(ctx, appID)
	if err != nil {
		return nil
	}
	doc, err := classic.Parse(raw)
	if err != nil {
		return nil
	}
	return &doc.Values
}

func collectionSettings(values *classic.Values) *CollectionSettings {
	cs := &CollectionSettings{ThemeID: deriveTheme(values).Base}
	if values.Settings != nil && values.Settings.Panel != nil {
		cs.PanelPosition = values.Settings.Panel.Position
		cs.PanelSize = values.Settings.Panel.Size
	}
	return cs
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
