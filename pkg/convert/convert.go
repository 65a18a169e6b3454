// Package convert turns classic story documents into graph documents. A
// template classifier selects one of four strategies (journal, swipe, tour,
// series); every strategy runs the same four phases (structure, content,
// theme, media) against one graph builder, and the orchestrator finishes the
// run by enriching placeholder map resources and exporting the result.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/content"
	"github.com/atlastales/storygraph/pkg/fetch"
	"github.com/atlastales/storygraph/pkg/story"
)

// Stage identifies a conversion milestone reported through the progress
// callback.
type Stage string

const (
	StageClassified Stage = "classified"
	StageStructure  Stage = "structure"
	StageContent    Stage = "content"
	StageTheme      Stage = "theme"
	StageMedia      Stage = "media"
	StageEnrichment Stage = "enrichment"
	StageCancelled  Stage = "cancelled"
)

// Event is one progress milestone. Current and Total are set only for
// countable stages such as per-resource enrichment.
type Event struct {
	Stage   Stage
	Message string
	Current int
	Total   int
}

// Options configure one conversion run.
type Options struct {
	// Fetcher resolves webmap/webscene definitions for enrichment. When nil,
	// placeholder resources keep their minimal state.
	Fetcher fetch.Fetcher
	// Apps resolves nested legacy applications (embedded compare iframes,
	// series entries linking other stories). When nil, those degrade to
	// generic embeds.
	Apps fetch.AppFetcher
	// Engine selects the markup parser: "dom" (default) or "regex".
	Engine string
	// SuppressMetadata skips the classic-converter metadata resource.
	SuppressMetadata bool
	// ParallelEnrichments caps concurrent definition fetches. Defaults to 4.
	ParallelEnrichments int
	// Progress receives milestone events. May be nil.
	Progress func(Event)
}

// Result is the outcome of one conversion: one document per output story
// (several for series), the de-duplicated list of referenced media URLs, and
// the collection settings a series derives for its caller.
type Result struct {
	Template   classic.Template
	Documents  []*story.Document
	Media      []string
	Collection *CollectionSettings
}

// CollectionSettings is the shared panel/theme block a series document
// carries for the aggregation step that assembles its entries.
type CollectionSettings struct {
	PanelPosition string `json:"panelPosition,omitempty"`
	PanelSize     string `json:"panelSize,omitempty"`
	ThemeID       string `json:"themeId,omitempty"`
}

const maxNestedDepth = 3

// Convert converts a raw classic document into graph documents. Malformed
// fields degrade to defaults; only unparseable JSON, a missing root, or
// cancellation fail the conversion.
func Convert(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	legacy, err := classic.Parse(raw)
	if err != nil {
		return nil, err
	}

	template := classic.Classify(raw)
	report(opts, Event{Stage: StageClassified, Message: string(template)})

	if template == classic.TemplateSeries {
		return convertSeries(ctx, legacy, opts, 0)
	}

	c := newConverter(legacy, template, opts)
	if err := c.run(ctx); err != nil {
		return nil, err
	}
	doc, err := c.finalize(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		Template:  template,
		Documents: []*story.Document{doc},
		Media:     c.media,
	}, nil
}

// converter is the per-document build state shared by the strategies.
type converter struct {
	opts     Options
	template classic.Template
	legacy   *classic.Document
	values   *classic.Values
	parser   content.Parser

	b *story.Builder

	media      []string
	styles     []string
	warnings   []string
	decisions  []story.MappingDecision
	baseTheme  string
	overrides  map[string]string
	swipeNodes []string

	// webmapResources dedupes map resources by item id within one document.
	webmapResources map[string]string

	depth int
}

func newConverter(legacy *classic.Document, template classic.Template, opts Options) *converter {
	return &converter{
		opts:            opts,
		template:        template,
		legacy:          legacy,
		values:          &legacy.Values,
		parser:          content.NewParser(opts.Engine),
		webmapResources: make(map[string]string),
	}
}

// run executes the strategy phases for this converter's template.
func (c *converter) run(ctx context.Context) error {
	b, err := story.NewBuilder()
	if err != nil {
		return err
	}
	c.b = b

	if err := c.checkCancelled(ctx); err != nil {
		return err
	}

	switch c.template {
	case classic.TemplateSwipe:
		err = c.convertSwipe(ctx)
	case classic.TemplateTour:
		err = c.convertTour(ctx)
	default:
		// Journal, sequential and basic share the section pipeline.
		err = c.convertJournal(ctx)
	}
	if err != nil {
		return err
	}

	if err := c.checkCancelled(ctx); err != nil {
		return err
	}
	c.applyTheme()
	report(c.opts, Event{Stage: StageTheme, Message: c.baseTheme})

	report(c.opts, Event{Stage: StageMedia, Total: len(c.media)})
	return nil
}

// finalize enriches placeholder resources, aligns comparison panes, merges
// converter metadata and exports the document.
func (c *converter) finalize(ctx context.Context) (*story.Document, error) {
	if err := c.checkCancelled(ctx); err != nil {
		return nil, err
	}

	if err := enrich(ctx, c.b, c.opts); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report(c.opts, Event{Stage: StageCancelled, Message: "conversion cancelled"})
		}
		return nil, err
	}

	for _, id := range c.swipeNodes {
		alignSwipePanes(c.b, id)
		applySwipeCaptions(c.b, id)
	}

	if !c.opts.SuppressMetadata {
		if _, err := c.b.MergeConverterMetadata(string(c.template), c.metadata()); err != nil {
			return nil, err
		}
	}

	return c.b.Export()
}

func (c *converter) metadata() story.ConverterMetadata {
	meta := story.ConverterMetadata{
		Version:     story.ConverterMetadataVersion,
		ClassicType: string(c.template),
		Decisions:   c.decisions,
		Warnings:    c.warnings,
		CustomCSS:   strings.Join(c.styles, "\n"),
	}
	if c.baseTheme != "" {
		meta.Theme = &story.ThemeMetadata{BaseTheme: c.baseTheme, Overrides: c.overrides}
	}
	return meta
}

func (c *converter) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		report(c.opts, Event{Stage: StageCancelled, Message: "conversion cancelled"})
		return err
	}
	return nil
}

func (c *converter) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *converter) decide(source, outcome string) {
	c.decisions = append(c.decisions, story.MappingDecision{Source: source, Outcome: outcome})
}

func (c *converter) addMedia(url string) {
	if url == "" {
		return
	}
	for _, have := range c.media {
		if have == url {
			return
		}
	}
	c.media = append(c.media, url)
}

// absorb folds a parse output into the converter's accumulators.
func (c *converter) absorb(out *content.Output) {
	for _, url := range out.Media {
		c.addMedia(url)
	}
	c.styles = append(c.styles, out.StyleBlocks...)
}

// parseOptions wires the nested compare resolver when an app fetcher is
// available.
func (c *converter) parseOptions(ctx context.Context) content.Options {
	if c.opts.Apps == nil || c.depth >= maxNestedDepth {
		return content.Options{}
	}
	return content.Options{
		ResolveCompare: func(b *story.Builder, appID string) ([]string, error) {
			raw, err := c.opts.Apps.AppData(ctx, appID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch embedded app %s: %w", appID, err)
			}
			nested, err := classic.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to decode embedded app %s: %w", appID, err)
			}
			if classic.Classify(raw) != classic.TemplateSwipe {
				return nil, fmt.Errorf("embedded app %s is not a comparison story", appID)
			}
			id, err := c.buildSwipeBlock(&nested.Values)
			if err != nil {
				return nil, err
			}
			return []string{id}, nil
		},
	}
}

func report(opts Options, ev Event) {
	if opts.Progress != nil {
		opts.Progress(ev)
	}
}

// rawValues re-encodes a nested values object so it can go through the
// classifier and parser like a top-level document.
func rawValues(values *classic.Values) ([]byte, error) {
	inner, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nested document: %w", err)
	}
	return []byte(`{"values":` + string(inner) + `}`), nil
}
