package convert

import (
	"context"
	"strings"

	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/content"
	"github.com/atlastales/storygraph/pkg/story"
)

// convertJournal builds one immersive container with a slide per legacy
// section. Sequential and basic documents run through the same pipeline:
// sequential already carries a section list, basic synthesizes one section
// around its main webmap.
func (c *converter) convertJournal(ctx context.Context) error {
	sections := c.sections()
	report(c.opts, Event{Stage: StageStructure, Total: len(sections)})

	if _, err := c.b.CreateRoot(story.Data{"title": c.storyTitle()}); err != nil {
		return err
	}
	root := c.b.Root()

	cover, err := c.b.AddNode(story.NodeTypeCover, story.Data{
		"title":    c.storyTitle(),
		"subtitle": c.values.Subtitle,
	}, nil)
	if err != nil {
		return err
	}
	nav, err := c.b.AddNode(story.NodeTypeNavigation, nil, nil)
	if err != nil {
		return err
	}
	c.b.AppendChild(root, cover)
	c.b.AppendChild(root, nav)

	immersive, err := c.b.AddNode(story.NodeTypeImmersive, story.Data{
		"type":    "sidecar",
		"subtype": journalSubtype(c.values),
	}, nil)
	if err != nil {
		return err
	}
	c.b.AppendChild(root, immersive)

	type sectionBuild struct {
		section *classic.Section
		slide   string
		heading string
		out     *content.Output
	}
	builds := make([]sectionBuild, 0, len(sections))

	popts := c.parseOptions(ctx)
	for i := range sections {
		if err := c.checkCancelled(ctx); err != nil {
			return err
		}
		section := &sections[i]

		slide, err := c.b.AddNode(story.NodeTypeImmersiveSlide, nil, nil)
		if err != nil {
			return err
		}
		mediaID, err := c.mediaNode(section.Media)
		if err != nil {
			return err
		}
		if mediaID != "" {
			c.b.AppendChild(slide, mediaID)
		}

		panel, err := c.b.AddNode(story.NodeTypeNarrativePanel, story.Data{
			"position": "start",
			"size":     "medium",
		}, nil)
		if err != nil {
			return err
		}
		c.b.AppendChild(slide, panel)

		heading := ""
		if section.Title != "" {
			heading, err = c.b.AddNode(story.NodeTypeText, story.Data{
				"type": "h2",
				"text": section.Title,
			}, nil)
			if err != nil {
				return err
			}
			c.b.AppendChild(panel, heading)
		}

		out := &content.Output{}
		if section.Content != "" {
			if err := c.parser.Parse(c.b, section.Content, popts, out); err != nil {
				c.warn("section %d content could not be parsed: %v", i+1, err)
			}
		}
		for _, nodeID := range out.NodeIDs {
			c.b.AppendChild(panel, nodeID)
		}
		c.absorb(out)

		c.b.AppendChild(immersive, slide)
		builds = append(builds, sectionBuild{section: section, slide: slide, heading: heading, out: out})
		report(c.opts, Event{Stage: StageContent, Current: i + 1, Total: len(sections)})
	}

	// Resolve pending stubs against each section's declared actions.
	for _, sb := range builds {
		actions := indexActions(sb.section.ContentActions)

		for _, stub := range sb.out.MediaStubs {
			act, ok := actions[stub.ActionID]
			if !ok || act.Type != classic.ActionTypeMedia || act.Media == nil {
				c.warn("media action %q has no usable payload", stub.ActionID)
				continue
			}
			alt, err := c.mediaNode(act.Media)
			if err != nil {
				return err
			}
			if alt == "" {
				c.warn("media action %q produced no media node", stub.ActionID)
				continue
			}
			c.b.AddAction(stub.Button, story.TriggerReplaceMedia, sb.slide, story.Data{"media": alt})
		}

		for _, stub := range sb.out.NavStubs {
			target := ""
			if act, ok := actions[stub.ActionID]; ok &&
				act.Type == classic.ActionTypeNavigate &&
				act.Index >= 0 && act.Index < len(builds) {
				target = builds[act.Index].heading
				if target == "" {
					target = builds[act.Index].slide
				}
			}
			href := "#"
			if target != "" {
				href = "#" + content.HeadingAnchor(target)
			} else {
				c.warn("navigate action %q has no resolvable target section", stub.ActionID)
			}

			if stub.Inline {
				token := stub.Token
				c.b.UpdateNodeData(stub.Node, func(data story.Data) {
					if text, ok := data["text"].(string); ok {
						data["text"] = strings.ReplaceAll(text, token, href)
					}
				})
			} else {
				c.b.UpdateNodeData(stub.Node, func(data story.Data) {
					data["link"] = href
				})
			}
		}
	}

	credits, err := c.b.AddNode(story.NodeTypeCredits, nil, nil)
	if err != nil {
		return err
	}
	c.b.AppendChild(root, credits)
	return nil
}

// sections returns the legacy section list, synthesizing one for basic
// single-view documents. A missing section list is treated as empty.
func (c *converter) sections() []classic.Section {
	if c.values.Story != nil && len(c.values.Story.Sections) > 0 {
		return c.values.Story.Sections
	}
	if id := c.values.WebMap.String(); id != "" {
		return []classic.Section{{
			Title: c.storyTitle(),
			Media: &classic.Media{
				Type:   "webmap",
				WebMap: &classic.MediaWebMap{ID: classic.FlexID(id)},
			},
		}}
	}
	return nil
}

func (c *converter) storyTitle() string {
	if c.values.Title != "" {
		return c.values.Title
	}
	return c.legacy.Title
}

func journalSubtype(values *classic.Values) string {
	if isFloatingLayout(values) {
		return "floating-panel"
	}
	return "docked-panel"
}

func isFloatingLayout(values *classic.Values) bool {
	if values.Layout == "float" {
		return true
	}
	return values.Settings != nil && values.Settings.Layout != nil && values.Settings.Layout.ID == "float"
}

func indexActions(actions []classic.Action) map[string]*classic.Action {
	out := make(map[string]*classic.Action, len(actions))
	for i := range actions {
		if actions[i].ID != "" {
			out[actions[i].ID] = &actions[i]
		}
	}
	return out
}
