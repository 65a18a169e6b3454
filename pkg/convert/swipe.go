package convert

import (
	"context"
	"errors"
	"strings"

	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/geo"
	"github.com/atlastales/storygraph/pkg/story"
)

// ErrCompareFallback signals that a comparison block could not be built or
// repaired and the document should carry a generic embed instead.
var ErrCompareFallback = errors.New("convert: comparison block could not be built")

// convertSwipe builds a comparison document: two webmap panes under one swipe
// node, falling back to a generic embed when the comparison cannot be
// assembled from the legacy model.
func (c *converter) convertSwipe(ctx context.Context) error {
	report(c.opts, Event{Stage: StageStructure, Total: 1})

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
	c.b.AppendChild(root, cover)

	swipeID, err := c.buildSwipeBlock(c.values)
	if err == nil {
		err = c.ensureSwipeIntegrity(swipeID, c.values)
	}
	switch {
	case errors.Is(err, ErrCompareFallback):
		embedID, embedErr := c.swipeEmbedFallback(c.values)
		if embedErr != nil {
			return embedErr
		}
		if embedID != "" {
			c.b.AppendChild(root, embedID)
		}
		c.decide("comparison block", "degraded to generic embed")
	case err != nil:
		return err
	default:
		c.b.AppendChild(root, swipeID)
	}
	report(c.opts, Event{Stage: StageContent, Current: 1, Total: 1})

	credits, err := c.b.AddNode(story.NodeTypeCredits, nil, nil)
	if err != nil {
		return err
	}
	c.b.AppendChild(root, credits)

	if err := c.checkCancelled(ctx); err != nil {
		return err
	}
	return nil
}

// buildSwipeBlock assembles two webmap panes and the swipe node referencing
// them. Supports both legacy data models: two independent webmaps, or one
// webmap shown twice with different layer visibility.
func (c *converter) buildSwipeBlock(values *classic.Values) (string, error) {
	left, right, err := c.buildSwipePanes(values)
	if err != nil {
		return "", err
	}

	swipeID, err := c.b.AddNode(story.NodeTypeSwipe,
		story.Data{"style": swipeStyle(values)},
		story.Config{"placement": "use-extent"},
		left, right)
	if err != nil {
		return "", err
	}
	c.swipeNodes = append(c.swipeNodes, swipeID)
	return swipeID, nil
}

func (c *converter) buildSwipePanes(values *classic.Values) (string, string, error) {
	switch {
	case len(values.WebMaps) >= 2:
		left, err := c.swipePane(values.WebMaps[0].String(), nil)
		if err != nil {
			return "", "", err
		}
		right, err := c.swipePane(values.WebMaps[1].String(), nil)
		if err != nil {
			return "", "", err
		}
		c.decide("swipe data model", "two independent webmaps")
		return left, right, nil

	case values.WebMap.String() != "":
		left, err := c.swipePane(values.WebMap.String(), values.Layers)
		if err != nil {
			return "", "", err
		}
		right, err := c.swipePane(values.WebMap.String(), nil)
		if err != nil {
			return "", "", err
		}
		c.decide("swipe data model", "one webmap with split layer visibility")
		return left, right, nil
	}

	c.warn("comparison document names no webmaps")
	return "", "", ErrCompareFallback
}

func (c *converter) swipePane(itemID string, layers []classic.Layer) (string, error) {
	resID, err := c.webmapResource(itemID, story.ResourceTypeWebMap)
	if err != nil {
		return "", err
	}
	data := story.Data{"map": resID, "placement": "use-extent"}
	if overrides := layerOverrides(layers); len(overrides) > 0 {
		data["layers"] = overrides
	}
	return c.b.AddNode(story.NodeTypeWebMap, data, nil)
}

// ensureSwipeIntegrity confirms both pane ids still resolve, attempting one
// rebuild from the legacy model before deleting the broken node and
// signalling the embed fallback.
func (c *converter) ensureSwipeIntegrity(swipeID string, values *classic.Values) error {
	node := c.b.Node(swipeID)
	if node == nil {
		return ErrCompareFallback
	}
	if c.swipePanesResolve(node) {
		return nil
	}

	left, right, err := c.buildSwipePanes(values)
	if err == nil {
		node.Children = []string{left, right}
		if c.swipePanesResolve(node) {
			c.warn("comparison panes were rebuilt from the legacy model")
			return nil
		}
	}

	c.b.RemoveNode(swipeID)
	c.warn("comparison block dropped: pane nodes could not be resolved")
	return ErrCompareFallback
}

func (c *converter) swipePanesResolve(node *story.Node) bool {
	if len(node.Children) != 2 {
		return false
	}
	for _, id := range node.Children {
		if c.b.Node(id) == nil {
			return false
		}
	}
	return true
}

func (c *converter) swipeEmbedFallback(values *classic.Values) (string, error) {
	itemID := values.WebMap.String()
	if itemID == "" && len(values.WebMaps) > 0 {
		itemID = values.WebMaps[0].String()
	}
	if itemID == "" {
		return "", nil
	}
	return c.b.AddNode(story.NodeTypeEmbed, story.Data{
		"url":       "https://www.arcgis.com/apps/mapviewer/index.html?webmap=" + itemID,
		"embedType": "link",
	}, nil)
}

func swipeStyle(values *classic.Values) string {
	if strings.Contains(strings.ToLower(values.Template), "spyglass") {
		return "spyglass"
	}
	return "slider"
}

// alignSwipePanes initializes a left pane that carries no explicit
// extent/viewpoint from the right pane's resource-level extent and center,
// deriving a viewpoint when none exists. Runs after enrichment so resource
// extents are as complete as they will get.
func alignSwipePanes(b *story.Builder, swipeID string) {
	node := b.Node(swipeID)
	if node == nil || len(node.Children) < 2 {
		return
	}
	left := b.Node(node.Children[0])
	right := b.Node(node.Children[1])
	if left == nil || right == nil {
		return
	}
	if left.Data != nil && (left.Data["extent"] != nil || left.Data["viewpoint"] != nil) {
		return
	}

	resID, _ := right.Data["map"].(string)
	res := b.Resource(resID)
	if res == nil {
		return
	}
	extent, ok := resourceExtent(res)
	if !ok {
		return
	}

	if left.Data == nil {
		left.Data = story.Data{}
	}
	left.Data["extent"] = extent
	left.Data["viewpoint"] = geo.DeriveViewpoint(extent, resourceCenter(res))
}

// applySwipeCaptions labels each pane that has no caption yet. The label is
// the title of the last visible layer by array order, falling back to the
// basemap title. This mirrors the historical behavior; it is a heuristic,
// not a guaranteed-correct label.
func applySwipeCaptions(b *story.Builder, swipeID string) {
	node := b.Node(swipeID)
	if node == nil {
		return
	}
	for _, childID := range node.Children {
		pane := b.Node(childID)
		if pane == nil {
			continue
		}
		if pane.Data == nil {
			pane.Data = story.Data{}
		}
		if _, ok := pane.Data["caption"]; ok {
			continue
		}
		res := b.Resource(asString(pane.Data["map"]))
		if res == nil {
			continue
		}
		if caption := swipeCaption(res); caption != "" {
			pane.Data["caption"] = caption
		}
	}
}

func swipeCaption(res *story.Resource) string {
	layers, _ := res.Data["layers"].([]story.Data)
	for i := len(layers) - 1; i >= 0; i-- {
		visible, _ := layers[i]["visible"].(bool)
		if !visible {
			continue
		}
		if title, _ := layers[i]["title"].(string); title != "" {
			return title
		}
	}
	basemap, _ := res.Data["basemap"].(string)
	return basemap
}

func resourceExtent(res *story.Resource) (geo.Extent, bool) {
	switch v := res.Data["extent"].(type) {
	case geo.Extent:
		return v, true
	case *geo.Extent:
		if v != nil {
			return *v, true
		}
	}
	return geo.Extent{}, false
}

func resourceCenter(res *story.Resource) *geo.Point {
	switch v := res.Data["center"].(type) {
	case geo.Point:
		return &v
	case *geo.Point:
		return v
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
