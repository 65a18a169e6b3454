package convert

import (
	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/geo"
	"github.com/atlastales/storygraph/pkg/story"
)

// mediaNode converts a legacy media union into one content node, creating
// resources as needed. Returns "" for nil or unrecognized media.
func (c *converter) mediaNode(m *classic.Media) (string, error) {
	if m == nil {
		return "", nil
	}
	switch {
	case m.WebMap != nil && m.WebMap.ID != "":
		resType := story.ResourceTypeWebMap
		if m.Type == "webscene" {
			resType = story.ResourceTypeWebScene
		}
		return c.webmapNode(m.WebMap, resType)
	case m.Image != nil && m.Image.URL != "":
		return c.imageNode(m.Image)
	case m.Video != nil && m.Video.URL != "":
		c.addMedia(m.Video.URL)
		return c.b.AddNode(story.NodeTypeVideo, story.Data{"url": m.Video.URL}, nil)
	case m.WebPage != nil && m.WebPage.URL != "":
		return c.b.AddNode(story.NodeTypeEmbed, story.Data{
			"url":       m.WebPage.URL,
			"embedType": "link",
		}, nil)
	}
	if m.Type != "" {
		c.warn("unrecognized media of type %q skipped", m.Type)
	}
	return "", nil
}

// webmapNode creates a webmap node over a de-duplicated minimal resource,
// carrying any explicit view state the legacy media declared.
func (c *converter) webmapNode(m *classic.MediaWebMap, resType story.ResourceType) (string, error) {
	resID, err := c.webmapResource(m.ID.String(), resType)
	if err != nil {
		return "", err
	}

	if m.Extent != nil || m.Center != nil {
		c.b.UpdateResourceData(resID, func(data story.Data) {
			if m.Extent != nil {
				data["extent"] = geo.ReprojectExtent(*m.Extent)
			}
			if m.Center != nil {
				data["center"] = geo.ReprojectPoint(*m.Center)
			}
		})
	}

	data := story.Data{"map": resID}
	if m.Extent != nil {
		data["extent"] = geo.ReprojectExtent(*m.Extent)
	}
	if m.Zoom > 0 {
		data["zoom"] = m.Zoom
	}
	if layers := layerOverrides(m.Layers); len(layers) > 0 {
		data["layers"] = layers
	}
	if m.AltText != "" {
		data["alt"] = m.AltText
	}
	return c.b.AddNode(story.NodeTypeWebMap, data, nil)
}

// webmapResource returns the minimal webmap/webscene resource for an item
// id, creating it on first use.
func (c *converter) webmapResource(itemID string, resType story.ResourceType) (string, error) {
	if id, ok := c.webmapResources[itemID]; ok {
		return id, nil
	}
	id, err := c.b.AddMinimalResource(resType, itemID)
	if err != nil {
		return "", err
	}
	c.webmapResources[itemID] = id
	return id, nil
}

func (c *converter) imageNode(m *classic.MediaImage) (string, error) {
	resID, err := c.b.AddResource(story.ResourceTypeImage, story.Data{"src": m.URL})
	if err != nil {
		return "", err
	}
	c.addMedia(m.URL)
	data := story.Data{"image": resID}
	if m.Caption != "" {
		data["caption"] = m.Caption
	}
	if m.AltText != "" {
		data["alt"] = m.AltText
	}
	return c.b.AddNode(story.NodeTypeImage, data, nil)
}

func layerOverrides(layers []classic.Layer) []story.Data {
	var out []story.Data
	for _, l := range layers {
		if l.ID == "" {
			continue
		}
		entry := story.Data{"id": l.ID, "visible": l.Visibility}
		if l.Title != "" {
			entry["title"] = l.Title
		}
		out = append(out, entry)
	}
	return out
}
