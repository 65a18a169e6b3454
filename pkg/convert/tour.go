package convert

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/atlastales/storygraph/pkg/classic"
	"github.com/atlastales/storygraph/pkg/fetch"
	"github.com/atlastales/storygraph/pkg/geo"
	"github.com/atlastales/storygraph/pkg/story"
)

// gridExplorerThreshold is the place count above which a tour is forced into
// the grid explorer layout regardless of its declared layout.
const gridExplorerThreshold = 15

type tourLayout struct {
	Type    string
	Subtype string
}

// tourLayouts is the fixed mapping from legacy tour layout ids.
var tourLayouts = map[string]tourLayout{
	"three-panel": {Type: "guided", Subtype: "side-panel"},
	"side-panel":  {Type: "guided", Subtype: "side-panel"},
	"integrated":  {Type: "guided", Subtype: "floating-panel"},
	"grid":        {Type: "explorer", Subtype: "grid"},
}

var defaultTourLayout = tourLayout{Type: "guided", Subtype: "side-panel"}

// convertTour maps each legacy place into a tour stop with title,
// description, carousel media and a geographic point.
func (c *converter) convertTour(ctx context.Context) error {
	places := c.values.Order
	if len(places) == 0 {
		places = c.placesFromWebMap(ctx)
	}
	report(c.opts, Event{Stage: StageStructure, Total: len(places)})

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

	layout := c.tourLayoutFor(len(places))
	tour, err := c.b.AddNode(story.NodeTypeTour, story.Data{
		"type":    layout.Type,
		"subtype": layout.Subtype,
	}, nil)
	if err != nil {
		return err
	}
	c.b.AppendChild(root, tour)

	if id := c.values.WebMap.String(); id != "" {
		resID, err := c.webmapResource(id, story.ResourceTypeWebMap)
		if err != nil {
			return err
		}
		tourMap, err := c.b.AddNode(story.NodeTypeTourMap, story.Data{"map": resID}, nil)
		if err != nil {
			return err
		}
		c.b.AppendChild(tour, tourMap)
	}

	for i := range places {
		if err := c.checkCancelled(ctx); err != nil {
			return err
		}
		stop, err := c.tourStop(&places[i])
		if err != nil {
			return err
		}
		c.b.AppendChild(tour, stop)
		report(c.opts, Event{Stage: StageContent, Current: i + 1, Total: len(places)})
	}

	credits, err := c.b.AddNode(story.NodeTypeCredits, nil, nil)
	if err != nil {
		return err
	}
	c.b.AppendChild(root, credits)
	return nil
}

func (c *converter) tourStop(place *classic.Place) (string, error) {
	data := story.Data{"title": place.DisplayTitle()}
	if place.Description != "" {
		data["description"] = place.Description
	}
	if point, ok := placePoint(place); ok {
		data["point"] = point
	} else {
		c.warn("tour place %q has no usable coordinates", place.DisplayTitle())
	}

	stop, err := c.b.AddNode(story.NodeTypeTourStop, data, nil)
	if err != nil {
		return "", err
	}

	if place.PicURL != "" {
		carousel, err := c.b.AddNode(story.NodeTypeCarousel, nil, nil)
		if err != nil {
			return "", err
		}
		var mediaID string
		if place.IsVideo {
			mediaID, err = c.b.AddNode(story.NodeTypeVideo, story.Data{"url": place.PicURL}, nil)
			c.addMedia(place.PicURL)
		} else {
			mediaID, err = c.imageNode(&classic.MediaImage{URL: place.PicURL, Caption: place.Description})
		}
		if err != nil {
			return "", err
		}
		c.b.AppendChild(carousel, mediaID)
		c.b.AppendChild(stop, carousel)
		c.addMedia(place.ThumbURL)
	}
	return stop, nil
}

// placePoint extracts a geographic point from a place, supporting flat
// lat/lng fields and explicit geometry objects. Coordinates that look like
// Web Mercator meters are normalized back to degrees.
func placePoint(place *classic.Place) (geo.Point, bool) {
	var x, y float64
	switch {
	case place.Geometry != nil && (place.Geometry.X != 0 || place.Geometry.Y != 0):
		x, y = place.Geometry.X, place.Geometry.Y
		if place.Geometry.SpatialReference != nil && !place.Geometry.SpatialReference.IsGeographic() {
			x, y = geo.ToGeographic(x, y)
		} else if !geo.LooksGeographic(x, y) {
			x, y = geo.ToGeographic(x, y)
		}
	case place.Lat != 0 || place.Lng != 0:
		x, y = place.Lng, place.Lat
		if !geo.LooksGeographic(x, y) {
			x, y = geo.ToGeographic(x, y)
		}
	default:
		return geo.Point{}, false
	}
	return geo.Point{X: x, Y: y, SpatialReference: &geo.SpatialReference{WKID: 4326}}, true
}

func (c *converter) tourLayoutFor(placeCount int) tourLayout {
	layoutID := c.values.Layout
	if layoutID == "" && c.values.Settings != nil && c.values.Settings.Layout != nil {
		layoutID = c.values.Settings.Layout.ID
	}
	layout, ok := tourLayouts[layoutID]
	if !ok {
		layout = defaultTourLayout
	}
	if placeCount > gridExplorerThreshold {
		if layout.Type != "explorer" {
			c.decide("tour layout", "forced to grid explorer by place count")
		}
		layout = tourLayout{Type: "explorer", Subtype: "grid"}
	}
	return layout
}

// placesFromWebMap extracts tour places from a feature collection embedded in
// the tour's webmap definition. Best effort: any failure yields an empty
// list.
func (c *converter) placesFromWebMap(ctx context.Context) []classic.Place {
	itemID := c.values.WebMap.String()
	if itemID == "" || c.opts.Fetcher == nil {
		return nil
	}
	def, err := c.opts.Fetcher.Definition(ctx, fetch.KindWebMap, itemID)
	if err != nil {
		c.warn("tour webmap %s could not be fetched: %v", itemID, err)
		return nil
	}

	var places []classic.Place
	gjson.GetBytes(def, "operationalLayers").ForEach(func(_, layer gjson.Result) bool {
		layer.Get("featureCollection.layers").ForEach(func(_, sub gjson.Result) bool {
			sub.Get("featureSet.features").ForEach(func(_, feature gjson.Result) bool {
				attrs := feature.Get("attributes")
				place := classic.Place{
					Name:        attrs.Get("name").String(),
					Description: attrs.Get("description").String(),
					PicURL:      attrs.Get("pic_url").String(),
					ThumbURL:    attrs.Get("thumb_url").String(),
				}
				if geom := feature.Get("geometry"); geom.Exists() {
					place.Geometry = &classic.Geometry{
						X: geom.Get("x").Float(),
						Y: geom.Get("y").Float(),
					}
					if wkid := geom.Get("spatialReference.wkid"); wkid.Exists() {
						place.Geometry.SpatialReference = &geo.SpatialReference{WKID: int(wkid.Int())}
					}
				}
				places = append(places, place)
				return true
			})
			return true
		})
		return true
	})
	return places
}
