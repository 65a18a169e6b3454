package convert

import (
	"context"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/atlastales/storygraph/pkg/fetch"
	"github.com/atlastales/storygraph/pkg/geo"
	"github.com/atlastales/storygraph/pkg/logger"
	"github.com/atlastales/storygraph/pkg/story"
)

const defaultParallelEnrichments = 4

type enrichResult struct {
	id     string
	fields story.Data
	err    error
}

// enrich fills every minimal webmap/webscene resource from its fetched
// definition. Definitions are fetched concurrently and applied serially after
// the join. An individual failure keeps that resource in its placeholder
// state and is reported, never retried; only cancellation aborts the run.
func enrich(ctx context.Context, b *story.Builder, opts Options) error {
	ids := b.MinimalResources()
	if len(ids) == 0 || opts.Fetcher == nil {
		return nil
	}

	limit := opts.ParallelEnrichments
	if limit <= 0 {
		limit = defaultParallelEnrichments
	}

	results := make([]enrichResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		res := b.Resource(id)
		itemID, _ := res.Data["itemId"].(string)
		kind := fetch.KindWebMap
		if res.Type == story.ResourceTypeWebScene {
			kind = fetch.KindWebScene
		}
		g.Go(func() error {
			def, err := opts.Fetcher.Definition(gctx, kind, itemID)
			if err != nil {
				results[i] = enrichResult{id: id, err: err}
				return gctx.Err()
			}
			results[i] = enrichResult{id: id, fields: definitionFields(kind, def)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, r := range results {
		if r.err != nil {
			logger.Warn("enrichment failed, resource keeps placeholder state",
				"resource", r.id, "error", r.err)
			report(opts, Event{
				Stage:   StageEnrichment,
				Message: "enrichment failed: " + r.err.Error(),
				Current: i + 1,
				Total:   len(ids),
			})
			continue
		}
		fields := r.fields
		b.UpdateResourceData(r.id, func(data story.Data) {
			for k, v := range fields {
				if _, ok := data[k]; !ok {
					data[k] = v
				}
			}
		})
		b.SetResourceVariant(r.id, story.VariantDefault)
		report(opts, Event{Stage: StageEnrichment, Current: i + 1, Total: len(ids)})
	}
	return nil
}

// definitionFields extracts the fixed field set the converter reads from a
// webmap or webscene definition. No other field is assumed to exist.
func definitionFields(kind string, def []byte) story.Data {
	root := gjson.ParseBytes(def)
	fields := story.Data{}

	if extent, ok := extentFrom(root.Get("initialState.viewpoint.targetGeometry")); ok {
		fields["extent"] = extent
	} else if extent, ok := extentFrom(root.Get("mapOptions.extent")); ok {
		fields["extent"] = extent
	}
	if center, ok := pointFrom(root.Get("mapOptions.center")); ok {
		fields["center"] = center
	}
	if scale := root.Get("initialState.viewpoint.scale"); scale.Exists() {
		fields["scale"] = scale.Float()
	}
	if zoom := root.Get("mapOptions.zoom"); zoom.Exists() {
		fields["zoom"] = zoom.Int()
	}
	if basemap := root.Get("baseMap.title"); basemap.Exists() {
		fields["basemap"] = basemap.String()
	}

	if layers := root.Get("operationalLayers"); layers.IsArray() {
		var list []story.Data
		layers.ForEach(func(_, layer gjson.Result) bool {
			entry := story.Data{
				"id":      layer.Get("id").String(),
				"title":   layer.Get("title").String(),
				"visible": true,
			}
			if vis := layer.Get("visibility"); vis.Exists() {
				entry["visible"] = vis.Bool()
			}
			list = append(list, entry)
			return true
		})
		if len(list) > 0 {
			fields["layers"] = list
		}
	}

	if kind == fetch.KindWebScene {
		if camera := root.Get("initialState.viewpoint.camera"); camera.Exists() {
			fields["camera"] = story.Data{
				"x":       camera.Get("position.x").Float(),
				"y":       camera.Get("position.y").Float(),
				"z":       camera.Get("position.z").Float(),
				"heading": camera.Get("heading").Float(),
				"tilt":    camera.Get("tilt").Float(),
			}
		}
		if slides := root.Get("presentation.slides"); slides.IsArray() {
			var list []story.Data
			slides.ForEach(func(_, slide gjson.Result) bool {
				list = append(list, story.Data{
					"id":    slide.Get("id").String(),
					"title": slide.Get("title.text").String(),
				})
				return true
			})
			if len(list) > 0 {
				fields["slides"] = list
			}
		}
	}

	return fields
}

func extentFrom(v gjson.Result) (geo.Extent, bool) {
	if !v.Exists() || !v.Get("xmin").Exists() {
		return geo.Extent{}, false
	}
	extent := geo.Extent{
		XMin: v.Get("xmin").Float(),
		YMin: v.Get("ymin").Float(),
		XMax: v.Get("xmax").Float(),
		YMax: v.Get("ymax").Float(),
	}
	if wkid := v.Get("spatialReference.wkid"); wkid.Exists() {
		extent.SpatialReference = &geo.SpatialReference{WKID: int(wkid.Int())}
	} else if geo.LooksGeographic(extent.XMin, extent.YMin) && geo.LooksGeographic(extent.XMax, extent.YMax) {
		extent.SpatialReference = &geo.SpatialReference{WKID: 4326}
	}
	return geo.ReprojectExtent(extent), true
}

func pointFrom(v gjson.Result) (geo.Point, bool) {
	if !v.Exists() || !v.Get("x").Exists() {
		return geo.Point{}, false
	}
	point := geo.Point{X: v.Get("x").Float(), Y: v.Get("y").Float()}
	if wkid := v.Get("spatialReference.wkid"); wkid.Exists() {
		point.SpatialReference = &geo.SpatialReference{WKID: int(wkid.Int())}
	} else if geo.LooksGeographic(point.X, point.Y) {
		point.SpatialReference = &geo.SpatialReference{WKID: 4326}
	}
	return geo.ReprojectPoint(point), true
}
