// Package geo holds the spatial helpers used while converting classic view
// state: spatial-reference detection, extent reprojection, and the coarse
// extent-to-scale heuristic shared by all map-bearing strategies.
package geo

import "math"

const (
	earthRadius = 6378137

	wkidWGS84       = 4326
	wkidWebMercator = 102100
)

// SpatialReference identifies the coordinate system of an extent or point.
type SpatialReference struct {
	WKID       int `json:"wkid,omitempty"`
	LatestWKID int `json:"latestWkid,omitempty"`
}

// Extent is a bounding box in the units of its spatial reference.
type Extent struct {
	XMin             float64           `json:"xmin"`
	YMin             float64           `json:"ymin"`
	XMax             float64           `json:"xmax"`
	YMax             float64           `json:"ymax"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Point is a single coordinate in the units of its spatial reference.
type Point struct {
	X                float64           `json:"x"`
	Y                float64           `json:"y"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Viewpoint pairs a target geometry with a display scale.
type Viewpoint struct {
	TargetGeometry any     `json:"targetGeometry"`
	Scale          float64 `json:"scale,omitempty"`
}

// IsGeographic reports whether the spatial reference indicates WGS84
// geographic coordinates. A nil reference is treated as unknown, not
// geographic.
func (sr *SpatialReference) IsGeographic() bool {
	if sr == nil {
		return false
	}
	return sr.WKID == wkidWGS84 || sr.LatestWKID == wkidWGS84
}

// LooksGeographic reports whether a coordinate pair is plausibly expressed in
// degrees. Used when the legacy input carries no spatial reference at all.
func LooksGeographic(x, y float64) bool {
	return math.Abs(x) <= 180 && math.Abs(y) <= 90
}

// ReprojectExtent converts a WGS84 extent to spherical-Mercator meters using
// the standard forward formulas. Extents that are not geographic are returned
// unchanged, as are non-finite inputs; the function never panics.
func ReprojectExtent(e Extent) Extent {
	if !e.SpatialReference.IsGeographic() {
		return e
	}
	if !isFinite(e.XMin) || !isFinite(e.YMin) || !isFinite(e.XMax) || !isFinite(e.YMax) {
		return e
	}

	return Extent{
		XMin:             lonToMercator(e.XMin),
		YMin:             latToMercator(e.YMin),
		XMax:             lonToMercator(e.XMax),
		YMax:             latToMercator(e.YMax),
		SpatialReference: &SpatialReference{WKID: wkidWebMercator},
	}
}

// ReprojectPoint converts a WGS84 point to spherical-Mercator meters. Points
// that are not geographic are returned unchanged, as are non-finite inputs.
func ReprojectPoint(p Point) Point {
	if !p.SpatialReference.IsGeographic() {
		return p
	}
	if !isFinite(p.X) || !isFinite(p.Y) {
		return p
	}

	return Point{
		X:                lonToMercator(p.X),
		Y:                latToMercator(p.Y),
		SpatialReference: &SpatialReference{WKID: wkidWebMercator},
	}
}

// ToGeographic converts a spherical-Mercator coordinate pair back to degrees
// using the inverse formulas. Used by the tour strategy when legacy place
// coordinates look like Web-Mercator meters.
func ToGeographic(x, y float64) (float64, float64) {
	lon := x / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// ScaleZoom is one rung of the extent-height ladder.
type ScaleZoom struct {
	Scale float64 `json:"scale"`
	Zoom  int     `json:"zoom"`
}

// scaleLadder buckets extent height in meters into (scale, zoom) pairs.
// Bucket bounds are inclusive on the lower side: a height exactly on a bound
// stays in the smaller bucket.
var scaleLadder = []struct {
	maxHeight float64
	out       ScaleZoom
}{
	{500, ScaleZoom{500, 20}},
	{1000, ScaleZoom{1000, 19}},
	{2000, ScaleZoom{2500, 18}},
	{5000, ScaleZoom{5000, 17}},
	{10000, ScaleZoom{10000, 16}},
	{25000, ScaleZoom{25000, 15}},
	{50000, ScaleZoom{50000, 14}},
	{100000, ScaleZoom{100000, 13}},
	{250000, ScaleZoom{250000, 12}},
	{500000, ScaleZoom{500000, 11}},
	{1000000, ScaleZoom{1000000, 10}},
	{2500000, ScaleZoom{2500000, 9}},
	{5000000, ScaleZoom{5000000, 8}},
	{10000000, ScaleZoom{10000000, 7}},
}

// scaleLadderTop is returned for heights beyond the last ladder rung.
var scaleLadderTop = ScaleZoom{25000000, 6}

// ScaleZoomFromExtentHeight buckets the extent height (in meters) into the
// fixed scale/zoom ladder. This is a deliberately coarse heuristic, not a
// projection-aware zoom solver.
func ScaleZoomFromExtentHeight(e Extent) ScaleZoom {
	height := math.Abs(e.YMax - e.YMin)
	if !isFinite(height) {
		return scaleLadderTop
	}
	for _, rung := range scaleLadder {
		if height <= rung.maxHeight {
			return rung.out
		}
	}
	return scaleLadderTop
}

// DeriveViewpoint builds a viewpoint from an extent and an optional center.
// The center is preferred as the target geometry when present; the scale
// always comes from the extent-height ladder.
func DeriveViewpoint(e Extent, center *Point) Viewpoint {
	sz := ScaleZoomFromExtentHeight(e)
	if center != nil {
		return Viewpoint{TargetGeometry: *center, Scale: sz.Scale}
	}
	return Viewpoint{TargetGeometry: e, Scale: sz.Scale}
}

func lonToMercator(lon float64) float64 {
	return lon * earthRadius * math.Pi / 180
}

func latToMercator(lat float64) float64 {
	return earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
