package geo

import (
	"math"
	"testing"
)

func TestReprojectExtent(t *testing.T) {
	wgs84 := &SpatialReference{WKID: 4326}

	t.Run("geographic extent is converted to mercator meters", func(t *testing.T) {
		got := ReprojectExtent(Extent{
			XMin: -122.5, YMin: 37.5, XMax: -122.0, YMax: 38.0,
			SpatialReference: wgs84,
		})

		if got.SpatialReference == nil || got.SpatialReference.WKID != 102100 {
			t.Fatalf("reprojected extent spatial reference = %+v, want wkid 102100", got.SpatialReference)
		}
		if got.XMin > -13.6e6 || got.XMin < -13.7e6 {
			t.Errorf("XMin = %f, want web-mercator meters near -13.64e6", got.XMin)
		}
		if got.YMin < 4.4e6 || got.YMin > 4.6e6 {
			t.Errorf("YMin = %f, want web-mercator meters near 4.5e6", got.YMin)
		}
		if got.XMax <= got.XMin || got.YMax <= got.YMin {
			t.Errorf("reprojection must preserve bound ordering: %+v", got)
		}
	})

	t.Run("reprojection is a no-op on its own output", func(t *testing.T) {
		once := ReprojectExtent(Extent{
			XMin: -122.5, YMin: 37.5, XMax: -122.0, YMax: 38.0,
			SpatialReference: wgs84,
		})
		twice := ReprojectExtent(once)
		if *once.SpatialReference != *twice.SpatialReference {
			t.Errorf("reprojecting mercator output changed its spatial reference: %+v -> %+v", once, twice)
		}
		if once.XMin != twice.XMin || once.YMin != twice.YMin || once.XMax != twice.XMax || once.YMax != twice.YMax {
			t.Errorf("reprojecting mercator output changed bounds: %+v -> %+v", once, twice)
		}
	})

	t.Run("extent without spatial reference passes through", func(t *testing.T) {
		in := Extent{XMin: 1, YMin: 2, XMax: 3, YMax: 4}
		if got := ReprojectExtent(in); got != in {
			t.Errorf("ReprojectExtent(%+v) = %+v, want unchanged", in, got)
		}
	})

	t.Run("non-finite input passes through", func(t *testing.T) {
		in := Extent{XMin: math.NaN(), YMin: 37.5, XMax: -122.0, YMax: 38.0, SpatialReference: wgs84}
		got := ReprojectExtent(in)
		if !math.IsNaN(got.XMin) || got.YMax != 38.0 {
			t.Errorf("non-finite extent should pass through, got %+v", got)
		}
	})
}

func TestScaleZoomFromExtentHeight(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		want   ScaleZoom
	}{
		{"just under first bound", 499, ScaleZoom{500, 20}},
		{"exactly on first bound", 500, ScaleZoom{500, 20}},
		{"just over first bound", 501, ScaleZoom{1000, 19}},
		{"mid ladder", 60000, ScaleZoom{100000, 13}},
		{"continental", 4000000, ScaleZoom{5000000, 8}},
		{"global", 30000000, ScaleZoom{25000000, 6}},
		{"zero height", 0, ScaleZoom{500, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleZoomFromExtentHeight(Extent{YMin: 0, YMax: tt.height})
			if got != tt.want {
				t.Errorf("ScaleZoomFromExtentHeight(height=%f) = %+v, want %+v", tt.height, got, tt.want)
			}
		})
	}
}

func TestDeriveViewpoint(t *testing.T) {
	extent := Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 10}

	t.Run("uses center when present", func(t *testing.T) {
		center := &Point{X: 5, Y: 5}
		vp := DeriveViewpoint(extent, center)
		got, ok := vp.TargetGeometry.(Point)
		if !ok {
			t.Fatalf("target geometry has type %T, want Point", vp.TargetGeometry)
		}
		if got.X != 5 || got.Y != 5 {
			t.Errorf("target = %+v, want {5 5}", got)
		}
		if vp.Scale != 500 {
			t.Errorf("scale = %f, want 500", vp.Scale)
		}
	})

	t.Run("falls back to extent", func(t *testing.T) {
		vp := DeriveViewpoint(extent, nil)
		if _, ok := vp.TargetGeometry.(Extent); !ok {
			t.Errorf("target geometry has type %T, want Extent", vp.TargetGeometry)
		}
	})
}

func TestToGeographic(t *testing.T) {
	lon, lat := ToGeographic(lonToMercator(-122.5), latToMercator(37.5))
	if math.Abs(lon - -122.5) > 1e-9 {
		t.Errorf("lon = %f, want -122.5", lon)
	}
	if math.Abs(lat-37.5) > 1e-9 {
		t.Errorf("lat = %f, want 37.5", lat)
	}
}

func TestLooksGeographic(t *testing.T) {
	if !LooksGeographic(-122.5, 37.5) {
		t.Errorf("degrees misdetected as projected")
	}
	if LooksGeographic(-13636518, 4509616) {
		t.Errorf("mercator meters misdetected as degrees")
	}
}
