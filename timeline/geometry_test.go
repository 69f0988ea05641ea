package timeline_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

func Test_ExtractLonLat_When_Point_Then_ReturnsItsCoordinates(t *testing.T) {
	// act
	lonLat, ok := timeline.ExtractLonLat(timeline.Point{Lon: -93.1, Lat: 44.9})

	// assert
	assert.True(t, ok)
	assert.Equal(t, timeline.LonLat{-93.1, 44.9}, lonLat)
	assert.Equal(t, -93.1, lonLat.Lon())
	assert.Equal(t, 44.9, lonLat.Lat())
}

func Test_ExtractLonLat_When_Polygon_Then_ReturnsAreaCentroid(t *testing.T) {
	// arrange
	square := orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

	// act
	lonLat, ok := timeline.ExtractLonLat(timeline.GeometryFromOrb(square))

	// assert
	assert.True(t, ok)
	assert.InDelta(t, 1.0, lonLat.Lon(), 1e-9)
	assert.InDelta(t, 1.0, lonLat.Lat(), 1e-9)
}

func Test_ExtractLonLat_When_ArealHasExplicitCentroid_Then_UsesIt(t *testing.T) {
	// arrange
	square := orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}
	labelPoint := orb.Point{0.5, 1.5}

	// act
	lonLat, ok := timeline.ExtractLonLat(timeline.Areal{Shape: square, Centroid: &labelPoint})

	// assert
	assert.True(t, ok)
	assert.Equal(t, timeline.LonLat{0.5, 1.5}, lonLat)
}

func Test_ExtractLonLat_When_AbsentOrUnsupported_Then_ReportsNoLocation(t *testing.T) {
	tests := []struct {
		name     string
		geometry timeline.Geometry
	}{
		{name: "nil_geometry", geometry: nil},
		{name: "line_string", geometry: timeline.GeometryFromOrb(orb.LineString{{0, 0}, {1, 1}})},
		{name: "multi_point", geometry: timeline.GeometryFromOrb(orb.MultiPoint{{0, 0}, {1, 1}})},
		{name: "areal_without_shape", geometry: timeline.Areal{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, ok := timeline.ExtractLonLat(tc.geometry)

			// assert
			assert.False(t, ok)
		})
	}
}

func Test_GeometryFromOrb_ClassifiesShapes(t *testing.T) {
	assert.Nil(t, timeline.GeometryFromOrb(nil))
	assert.Equal(t, timeline.Point{Lon: 1, Lat: 2}, timeline.GeometryFromOrb(orb.Point{1, 2}))
	assert.IsType(t, timeline.Areal{}, timeline.GeometryFromOrb(orb.MultiPolygon{}))
	assert.Equal(t, timeline.Unsupported{Kind: "LineString"}, timeline.GeometryFromOrb(orb.LineString{{0, 0}, {1, 1}}))
}
