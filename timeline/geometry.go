package timeline

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// LonLat is a (longitude, latitude) pair.
type LonLat [2]float64

// Lon returns the longitude.
func (ll LonLat) Lon() float64 {
	return ll[0]
}

// Lat returns the latitude.
func (ll LonLat) Lat() float64 {
	return ll[1]
}

// Geometry is the tagged variant over the shapes a feature can carry.
// It is implemented by Point, Areal and Unsupported only. A nil Geometry means the feature has none.
type Geometry interface {
	geometryKind() string
}

// Point is a single location.
type Point struct {
	Lon float64
	Lat float64
}

// Areal is a polygon-like shape. Centroid, when set, is used as-is (sources that already know the
// label point supply it); otherwise the area-weighted centroid of Shape is computed.
type Areal struct {
	Shape    orb.Geometry
	Centroid *orb.Point
}

// Unsupported marks a geometry kind that cannot be reduced to a location, e.g. a line string.
type Unsupported struct {
	Kind string
}

func (Point) geometryKind() string { return "point" }

func (Areal) geometryKind() string { return "areal" }

func (u Unsupported) geometryKind() string { return u.Kind }

// GeometryFromOrb classifies a decoded orb geometry into the Geometry variant.
// A nil input yields a nil Geometry.
func GeometryFromOrb(g orb.Geometry) Geometry {
	switch v := g.(type) {
	case nil:
		return nil
	case orb.Point:
		return Point{Lon: v.Lon(), Lat: v.Lat()}
	case orb.Polygon, orb.MultiPolygon, orb.Ring, orb.Bound:
		return Areal{Shape: v}
	default:
		return Unsupported{Kind: g.GeoJSONType()}
	}
}

// ExtractLonLat reduces a geometry to a single location.
// Points return their own coordinates, areal shapes their centroid. Absent or unsupported
// geometries report false.
func ExtractLonLat(g Geometry) (LonLat, bool) {
	switch v := g.(type) {
	case Point:
		return LonLat{v.Lon, v.Lat}, true

	case Areal:
		if v.Centroid != nil {
			return LonLat{v.Centroid.Lon(), v.Centroid.Lat()}, true
		}

		if v.Shape == nil {
			return LonLat{}, false
		}

		centroid, area := planar.CentroidArea(v.Shape)
		if area == 0 && centroid == (orb.Point{}) {
			return LonLat{}, false
		}

		return LonLat{centroid.Lon(), centroid.Lat()}, true

	default:
		return LonLat{}, false
	}
}
