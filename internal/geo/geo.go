package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	// Meters per degree of latitude, WGS84 mean.
	metersPerDegree = 111320.0

	bufferSegments = 64
)

// Point is a WGS84 coordinate.
type Point struct {
	Lon float64
	Lat float64
}

// Geometry is an immutable area of interest: an outer ring plus optional
// holes, in WGS84 lon/lat. Built either from GeoJSON or by buffering a
// point.
type Geometry struct {
	rings [][]Point
}

// FromRings constructs a polygon geometry. The first ring is the outer
// boundary; any further rings are holes.
func FromRings(rings [][]Point) (*Geometry, error) {
	if len(rings) == 0 || len(rings[0]) < 3 {
		return nil, fmt.Errorf("polygon needs an outer ring with at least 3 points")
	}
	for _, r := range rings {
		for _, p := range r {
			if p.Lon < -180 || p.Lon > 180 || p.Lat < -90 || p.Lat > 90 {
				return nil, fmt.Errorf("coordinate out of range: %.4f,%.4f", p.Lon, p.Lat)
			}
		}
	}
	return &Geometry{rings: rings}, nil
}

// Buffer returns a disk of the given radius in meters centered on the
// point, approximated as a regular polygon. The longitude radius is
// corrected for latitude.
func Buffer(center Point, radiusMeters float64) (*Geometry, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("buffer radius must be positive, got %.1f", radiusMeters)
	}
	latRad := center.Lat * math.Pi / 180
	dLat := radiusMeters / metersPerDegree
	dLon := radiusMeters / (metersPerDegree * math.Cos(latRad))

	ring := make([]Point, 0, bufferSegments+1)
	for i := 0; i <= bufferSegments; i++ {
		theta := 2 * math.Pi * float64(i) / bufferSegments
		ring = append(ring, Point{
			Lon: center.Lon + dLon*math.Cos(theta),
			Lat: center.Lat + dLat*math.Sin(theta),
		})
	}
	return FromRings([][]Point{ring})
}

// Contains reports whether the coordinate is inside the geometry, using the
// even-odd rule across all rings so holes are excluded naturally.
func (g *Geometry) Contains(lon, lat float64) bool {
	inside := false
	for _, ring := range g.rings {
		n := len(ring)
		j := n - 1
		for i := 0; i < n; i++ {
			pi, pj := ring[i], ring[j]
			if (pi.Lat > lat) != (pj.Lat > lat) {
				x := pi.Lon + (lat-pi.Lat)/(pj.Lat-pi.Lat)*(pj.Lon-pi.Lon)
				if lon < x {
					inside = !inside
				}
			}
			j = i
		}
	}
	return inside
}

// Bounds returns the bounding box as min lon, min lat, max lon, max lat.
func (g *Geometry) Bounds() (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	for _, ring := range g.rings {
		for _, p := range ring {
			minLon = math.Min(minLon, p.Lon)
			minLat = math.Min(minLat, p.Lat)
			maxLon = math.Max(maxLon, p.Lon)
			maxLat = math.Max(maxLat, p.Lat)
		}
	}
	return
}

// geojson wire structures; only what we consume.

type geojsonObject struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometry    *geojsonObject  `json:"geometry"`
	Features    []geojsonObject `json:"features"`
}

// ParseGeoJSON extracts a polygon geometry from a GeoJSON document. It
// accepts a bare Polygon geometry, a Feature, or a FeatureCollection (first
// polygon feature wins).
func ParseGeoJSON(data []byte) (*Geometry, error) {
	var obj geojsonObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	return fromGeoJSONObject(&obj)
}

func fromGeoJSONObject(obj *geojsonObject) (*Geometry, error) {
	switch obj.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(obj.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		rings := make([][]Point, 0, len(coords))
		for _, ring := range coords {
			pts := make([]Point, 0, len(ring))
			for _, c := range ring {
				if len(c) < 2 {
					return nil, fmt.Errorf("polygon position needs lon and lat")
				}
				pts = append(pts, Point{Lon: c[0], Lat: c[1]})
			}
			rings = append(rings, pts)
		}
		return FromRings(rings)
	case "Feature":
		if obj.Geometry == nil {
			return nil, fmt.Errorf("feature has no geometry")
		}
		return fromGeoJSONObject(obj.Geometry)
	case "FeatureCollection":
		for i := range obj.Features {
			if g, err := fromGeoJSONObject(&obj.Features[i]); err == nil {
				return g, nil
			}
		}
		return nil, fmt.Errorf("feature collection has no polygon feature")
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", obj.Type)
	}
}

// MarshalGeoJSON renders the geometry back as a GeoJSON Polygon, for
// persistence alongside analysis runs.
func (g *Geometry) MarshalGeoJSON() ([]byte, error) {
	coords := make([][][]float64, 0, len(g.rings))
	for _, ring := range g.rings {
		out := make([][]float64, 0, len(ring))
		for _, p := range ring {
			out = append(out, []float64{p.Lon, p.Lat})
		}
		coords = append(coords, out)
	}
	return json.Marshal(map[string]any{
		"type":        "Polygon",
		"coordinates": coords,
	})
}
