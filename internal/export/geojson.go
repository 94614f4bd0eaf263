package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"ride-simulator/internal/path"
	"ride-simulator/internal/track"
)

// FeatureCollection builds a LineString feature for the route followed by one
// Point feature per kilometer index entry. The closing sentinel is marked
// with "end": true.
func FeatureCollection(name string, p *path.Path) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	pts := p.Points()
	if len(pts) == 0 {
		return fc
	}

	line := make(orb.LineString, len(pts))
	elevations := make([]float64, len(pts))
	for i, tp := range pts {
		line[i] = orbPoint(tp)
		elevations[i] = tp.Elevation
	}
	route := geojson.NewFeature(line)
	route.Properties["name"] = name
	route.Properties["totalDistance"] = p.TotalDistance()
	route.Properties["elevations"] = elevations
	fc.Append(route)

	idx := p.KmIndex()
	for k, e := range idx {
		marker := geojson.NewFeature(orbPoint(pts[e.Index]))
		marker.Properties["km"] = k
		marker.Properties["index"] = e.Index
		marker.Properties["distance"] = e.Distance
		if k == len(idx)-1 {
			marker.Properties["end"] = true
		}
		fc.Append(marker)
	}
	return fc
}

func WriteGeoJSON(w io.Writer, name string, p *path.Path) error {
	b, err := FeatureCollection(name, p).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	_, err = w.Write(b)
	return err
}

func orbPoint(tp track.Point) orb.Point {
	lat, lon := tp.Point.Degrees()
	return orb.Point{lon, lat}
}
