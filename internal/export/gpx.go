package export

import (
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"

	"ride-simulator/internal/track"
)

// WriteGPX writes the points as a single GPX 1.1 track segment.
func WriteGPX(w io.Writer, name string, pts []track.Point) error {
	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(pts))}
	for _, tp := range pts {
		var gp gpx.GPXPoint
		gp.Latitude, gp.Longitude = tp.Point.Degrees()
		gp.Elevation = *gpx.NewNullableFloat64(tp.Elevation)
		gp.Timestamp = tp.Time
		seg.Points = append(seg.Points, gp)
	}

	doc := &gpx.GPX{Creator: "ride-simulator", Name: name}
	doc.Tracks = []gpx.GPXTrack{{Name: name, Segments: []gpx.GPXTrackSegment{seg}}}

	b, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	_, err = w.Write(b)
	return err
}
