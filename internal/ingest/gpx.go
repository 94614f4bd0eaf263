package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/track"
)

type gpxTrkpt struct {
	Lat  *string `xml:"lat,attr"`
	Lon  *string `xml:"lon,attr"`
	Ele  string  `xml:"ele"`
	Time string  `xml:"time"`
}

// ReadGPX returns every trkpt of a GPX document in document order. Points
// without a usable lat/lon pair are skipped; a missing or blank ele is 0.
func ReadGPX(r io.Reader) ([]track.Point, error) {
	var pts []track.Point
	n := 0
	err := forEach(r, "trkpt", func(d *xml.Decoder, se xml.StartElement) error {
		n++
		var raw gpxTrkpt
		if err := d.DecodeElement(&raw, &se); err != nil {
			return err
		}
		if raw.Lat == nil || raw.Lon == nil {
			return nil
		}
		lat, ok := reqFloat(*raw.Lat)
		if !ok {
			return nil
		}
		lon, ok := reqFloat(*raw.Lon)
		if !ok {
			return nil
		}
		ele, err := optFloat(raw.Ele)
		if err != nil {
			return fmt.Errorf("trkpt %d: ele %q: %w", n, raw.Ele, err)
		}
		p := track.Point{Point: geo.NewPoint(lat, lon, ele)}
		if ts := strings.TrimSpace(raw.Time); ts != "" {
			if p.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
				return fmt.Errorf("trkpt %d: time: %w", n, err)
			}
		}
		pts = append(pts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}
	return pts, nil
}
