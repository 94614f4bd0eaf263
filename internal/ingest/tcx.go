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

type tcxTrackpoint struct {
	Time     string `xml:"Time"`
	Position *struct {
		Lat string `xml:"LatitudeDegrees"`
		Lon string `xml:"LongitudeDegrees"`
	} `xml:"Position"`
	Altitude  string `xml:"AltitudeMeters"`
	HeartRate string `xml:"HeartRateBpm>Value"`
	Speed     string `xml:"Speed"`
	Watts     string `xml:"Watts"`
	TPX       struct {
		Speed string `xml:"Speed"`
		Watts string `xml:"Watts"`
	} `xml:"Extensions>TPX"`
}

// ReadTCX returns every Trackpoint of a TCX document in document order.
// Trackpoints without a position (pauses, sensor-only samples) are skipped.
// Altitude, heart rate, speed and watts default to 0; the latter two are read
// from the Garmin TPX extension when not given directly.
func ReadTCX(r io.Reader) ([]track.Point, error) {
	var pts []track.Point
	n := 0
	err := forEach(r, "Trackpoint", func(d *xml.Decoder, se xml.StartElement) error {
		n++
		var raw tcxTrackpoint
		if err := d.DecodeElement(&raw, &se); err != nil {
			return err
		}
		if raw.Position == nil {
			return nil
		}
		lat, ok := reqFloat(raw.Position.Lat)
		if !ok {
			return nil
		}
		lon, ok := reqFloat(raw.Position.Lon)
		if !ok {
			return nil
		}

		var vals [4]float64
		for i, s := range []string{raw.Altitude, raw.HeartRate, firstNonBlank(raw.Speed, raw.TPX.Speed), firstNonBlank(raw.Watts, raw.TPX.Watts)} {
			v, err := optFloat(s)
			if err != nil {
				return fmt.Errorf("trackpoint %d: %w", n, err)
			}
			vals[i] = v
		}

		p := track.Point{
			Point:     geo.NewPoint(lat, lon, vals[0]),
			HeartRate: vals[1],
			Speed:     vals[2],
			Watts:     vals[3],
		}
		if ts := strings.TrimSpace(raw.Time); ts != "" {
			t, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return fmt.Errorf("trackpoint %d: time: %w", n, err)
			}
			p.Time = t
		}
		pts = append(pts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse tcx: %w", err)
	}
	return pts, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
