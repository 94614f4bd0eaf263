package ingest

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/track"
)

// ReadFIT returns the record messages of a FIT activity file. Records without
// a valid position are skipped; invalid altitude, speed, heart rate and power
// become 0.
func ReadFIT(r io.Reader) ([]track.Point, error) {
	f, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("parse fit: %w", err)
	}
	act, err := f.Activity()
	if err != nil {
		return nil, fmt.Errorf("parse fit: %w", err)
	}

	pts := make([]track.Point, 0, len(act.Records))
	for _, rec := range act.Records {
		if rec == nil || rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
			continue
		}
		ele := finite(rec.GetEnhancedAltitudeScaled())
		if ele == 0 {
			ele = finite(rec.GetAltitudeScaled())
		}
		speed := finite(rec.GetEnhancedSpeedScaled())
		if speed == 0 {
			speed = finite(rec.GetSpeedScaled())
		}
		p := track.Point{
			Point: geo.NewPoint(rec.PositionLat.Degrees(), rec.PositionLong.Degrees(), ele),
			Speed: speed,
			Time:  rec.Timestamp,
		}
		if rec.HeartRate != 0xFF {
			p.HeartRate = float64(rec.HeartRate)
		}
		if rec.Power != 0xFFFF {
			p.Watts = float64(rec.Power)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// finite maps the NaN the fit package uses for invalid scaled fields to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
