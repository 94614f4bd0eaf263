package export

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"ride-simulator/internal/track"
)

// ParquetPoint is the row schema of parquet exports. Angles are degrees and
// the slope is a percentage so the files read naturally in analytics tools.
type ParquetPoint struct {
	Ride          string  `parquet:"ride"`
	Index         int32   `parquet:"index"`
	RecordedAt    string  `parquet:"recorded_at"`
	Lat           float64 `parquet:"lat"`
	Lon           float64 `parquet:"lon"`
	Elevation     float64 `parquet:"elevation"`
	TotalDistance float64 `parquet:"total_distance"`
	Distance      float64 `parquet:"distance"`
	BearingDeg    float64 `parquet:"bearing_deg"`
	SlopePct      float64 `parquet:"slope_pct"`
	Speed         float32 `parquet:"speed"`
	HeartRate     float32 `parquet:"heart_rate"`
	Watts         float32 `parquet:"watts"`
}

func parquetRows(ride string, pts []track.Point) []ParquetPoint {
	rows := make([]ParquetPoint, len(pts))
	for i, tp := range pts {
		lat, lon, brg, _ := tp.Degrees()
		row := ParquetPoint{
			Ride:          ride,
			Index:         int32(tp.Index),
			Lat:           lat,
			Lon:           lon,
			Elevation:     tp.Elevation,
			TotalDistance: tp.TotalDistance,
			Distance:      tp.Distance,
			BearingDeg:    brg,
			Speed:         float32(tp.Speed),
			HeartRate:     float32(tp.HeartRate),
			Watts:         float32(tp.Watts),
		}
		if tp.Distance > 0 {
			next := pts[i+1].Point
			row.SlopePct = tp.Point.SlopePercent(next)
		}
		if !tp.Time.IsZero() {
			row.RecordedAt = tp.Time.UTC().Format(time.RFC3339Nano)
		}
		rows[i] = row
	}
	return rows
}

func WriteParquet(w io.Writer, ride string, pts []track.Point) error {
	writer := parquet.NewGenericWriter[ParquetPoint](w)
	if _, err := writer.Write(parquetRows(ride, pts)); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
