package ingest

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/track"
)

// CSVHeader is the canonical column order of the CSV interchange format.
// Angles are radians; time is RFC 3339 with nanoseconds, empty when unset.
var CSVHeader = []string{
	"index", "elevation", "latitude", "longitude", "bearing", "total_distance",
	"distance", "slope", "speed", "heart_rate", "watts", "radius", "time",
}

// csvRow mirrors CSVHeader; field order is column order.
type csvRow struct {
	Index         int     `csv:"index"`
	Elevation     float64 `csv:"elevation"`
	Latitude      float64 `csv:"latitude"`
	Longitude     float64 `csv:"longitude"`
	Bearing       float64 `csv:"bearing"`
	TotalDistance float64 `csv:"total_distance"`
	Distance      float64 `csv:"distance"`
	Slope         float64 `csv:"slope"`
	Speed         float64 `csv:"speed"`
	HeartRate     float64 `csv:"heart_rate"`
	Watts         float64 `csv:"watts"`
	Radius        float64 `csv:"radius"`
	Time          csvTime `csv:"time"`
}

type csvTime struct {
	time.Time
}

func (t *csvTime) MarshalCSV() (string, error) {
	if t.IsZero() {
		return "", nil
	}
	return t.Format(time.RFC3339Nano), nil
}

func (t *csvTime) UnmarshalCSV(s string) error {
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

func toRow(p track.Point) *csvRow {
	return &csvRow{
		Index:         p.Index,
		Elevation:     p.Elevation,
		Latitude:      p.Lat,
		Longitude:     p.Lon,
		Bearing:       p.Bearing,
		TotalDistance: p.TotalDistance,
		Distance:      p.Distance,
		Slope:         p.Slope,
		Speed:         p.Speed,
		HeartRate:     p.HeartRate,
		Watts:         p.Watts,
		Radius:        p.Radius,
		Time:          csvTime{p.Time},
	}
}

func (r *csvRow) point() track.Point {
	return track.Point{
		Point:         geo.Point{Lat: r.Latitude, Lon: r.Longitude, Elevation: r.Elevation},
		Index:         r.Index,
		TotalDistance: r.TotalDistance,
		Distance:      r.Distance,
		Slope:         r.Slope,
		Bearing:       r.Bearing,
		Speed:         r.Speed,
		HeartRate:     r.HeartRate,
		Watts:         r.Watts,
		Radius:        r.Radius,
		Time:          r.Time.Time,
	}
}

// WriteCSV writes points in the canonical column order, preceded by
// CSVHeader when header is set.
func WriteCSV(w io.Writer, points []track.Point, header bool) error {
	rows := make([]*csvRow, len(points))
	for i, p := range points {
		rows[i] = toRow(p)
	}
	var err error
	if header {
		err = gocsv.Marshal(rows, w)
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, w)
	}
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads the interchange format. A first row starting with "index" is
// taken as the header; empty input yields no points.
func ReadCSV(r io.Reader) ([]track.Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var rows []*csvRow
	if bytes.HasPrefix(data, []byte(CSVHeader[0])) {
		err = gocsv.Unmarshal(bytes.NewReader(data), &rows)
	} else {
		err = gocsv.UnmarshalWithoutHeaders(bytes.NewReader(data), &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	pts := make([]track.Point, len(rows))
	for i, row := range rows {
		pts[i] = row.point()
	}
	return pts, nil
}
