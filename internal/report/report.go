// Package report summarises an annotated path: distance, elevation, grade,
// timing and per-kilometer splits.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"ride-simulator/internal/export"
	"ride-simulator/internal/path"
	"ride-simulator/internal/track"
)

// Split covers the points between two consecutive kilometer index entries.
// Its bounds are the points covering each boundary, so Distance is close to
// but rarely exactly 1000 m.
type Split struct {
	Km            int
	StartIndex    int
	EndIndex      int
	Distance      float64
	Climb         float64
	Descent       float64
	Duration      time.Duration // zero without timestamps
	AvgHeartRate  float64
	AvgWatts      float64
	MaxGradePct   float64
}

type Summary struct {
	Name         string
	Points       int
	Distance     float64
	Climb        float64
	Descent      float64
	MinElevation float64
	MaxElevation float64
	MaxGradePct  float64
	MinGradePct  float64
	Duration     time.Duration
	AvgSpeed     float64 // m/s over Duration, zero without timestamps
	Splits       []Split
	Polyline     string
}

func Summarize(name string, p *path.Path) Summary {
	pts := p.Points()
	s := Summary{Name: name, Points: len(pts), Distance: p.TotalDistance()}
	if len(pts) == 0 {
		return s
	}

	s.MinElevation, s.MaxElevation = pts[0].Elevation, pts[0].Elevation
	for i, tp := range pts {
		s.MinElevation = math.Min(s.MinElevation, tp.Elevation)
		s.MaxElevation = math.Max(s.MaxElevation, tp.Elevation)
		if i+1 == len(pts) {
			break
		}
		up, down, grade := segment(tp, pts[i+1])
		s.Climb += up
		s.Descent += down
		if tp.Distance > 0 {
			s.MaxGradePct = math.Max(s.MaxGradePct, grade)
			s.MinGradePct = math.Min(s.MinGradePct, grade)
		}
	}

	s.Duration = elapsed(pts[0], pts[len(pts)-1])
	if s.Duration > 0 {
		s.AvgSpeed = s.Distance / s.Duration.Seconds()
	}

	idx := p.KmIndex()
	for k := 0; k+1 < len(idx); k++ {
		s.Splits = append(s.Splits, split(k+1, pts, idx[k], idx[k+1]))
	}
	s.Polyline = export.EncodePolyline(pts)
	return s
}

func split(km int, pts []track.Point, from, to path.KmIndexEntry) Split {
	sp := Split{
		Km:         km,
		StartIndex: from.Index,
		EndIndex:   to.Index,
		Distance:   to.Distance - from.Distance,
		Duration:   elapsed(pts[from.Index], pts[to.Index]),
	}
	var hr, watts float64
	n := 0
	for i := from.Index; i < to.Index; i++ {
		up, down, grade := segment(pts[i], pts[i+1])
		sp.Climb += up
		sp.Descent += down
		if pts[i].Distance > 0 {
			sp.MaxGradePct = math.Max(sp.MaxGradePct, grade)
		}
		hr += pts[i].HeartRate
		watts += pts[i].Watts
		n++
	}
	if n > 0 {
		sp.AvgHeartRate = hr / float64(n)
		sp.AvgWatts = watts / float64(n)
	}
	return sp
}

func segment(a, b track.Point) (up, down, gradePct float64) {
	dz := b.Elevation - a.Elevation
	if dz > 0 {
		up = dz
	} else {
		down = -dz
	}
	return up, down, 100 * math.Tan(a.Slope)
}

func elapsed(a, b track.Point) time.Duration {
	if a.Time.IsZero() || b.Time.IsZero() || b.Time.Before(a.Time) {
		return 0
	}
	return b.Time.Sub(a.Time)
}

// Write prints the summary followed by a table of splits.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "ride:      %s\npoints:    %d\ndistance:  %.3f km\nclimb:     %.1f m\ndescent:   %.1f m\nelevation: %.1f .. %.1f m\ngrade:     %+.1f%% .. %+.1f%%\n",
		s.Name, s.Points, s.Distance/1000, s.Climb, s.Descent, s.MinElevation, s.MaxElevation, s.MinGradePct, s.MaxGradePct)
	if err != nil {
		return err
	}
	if s.Duration > 0 {
		if _, err := fmt.Fprintf(w, "duration:  %s\navg speed: %.2f km/h\n", s.Duration, s.AvgSpeed*3.6); err != nil {
			return err
		}
	}
	if len(s.Splits) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"km", "points", "distance m", "climb m", "descent m", "max grade %", "time", "avg hr", "avg w"})
	for _, sp := range s.Splits {
		dur := "-"
		if sp.Duration > 0 {
			dur = sp.Duration.String()
		}
		table.Append([]string{
			strconv.Itoa(sp.Km),
			fmt.Sprintf("%d-%d", sp.StartIndex, sp.EndIndex),
			fmt.Sprintf("%.1f", sp.Distance),
			fmt.Sprintf("%.1f", sp.Climb),
			fmt.Sprintf("%.1f", sp.Descent),
			fmt.Sprintf("%.1f", sp.MaxGradePct),
			dur,
			fmt.Sprintf("%.0f", sp.AvgHeartRate),
			fmt.Sprintf("%.0f", sp.AvgWatts),
		})
	}
	table.Render()
	return nil
}
