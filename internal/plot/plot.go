// Package plot renders elevation and simulated speed against distance.
package plot

import (
	"errors"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"ride-simulator/internal/path"
	"ride-simulator/internal/sim"
)

const margin = 32.0

var (
	background   = color.White
	gridColor    = color.RGBA{220, 220, 220, 255}
	elevationCol = color.RGBA{120, 120, 120, 255}
	speedCol     = color.RGBA{30, 90, 200, 255}
)

var ErrNothingToPlot = errors.New("path has no distance")

// Profile draws the elevation profile of p in grey and, when samples are
// given, the simulated speed in blue. Kilometer boundaries from the index are
// drawn as vertical grid lines.
func Profile(p *path.Path, samples []sim.Sample, width, height int) (image.Image, error) {
	total := p.TotalDistance()
	if !(total > 0) {
		return nil, ErrNothingToPlot
	}
	dc := gg.NewContext(width, height)
	dc.SetColor(background)
	dc.Clear()

	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin
	x := func(d float64) float64 { return margin + d/total*plotW }
	y := scaler(float64(height)-margin, plotH)

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	// entry k covers kilometer k; the last entry is the closing sentinel
	for k := 1; k < len(p.KmIndex())-1; k++ {
		km := float64(k) * 1000
		if km >= total {
			break
		}
		dc.DrawLine(x(km), margin, x(km), margin+plotH)
		dc.Stroke()
	}
	dc.DrawRectangle(margin, margin, plotW, plotH)
	dc.Stroke()

	pts := p.Points()
	lo, hi := pts[0].Elevation, pts[0].Elevation
	for _, tp := range pts {
		lo, hi = math.Min(lo, tp.Elevation), math.Max(hi, tp.Elevation)
	}
	dc.SetColor(elevationCol)
	dc.SetLineWidth(2)
	for i, tp := range pts {
		px, py := x(tp.TotalDistance), y(tp.Elevation, lo, hi)
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.Stroke()

	if len(samples) > 0 {
		top := 0.0
		for _, s := range samples {
			top = math.Max(top, s.Speed)
		}
		dc.SetColor(speedCol)
		dc.SetLineWidth(2)
		for i, s := range samples {
			px, py := x(s.Distance), y(s.Speed, 0, top)
			if i == 0 {
				dc.MoveTo(px, py)
			} else {
				dc.LineTo(px, py)
			}
		}
		dc.Stroke()
	}
	return dc.Image(), nil
}

// scaler maps [lo, hi] onto the plot height, bottom up. A flat range is
// drawn through the middle.
func scaler(bottom, height float64) func(v, lo, hi float64) float64 {
	return func(v, lo, hi float64) float64 {
		if hi <= lo {
			return bottom - height/2
		}
		return bottom - (v-lo)/(hi-lo)*height
	}
}

func SavePNG(name string, img image.Image) error {
	return gg.SavePNG(name, img)
}

func WritePNG(w io.Writer, img image.Image) error {
	return gg.NewContextForImage(img).EncodePNG(w)
}
