package plot

import (
	"bytes"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/path"
	"ride-simulator/internal/sim"
	"ride-simulator/internal/track"
)

func ramp() *path.Path {
	pts := []track.Point{track.NewPoint(0, 0, 0)}
	for i := 1; i <= 30; i++ {
		next := pts[i-1].Point.Destination(90, 100, geo.EarthRadius)
		next.Elevation = float64(i)
		pts = append(pts, track.Point{Point: next})
	}
	return path.New(pts, path.WithLogger(log.New(io.Discard, "", 0)))
}

func TestProfile(t *testing.T) {
	p := ramp()
	samples := []sim.Sample{{Distance: 0, Speed: 0}, {Distance: 1500, Speed: 8}, {Distance: p.TotalDistance(), Speed: 6}}
	img, err := Profile(p, samples, 400, 200)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	// the elevation line starts at the bottom left corner of the plot area
	r, g, b, _ := img.At(int(margin)+1, 200-int(margin)-1).RGBA()
	assert.False(t, r == 0xffff && g == 0xffff && b == 0xffff, "expected a drawn pixel")

	// the corner of the canvas stays blank
	r, g, b, _ = img.At(1, 1).RGBA()
	assert.True(t, r == 0xffff && g == 0xffff && b == 0xffff)
}

func TestProfileEmptyPath(t *testing.T) {
	_, err := Profile(path.New(nil), nil, 100, 100)
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestSaveAndWritePNG(t *testing.T) {
	img, err := Profile(ramp(), nil, 120, 80)
	require.NoError(t, err)

	name := filepath.Join(t.TempDir(), "profile.png")
	require.NoError(t, SavePNG(name, img))
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))
	_, err = png.Decode(&buf)
	require.NoError(t, err)
}
