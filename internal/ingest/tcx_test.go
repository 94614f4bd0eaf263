package ingest

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/path"
	"ride-simulator/internal/track"
)

func TestReadTCXSnippet(t *testing.T) {
	fh, err := os.Open("testdata/ride_snippet.tcx")
	require.NoError(t, err)
	defer fh.Close()

	pts, err := ReadTCX(fh)
	require.NoError(t, err)
	require.Len(t, pts, 22)

	first := pts[0]
	assert.Equal(t, geo.NewPoint(36.1234567, -115.1234567, 610.8), first.Point)
	assert.Equal(t, 120.0, first.HeartRate)
	assert.Equal(t, 6.0, first.Speed)
	assert.Equal(t, 180.0, first.Watts)
	assert.True(t, time.Date(2021, 6, 15, 14, 2, 11, 0, time.UTC).Equal(first.Time))

	last := pts[21]
	assert.Equal(t, 141.0, last.HeartRate)
	assert.Equal(t, 5.0, last.Speed)
	assert.Equal(t, 222.0, last.Watts)

	p := path.New(pts)
	pt, ok := p.TrackPoint(1300)
	require.True(t, ok)
	assert.Equal(t, 18, pt.Index)
}

func TestTCXAndGPXAgree(t *testing.T) {
	g, err := ReadFile("testdata/ride_snippet.gpx", nil)
	require.NoError(t, err)
	x, err := ReadFile("testdata/ride_snippet.tcx", nil)
	require.NoError(t, err)
	require.Len(t, x, len(g))

	for i := range g {
		assert.Equal(t, g[i].Point, x[i].Point, "point %d", i)
		assert.True(t, g[i].Time.Equal(x[i].Time), "point %d", i)
	}
}

func TestReadTCXDefaults(t *testing.T) {
	doc := `<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
<Activities><Activity><Lap><Track>
  <Trackpoint>
    <Time>2021-06-15T14:02:11.250Z</Time>
    <Position><LatitudeDegrees>45.5</LatitudeDegrees><LongitudeDegrees>7.25</LongitudeDegrees></Position>
  </Trackpoint>
  <Trackpoint>
    <Time>2021-06-15T14:02:12Z</Time>
    <HeartRateBpm><Value>130</Value></HeartRateBpm>
  </Trackpoint>
  <Trackpoint>
    <Position><LatitudeDegrees>45.6</LatitudeDegrees><LongitudeDegrees></LongitudeDegrees></Position>
  </Trackpoint>
  <Trackpoint>
    <Position><LatitudeDegrees>45.7</LatitudeDegrees><LongitudeDegrees>7.5</LongitudeDegrees></Position>
    <AltitudeMeters>1201.5</AltitudeMeters>
    <Speed>8.5</Speed>
    <Watts>250</Watts>
  </Trackpoint>
</Track></Lap></Activity></Activities>
</TrainingCenterDatabase>`

	pts, err := ReadTCX(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, pts, 2)

	want := track.Point{
		Point: geo.NewPoint(45.5, 7.25, 0),
		Time:  time.Date(2021, 6, 15, 14, 2, 11, 250_000_000, time.UTC),
	}
	assert.True(t, want.Equal(pts[0]), "got %v", pts[0])

	assert.Equal(t, geo.NewPoint(45.7, 7.5, 1201.5), pts[1].Point)
	assert.Equal(t, 8.5, pts[1].Speed)
	assert.Equal(t, 250.0, pts[1].Watts)
	assert.Equal(t, 0.0, pts[1].HeartRate)
	assert.True(t, pts[1].Time.IsZero())
}

func TestReadTCXErrors(t *testing.T) {
	_, err := ReadTCX(strings.NewReader(`<Trackpoint><Time>noon</Time><Position><LatitudeDegrees>1</LatitudeDegrees><LongitudeDegrees>2</LongitudeDegrees></Position></Trackpoint>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse tcx")

	_, err = ReadTCX(strings.NewReader(`<Trackpoint><Position><LatitudeDegrees>1</LatitudeDegrees><LongitudeDegrees>2</LongitudeDegrees></Position><Watts>lots</Watts></Trackpoint>`))
	require.Error(t, err)
}
