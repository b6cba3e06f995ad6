package measure

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roughly one square mile near the Oregon Cascades
func squareMile() orb.Polygon {
	const lat = 44.0
	dLat := 1609.344 / 111320.0
	dLon := dLat / math.Cos(lat*math.Pi/180)
	return orb.Polygon{orb.Ring{
		{-122.0, lat},
		{-122.0 + dLon, lat},
		{-122.0 + dLon, lat + dLat},
		{-122.0, lat + dLat},
		{-122.0, lat},
	}}
}

func TestAreaAcres(t *testing.T) {
	m := AreaAcres(squareMile())
	require.True(t, m.OK)
	// 640 acres per square mile, allow 1% for the spherical model
	assert.InDelta(t, 640, m.Value, 6.4)
}

func TestAreaAcres_Sentinel(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
	}{
		{"nil geometry", nil},
		{"empty polygon", orb.Polygon{}},
		{"degenerate ring", orb.Polygon{orb.Ring{{0, 0}, {0, 0}, {0, 0}, {0, 0}}}},
		{"line has no area", orb.LineString{{0, 0}, {1, 1}}},
		{"point", orb.Point{1, 2}},
		{"non-finite coordinates", orb.Polygon{orb.Ring{{math.NaN(), 0}, {1, 0}, {1, 1}, {math.NaN(), 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Measurement
			assert.NotPanics(t, func() { m = AreaAcres(tt.geom) })
			assert.False(t, m.OK)
			assert.Equal(t, Placeholder, m.String())
		})
	}
}

func TestLengthMiles(t *testing.T) {
	// one degree of longitude on the equator is ~69.17 miles
	m := LengthMiles(orb.LineString{{0, 0}, {1, 0}})
	require.True(t, m.OK)
	assert.InDelta(t, 69.17, m.Value, 0.7)
	assert.Equal(t, "69.2", m.Format(1))
}

func TestLengthMiles_Sentinel(t *testing.T) {
	assert.Equal(t, Placeholder, LengthMiles(nil).String())
	assert.Equal(t, Placeholder, LengthMiles(orb.LineString{}).String())
	assert.Equal(t, Placeholder, LengthMiles(orb.LineString{{math.Inf(1), 0}, {1, 0}}).String())
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(1).OK)
	assert.False(t, Valid(0).OK)
	assert.False(t, Valid(-3).OK)
	assert.False(t, Valid(math.NaN()).OK)
	assert.False(t, Valid(math.Inf(1)).OK)
}

func TestBounds(t *testing.T) {
	b, ok := Bounds(squareMile())
	require.True(t, ok)
	assert.Equal(t, -122.0, b.Min[0])
	assert.Equal(t, 44.0, b.Min[1])

	_, ok = Bounds(nil)
	assert.False(t, ok)
	_, ok = Bounds(orb.Polygon{})
	assert.False(t, ok)
}
