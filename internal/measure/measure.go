// Package measure computes user-facing measurements of a single feature's
// geometry: area in acres, length in miles and bounding boxes.
//
// Every function here is total. Malformed input yields a Measurement that
// is not OK and renders as the "—" placeholder.
package measure

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Conversion factors.
const (
	SquareMetersPerAcre = 4046.8564224
	MilesPerMeter       = 0.000621371
)

// Placeholder is rendered in place of a measurement that could not be computed.
const Placeholder = "—"

// Measurement is a computed value, or the absence of one.
type Measurement struct {
	Value float64
	OK    bool
}

// Valid wraps v, rejecting non-finite and non-positive values.
func Valid(v float64) Measurement {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return Measurement{}
	}
	return Measurement{Value: v, OK: true}
}

// String renders the value with no decimals, or the placeholder.
func (m Measurement) String() string {
	return m.Format(0)
}

// Format renders the value with the given number of decimals, or the placeholder.
func (m Measurement) Format(decimals int) string {
	if !m.OK {
		return Placeholder
	}
	return strconv.FormatFloat(m.Value, 'f', decimals, 64)
}

// AreaAcres returns the geodesic area of g in acres.
func AreaAcres(g orb.Geometry) Measurement {
	m2, ok := safe(func() float64 { return math.Abs(geo.Area(g)) }, g)
	if !ok {
		return Measurement{}
	}
	return Valid(m2 / SquareMetersPerAcre)
}

// LengthMiles returns the geodesic length of g in miles.
func LengthMiles(g orb.Geometry) Measurement {
	meters, ok := safe(func() float64 { return geo.Length(g) }, g)
	if !ok {
		return Measurement{}
	}
	return Valid(meters * MilesPerMeter)
}

// Bounds returns the bounding box of g. It reports false for nil or empty
// geometries and for bounds with non-finite corners.
func Bounds(g orb.Geometry) (b orb.Bound, ok bool) {
	if g == nil {
		return orb.Bound{}, false
	}
	defer func() {
		if recover() != nil {
			b, ok = orb.Bound{}, false
		}
	}()
	b = g.Bound()
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return orb.Bound{}, false
		}
	}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return orb.Bound{}, false
	}
	return b, true
}

// safe runs fn, converting a nil geometry or a panic into ok=false.
func safe(fn func() float64, g orb.Geometry) (v float64, ok bool) {
	if g == nil {
		return 0, false
	}
	defer func() {
		if recover() != nil {
			v, ok = 0, false
		}
	}()
	return fn(), true
}
