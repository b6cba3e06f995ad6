// Package classify derives a canonical display identity for features whose
// property schemas differ per source.
//
// Properties are never accessed directly. Every lookup goes through Probe,
// which walks an ordered list of candidate keys and reports whether any of
// them was present.
package classify

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// Value is a property value found by Probe.
type Value struct {
	Key string
	Raw any
}

// String renders the value for display.
func (v Value) String() string {
	switch x := v.Raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Float returns the value as a number when it is numeric or a numeric string.
func (v Value) Float() (float64, bool) {
	switch x := v.Raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// Probe returns the value of the first key present in props.
// A key holding JSON null counts as absent.
func Probe(props geojson.Properties, keys ...string) (Value, bool) {
	for _, k := range keys {
		raw, ok := props[k]
		if !ok || raw == nil {
			continue
		}
		return Value{Key: k, Raw: raw}, true
	}
	return Value{}, false
}

// ProbeString is Probe rendered as a string, or fallback when nothing matched.
func ProbeString(props geojson.Properties, fallback string, keys ...string) string {
	if v, ok := Probe(props, keys...); ok {
		return v.String()
	}
	return fallback
}
