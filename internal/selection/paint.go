package selection

// ZoomThreshold separates the overview regime (zoom <= threshold), where the
// selected district is highlighted, from the detail regime where it is not.
const ZoomThreshold = 8.0

// District layers and the paint properties derived for them.
const (
	FillLayer = "district-fill"
	LineLayer = "district-line"

	FillOpacity = "fill-opacity"
	LineOpacity = "line-opacity"
	LineWidth   = "line-width"

	// DistrictProperty is compared against the selected district per feature.
	DistrictProperty = "DISTRICT"
)

// Baseline and highlight values.
const (
	BaseFillOpacity     = 0.1
	BaseLineOpacity     = 0.8
	BaseLineWidth       = 1.5
	SelectedFillOpacity = 0.4
	SelectedLineOpacity = 1.0
	SelectedLineWidth   = 2.5
)

// Value is a paint value: either a constant, or a per-feature choice
// between Match and Else depending on whether the feature's DISTRICT equals
// District.
type Value struct {
	Conditional bool
	District    string
	Match       float64
	Else        float64
}

// Constant returns an unconditional value.
func Constant(v float64) Value {
	return Value{Else: v}
}

// Expression renders the value in the engine's style expression form:
// a number, or ["case", ["==", ["get", "DISTRICT"], d], match, else].
func (v Value) Expression() any {
	if !v.Conditional {
		return v.Else
	}
	return []any{
		"case",
		[]any{"==", []any{"get", DistrictProperty}, v.District},
		v.Match,
		v.Else,
	}
}

// For returns the value a feature with the given DISTRICT renders with.
func (v Value) For(district any) float64 {
	if v.Conditional && district == any(v.District) {
		return v.Match
	}
	return v.Else
}

// Paint holds the derived paint values of the two district layers.
type Paint struct {
	FillOpacity Value
	LineOpacity Value
	LineWidth   Value
}

// Baseline is the styling with nothing highlighted.
func Baseline() Paint {
	return Paint{
		FillOpacity: Constant(BaseFillOpacity),
		LineOpacity: Constant(BaseLineOpacity),
		LineWidth:   Constant(BaseLineWidth),
	}
}

// Derive computes the district layer paint for a state at a zoom level.
// Above the threshold the selection is not shown.
func Derive(s State, zoom float64) Paint {
	d, ok := s.District()
	if !ok || zoom > ZoomThreshold {
		return Baseline()
	}
	return Paint{
		FillOpacity: Value{Conditional: true, District: d, Match: SelectedFillOpacity, Else: BaseFillOpacity},
		LineOpacity: Value{Conditional: true, District: d, Match: SelectedLineOpacity, Else: BaseLineOpacity},
		LineWidth:   Value{Conditional: true, District: d, Match: SelectedLineWidth, Else: BaseLineWidth},
	}
}

// Properties flattens the paint into layer -> property -> expression.
func (p Paint) Properties() map[string]map[string]any {
	return map[string]map[string]any{
		FillLayer: {FillOpacity: p.FillOpacity.Expression()},
		LineLayer: {
			LineOpacity: p.LineOpacity.Expression(),
			LineWidth:   p.LineWidth.Expression(),
		},
	}
}
