// Package popup builds the markup shown in map popups for area polygons,
// trail lines and congressional districts. Building content has no side
// effects; the caller decides where the markup goes.
package popup

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/mapengine"
	"github.com/joeblew999/plat-roadless/internal/measure"
	"github.com/joeblew999/plat-roadless/internal/templates"
)

//go:embed templates/*.html
var templateFS embed.FS

// PCTLength is shown instead of a computed length for the dedicated PCT source.
const PCTLength = "2,650 miles (Mexico to Canada)"

// KeyGISMiles is the surveyed length some trail sources carry.
const KeyGISMiles = "GIS_MILES"

// ErrDistrictNotString is returned when the district number handed to the
// label formatter is not a string.
var ErrDistrictNotString = classify.ErrDistrictNotString

// ErrUnknownKind is returned by ForFeature for a layer kind with no popup.
var ErrUnknownKind = errors.New("no popup for layer kind")

// Builder renders popup fragments.
type Builder struct {
	renderer *templates.Renderer
	trails   classify.TrailClassifier
}

// Option configures a Builder.
type Option func(*Builder)

// WithTrailRules replaces the trail relabel rules.
func WithTrailRules(rules []classify.Rule) Option {
	return func(b *Builder) { b.trails.Rules = rules }
}

// NewBuilder parses the embedded popup templates.
func NewBuilder(opts ...Option) (*Builder, error) {
	r, err := templates.New(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing popup templates: %w", err)
	}
	b := &Builder{renderer: r, trails: classify.TrailClassifier{Rules: classify.DefaultRules}}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

type areaData struct {
	Name  string
	ID    *string
	Acres string
}

// Area renders an area polygon popup.
func (b *Builder) Area(info classify.AreaInfo, acres measure.Measurement) (string, error) {
	return b.renderer.Render("area-popup", areaData{
		Name:  info.Name,
		ID:    info.ID,
		Acres: acresText(acres),
	})
}

type trailData struct {
	Name        string
	Description string
	Length      string
}

// Trail renders a trail popup. The dedicated PCT source always shows
// PCTLength; other sources show miles, or the surveyed GIS_MILES value when
// miles could not be computed.
func (b *Builder) Trail(sourceID string, info classify.TrailInfo, miles measure.Measurement, props map[string]any) (string, error) {
	length := PCTLength
	if sourceID != classify.SourcePCT {
		length = milesText(miles, props)
	}
	return b.renderer.Render("trail-popup", trailData{
		Name:        info.Name,
		Description: info.Description,
		Length:      length,
	})
}

type districtData struct {
	District      string
	Label         string
	TotalAcres    string
	RoadlessAcres string
	Share         string
}

// District renders a district popup. It fails when the district number is
// not a string.
func (b *Builder) District(info classify.DistrictInfo) (string, error) {
	label, err := Label(info)
	if err != nil {
		return "", err
	}
	data := districtData{
		District:      fmt.Sprint(info.District),
		Label:         label,
		TotalAcres:    withUnit(info.TotalAcres, "acres"),
		RoadlessAcres: withUnit(info.RoadlessAcres, "acres"),
	}
	if share := info.RoadlessShare(); share.OK {
		data.Share = share.Format(1) + "%"
	}
	return b.renderer.Render("district-popup", data)
}

// ForFeature classifies and measures f according to its layer kind and
// renders the matching popup.
func (b *Builder) ForFeature(kind string, f mapengine.Feature) (string, error) {
	switch kind {
	case mapengine.KindArea:
		info := classify.ClassifyArea(f.Properties, classify.AreaNameKeys, classify.AreaIDKeys)
		return b.Area(info, measure.AreaAcres(f.Geometry))
	case mapengine.KindTrail:
		info, err := b.trails.Classify(f.SourceID, f.Properties)
		if err != nil {
			return "", err
		}
		return b.Trail(f.SourceID, info, measure.LengthMiles(f.Geometry), f.Properties)
	case mapengine.KindDistrict:
		return b.District(classify.ClassifyDistrict(f.Properties))
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Label builds "Rep. First Last (Party–OR-DD)".
func Label(info classify.DistrictInfo) (string, error) {
	padded, err := ZeroPad(info.District)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Rep. %s (%s–OR-%s)", info.Representative, info.Party, padded), nil
}

// ZeroPad left-pads a district number to two characters with "0".
func ZeroPad(district any) (string, error) {
	s, err := classify.DistrictInfo{District: district}.Number()
	if err != nil {
		return "", err
	}
	if n := utf8.RuneCountInString(s); n < 2 {
		return strings.Repeat("0", 2-n) + s, nil
	}
	return s, nil
}

func acresText(m measure.Measurement) string {
	if !m.OK {
		return measure.Placeholder
	}
	return classify.FormatAcres(m.Value) + " acres"
}

func milesText(m measure.Measurement, props map[string]any) string {
	if m.OK {
		return m.Format(1) + " miles"
	}
	if v, ok := classify.Probe(props, KeyGISMiles); ok {
		if f, ok := v.Float(); ok {
			if gis := measure.Valid(f); gis.OK {
				return gis.Format(1) + " miles"
			}
		}
	}
	return measure.Placeholder
}

func withUnit(v, unit string) string {
	if v == measure.Placeholder {
		return v
	}
	return v + " " + unit
}
