package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joeblew999/plat-roadless/internal/measure"
)

// Trail source identifiers.
const (
	SourcePCT    = "pct"
	SourceTrails = "trails"
)

// Canonical text for the Pacific Crest Trail.
const (
	PCTName        = "Pacific Crest National Scenic Trail"
	PCTDescription = "A 2,650-mile National Scenic Trail running from Mexico to Canada through California, Oregon and Washington."
)

// Fallback labels.
const (
	UnnamedArea           = "Unnamed area"
	UnnamedTrail          = "Unnamed trail"
	GenericTrail          = "Trail"
	Unknown               = "Unknown"
	UnknownRepresentative = "Unknown Representative"
)

// Default candidate keys, highest priority first.
var (
	AreaNameKeys  = []string{"LISTING_NA", "NAME", "Name", "name"}
	AreaIDKeys    = []string{"OBJECTID_1", "OBJECTID", "ID"}
	TrailNameKeys = []string{"TRAIL_NAME", "NAME", "name"}
	TrailDescKeys = []string{"TRAIL_TYPE", "TRAIL_CLASS"}
)

// District property keys.
const (
	KeyDistrict       = "DISTRICT"
	KeyRepresentative = "Representative"
	KeyParty          = "Party"
	KeyAcres          = "Acres"
	KeyRoadlessAcres  = "SUM_RoadlessAreasAcres"
)

var (
	// ErrUnknownTrailSource is returned for a source outside the known trail sources.
	ErrUnknownTrailSource = errors.New("unknown trail source")
	// ErrDistrictNotString means a district number is not a string. Upstream
	// data is expected to be clean, so callers do not recover from it.
	ErrDistrictNotString = errors.New("district number is not a string")
)

// AreaInfo identifies an area polygon.
type AreaInfo struct {
	Name string
	ID   *string
}

// ClassifyArea resolves the name and identifier of an area independently.
func ClassifyArea(props geojson.Properties, nameKeys, idKeys []string) AreaInfo {
	info := AreaInfo{Name: ProbeString(props, UnnamedArea, nameKeys...)}
	if v, ok := Probe(props, idKeys...); ok {
		id := v.String()
		info.ID = &id
	}
	return info
}

// TrailInfo identifies a trail segment.
type TrailInfo struct {
	Name        string
	Description string
}

// Rule relabels a generic trail whose name contains Match.
// Matching is case-sensitive and literal.
type Rule struct {
	Match       string
	Name        string
	Description string
}

// DefaultRules relabel Pacific Crest segments found in the generic trails source.
var DefaultRules = []Rule{
	{Match: "PACIFIC CREST", Name: PCTName, Description: PCTDescription},
}

// TrailClassifier classifies trail features with a configurable rule set.
type TrailClassifier struct {
	Rules []Rule
}

// ClassifyTrail classifies with DefaultRules.
func ClassifyTrail(sourceID string, props geojson.Properties) (TrailInfo, error) {
	return TrailClassifier{Rules: DefaultRules}.Classify(sourceID, props)
}

// Classify dispatches on the source. Rules only apply to the generic source.
func (c TrailClassifier) Classify(sourceID string, props geojson.Properties) (TrailInfo, error) {
	switch sourceID {
	case SourcePCT:
		return TrailInfo{Name: PCTName, Description: PCTDescription}, nil
	case SourceTrails:
		info := TrailInfo{
			Name:        ProbeString(props, UnnamedTrail, TrailNameKeys...),
			Description: ProbeString(props, GenericTrail, TrailDescKeys...),
		}
		for _, r := range c.Rules {
			if r.Match != "" && strings.Contains(info.Name, r.Match) {
				return TrailInfo{Name: r.Name, Description: r.Description}, nil
			}
		}
		return info, nil
	default:
		return TrailInfo{}, fmt.Errorf("%w: %q", ErrUnknownTrailSource, sourceID)
	}
}

// DistrictInfo describes a congressional district feature.
type DistrictInfo struct {
	// District is the raw DISTRICT property, or Unknown when absent.
	District       any
	Representative string
	Party          string
	TotalAcres     string
	RoadlessAcres  string

	totalAcres    measure.Measurement
	roadlessAcres measure.Measurement
}

// Number returns the district number, failing when DISTRICT is not a string.
func (d DistrictInfo) Number() (string, error) {
	s, ok := d.District.(string)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrDistrictNotString, d.District)
	}
	return s, nil
}

// RoadlessShare returns the roadless fraction of the district area in percent.
func (d DistrictInfo) RoadlessShare() measure.Measurement {
	if !d.totalAcres.OK || !d.roadlessAcres.OK {
		return measure.Measurement{}
	}
	return measure.Valid(d.roadlessAcres.Value / d.totalAcres.Value * 100)
}

// ClassifyDistrict extracts the district fields with per-field fallbacks.
func ClassifyDistrict(props geojson.Properties) DistrictInfo {
	info := DistrictInfo{
		District:       any(Unknown),
		Representative: FormatName(ProbeString(props, UnknownRepresentative, KeyRepresentative)),
		Party:          ProbeString(props, Unknown, KeyParty),
		TotalAcres:     measure.Placeholder,
		RoadlessAcres:  measure.Placeholder,
	}
	if v, ok := Probe(props, KeyDistrict); ok {
		info.District = v.Raw
	}
	if v, ok := Probe(props, KeyAcres); ok {
		if f, ok := v.Float(); ok {
			info.totalAcres = measure.Valid(f)
			info.TotalAcres = FormatAcres(f)
		}
	}
	if v, ok := Probe(props, KeyRoadlessAcres); ok {
		if f, ok := v.Float(); ok {
			info.roadlessAcres = measure.Valid(f)
			info.RoadlessAcres = FormatAcres(f)
		}
	}
	return info
}

// FormatName turns "Last, First" into "First Last". Anything that does not
// split into exactly two parts on ", " is returned unchanged.
func FormatName(raw string) string {
	parts := strings.Split(raw, ", ")
	if len(parts) != 2 {
		return raw
	}
	return parts[1] + " " + parts[0]
}

var printer = message.NewPrinter(language.English)

// FormatAcres renders a number with thousands grouping and no decimals.
func FormatAcres(v float64) string {
	return printer.Sprintf("%.0f", v)
}
