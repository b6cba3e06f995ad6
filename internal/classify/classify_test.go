package classify

import (
	"errors"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyArea(t *testing.T) {
	tests := []struct {
		name   string
		props  geojson.Properties
		wantNm string
		wantID *string
	}{
		{
			name:   "no candidate keys",
			props:  geojson.Properties{"ACRES": 12.0, "STATE": "OR"},
			wantNm: UnnamedArea,
		},
		{
			name:   "empty properties",
			props:  nil,
			wantNm: UnnamedArea,
		},
		{
			name:   "listing name beats generic name",
			props:  geojson.Properties{"NAME": "generic", "LISTING_NA": "Kalmiopsis Adjacent"},
			wantNm: "Kalmiopsis Adjacent",
		},
		{
			name:   "id from a different key than name",
			props:  geojson.Properties{"name": "Soda Mountain", "OBJECTID": 42.0},
			wantNm: "Soda Mountain",
			wantID: ptr("42"),
		},
		{
			name:   "id without name",
			props:  geojson.Properties{"OBJECTID_1": "A-7"},
			wantNm: UnnamedArea,
			wantID: ptr("A-7"),
		},
		{
			name:   "null value is absent",
			props:  geojson.Properties{"LISTING_NA": nil, "NAME": "Fallback"},
			wantNm: "Fallback",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyArea(tt.props, AreaNameKeys, AreaIDKeys)
			assert.Equal(t, tt.wantNm, got.Name)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestClassifyTrail(t *testing.T) {
	t.Run("dedicated source ignores properties", func(t *testing.T) {
		got, err := ClassifyTrail(SourcePCT, geojson.Properties{"TRAIL_NAME": "Something Else"})
		require.NoError(t, err)
		assert.Equal(t, PCTName, got.Name)
		assert.Equal(t, PCTDescription, got.Description)
	})

	t.Run("generic source probes names", func(t *testing.T) {
		got, err := ClassifyTrail(SourceTrails, geojson.Properties{"NAME": "Rogue River", "TRAIL_TYPE": "TERRA"})
		require.NoError(t, err)
		assert.Equal(t, TrailInfo{Name: "Rogue River", Description: "TERRA"}, got)
	})

	t.Run("generic fallback", func(t *testing.T) {
		got, err := ClassifyTrail(SourceTrails, geojson.Properties{})
		require.NoError(t, err)
		assert.Equal(t, TrailInfo{Name: UnnamedTrail, Description: GenericTrail}, got)
	})

	t.Run("substring relabel", func(t *testing.T) {
		got, err := ClassifyTrail(SourceTrails, geojson.Properties{"TRAIL_NAME": "PACIFIC CREST NATIONAL SCENIC TRAIL #2000"})
		require.NoError(t, err)
		assert.Equal(t, PCTName, got.Name)
	})

	t.Run("relabel is case-sensitive", func(t *testing.T) {
		got, err := ClassifyTrail(SourceTrails, geojson.Properties{"TRAIL_NAME": "Pacific Crest Connector"})
		require.NoError(t, err)
		assert.Equal(t, "Pacific Crest Connector", got.Name)
	})

	t.Run("custom rules", func(t *testing.T) {
		c := TrailClassifier{Rules: []Rule{{Match: "OREGON COAST", Name: "Oregon Coast Trail", Description: "Coastal route"}}}
		got, err := c.Classify(SourceTrails, geojson.Properties{"TRAIL_NAME": "OREGON COAST TRAIL SEG 3"})
		require.NoError(t, err)
		assert.Equal(t, TrailInfo{Name: "Oregon Coast Trail", Description: "Coastal route"}, got)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := ClassifyTrail("roads", geojson.Properties{})
		assert.True(t, errors.Is(err, ErrUnknownTrailSource))
	})
}

func TestClassifyDistrict(t *testing.T) {
	got := ClassifyDistrict(geojson.Properties{
		"DISTRICT":               "4",
		"Representative":         "Smith, Jane",
		"Party":                  "D",
		"Acres":                  9876543.21,
		"SUM_RoadlessAreasAcres": 1234567.0,
	})
	assert.Equal(t, "4", got.District)
	assert.Equal(t, "Jane Smith", got.Representative)
	assert.Equal(t, "D", got.Party)
	assert.Equal(t, "9,876,543", got.TotalAcres)
	assert.Equal(t, "1,234,567", got.RoadlessAcres)

	share := got.RoadlessShare()
	require.True(t, share.OK)
	assert.InDelta(t, 12.5, share.Value, 0.01)
}

func TestClassifyDistrict_Fallbacks(t *testing.T) {
	got := ClassifyDistrict(geojson.Properties{})
	assert.Equal(t, Unknown, got.District)
	assert.Equal(t, UnknownRepresentative, got.Representative)
	assert.Equal(t, Unknown, got.Party)
	assert.Equal(t, "—", got.TotalAcres)
	assert.Equal(t, "—", got.RoadlessAcres)
	assert.False(t, got.RoadlessShare().OK)
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "Jane Smith", FormatName("Smith, Jane"))
	assert.Equal(t, "Unknown Representative", FormatName("Unknown Representative"))
	assert.Equal(t, "a, b, c", FormatName("a, b, c"))
	assert.Equal(t, "Smith,Jane", FormatName("Smith,Jane"))
}

func TestProbe(t *testing.T) {
	props := geojson.Properties{"b": 2.0, "c": "three"}
	v, ok := Probe(props, "a", "b", "c")
	require.True(t, ok)
	assert.Equal(t, "b", v.Key)
	assert.Equal(t, "2", v.String())

	_, ok = Probe(props, "x", "y")
	assert.False(t, ok)

	f, ok := Value{Raw: "12.5"}.Float()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)
}

func ptr(s string) *string { return &s }
