package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/priority"
)

func TestLayerServiceDefaults(t *testing.T) {
	s, err := NewLayerService(t.TempDir(), nil)
	require.NoError(t, err)

	layers := s.List()
	require.Len(t, layers, 5)
	assert.Equal(t, "district-fill", layers[0].ID)
	assert.Equal(t, "pct-line", layers[4].ID)

	assert.Equal(t, priority.Default, s.Order())
	assert.Equal(t, classify.DefaultRules, s.TrailRules())

	l, ok := s.Get("roadless-fill")
	require.True(t, ok)
	assert.Equal(t, "area", l.Kind)
	_, ok = s.Get("nope")
	assert.False(t, ok)

	src, ok := s.Source("pct")
	require.True(t, ok)
	assert.Equal(t, "pct_oregon.geojson", src.File)
}

const catalogYAML = `
sources:
  - id: districts
    file: districts.geojson
  - id: areas
    file: areas.shp
layers:
  - id: district-fill
    source: districts
    type: fill
    kind: district
    interactive: true
    opacity: 0.1
  - name: District Line
    source: districts
    type: line
    kind: district
    interactive: true
  - id: areas-fill
    source: areas
    type: fill
    kind: area
    interactive: true
priority: [district-fill, district-line, areas-fill]
trailRules:
  - match: OREGON DESERT
    name: Oregon Desert Trail
    description: A 750-mile route.
`

func TestLayerServiceFromYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CatalogFile), []byte(catalogYAML), 0o644))

	s, err := NewLayerService(dir, nil)
	require.NoError(t, err)

	_, ok := s.Get("district-line")
	assert.True(t, ok, "id generated from name")
	assert.Equal(t, priority.Order{"district-fill", "district-line", "areas-fill"}, s.Order())

	rules := s.TrailRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "Oregon Desert Trail", rules[0].Name)
}

func TestLayerServiceInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "layers: [",
		"unknown source": "sources: [{id: a}]\nlayers: [{id: x, source: b, type: fill}]",
		"bad type":       "sources: [{id: a}]\nlayers: [{id: x, source: a, type: circle}]",
		"duplicate":      "sources: [{id: a}]\nlayers: [{id: x, source: a, type: fill}, {id: x, source: a, type: line}]",
		"bad priority":   "sources: [{id: a}]\nlayers: [{id: x, source: a, type: fill}]\npriority: [y]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, CatalogFile), []byte(doc), 0o644))
			_, err := NewLayerService(dir, nil)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestPaint(t *testing.T) {
	fill := Paint(LayerConfig{Type: "fill", Color: "#fff", Opacity: 0.5})
	assert.Equal(t, map[string]any{"fill-color": "#fff", "fill-opacity": 0.5}, fill)

	line := Paint(LayerConfig{Type: "line", Color: "#000", Opacity: 1, Width: 2})
	assert.Equal(t, 2.0, line["line-width"])
}

func TestGenerateID(t *testing.T) {
	assert.Equal(t, "pct-line", generateID("  PCT Line "))
	assert.Equal(t, "roads", generateID("Roads!"))
}
