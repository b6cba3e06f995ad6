package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/measure"
)

const districtsGeoJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"DISTRICT":"2","Representative":"Bentz, Cliff","Party":"R","Acres":44000000,"SUM_RoadlessAreasAcres":4400000},
   "geometry":{"type":"Polygon","coordinates":[[[-122,43],[-117,43],[-117,46],[-122,46],[-122,43]]]}},
  {"type":"Feature","properties":{"DISTRICT":"5","Representative":"Bynum, Janelle","Party":"D"},
   "geometry":{"type":"Polygon","coordinates":[[[-123,44],[-122,44],[-122,45],[-123,45],[-123,44]]]}}
]}`

func TestPrintDistricts(t *testing.T) {
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "sources")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "or_congressional_districts.geojson"), []byte(districtsGeoJSON), 0o644))

	var out bytes.Buffer
	require.NoError(t, printDistricts(context.Background(), &out, dataDir))

	got := out.String()
	assert.Contains(t, got, "Cliff Bentz")
	assert.Contains(t, got, "44,000,000")
	assert.Contains(t, got, "10.0%")
	assert.Contains(t, got, "2 districts, 44,000,000 acres, 4,400,000 roadless")
}

func TestPrintDistrictsMissingSource(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, printDistricts(context.Background(), &out, t.TempDir()), os.ErrNotExist)
}

func TestAcresRoundLikePopups(t *testing.T) {
	for _, v := range []float64{1234.4, 1234.6, 999.5, 0.49} {
		assert.Equal(t, classify.FormatAcres(v), acres(&v), "%v", v)
	}
	assert.Equal(t, "1,235", acres(ptr(1234.6)))
	assert.Equal(t, measure.Placeholder, acres(nil))
}

func ptr(v float64) *float64 { return &v }
