package boundary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outline = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME": "west"},
     "geometry": {"type": "Polygon", "coordinates": [[[-124,42],[-121,42],[-121,46],[-124,46],[-124,42]]]}},
    {"type": "Feature", "properties": {"NAME": "east"},
     "geometry": {"type": "Polygon", "coordinates": [[[-121,42],[-116.5,42],[-116.5,46],[-121,46],[-121,42]]]}}
  ]
}`

func TestParse(t *testing.T) {
	b, err := Parse([]byte(outline))
	require.NoError(t, err)

	assert.Equal(t, 2, b.Features)
	assert.Equal(t, -124.0, b.Bound.Min.Lon())
	assert.Equal(t, -116.5, b.Bound.Max.Lon())
	assert.Equal(t, 46.0, b.Bound.Max.Lat())
	require.True(t, b.Acres.OK)
	// Roughly the size of Oregon.
	assert.InDelta(t, 62e6, b.Acres.Value, 8e6)
}

func TestParseSingleFeature(t *testing.T) {
	b, err := Parse([]byte(`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Features)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(outline))
	}))
	defer srv.Close()

	b := NewFetcher(WithClient(srv.Client())).Fetch(context.Background(), srv.URL)
	require.NotNil(t, b)
	assert.Equal(t, 2, b.Features)
}

func TestFetchFailuresYieldNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(WithTimeout(time.Second))
	assert.Nil(t, f.Fetch(context.Background(), srv.URL))
	assert.Nil(t, f.Fetch(context.Background(), ""))
	assert.Nil(t, f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.geojson")))
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oregon.geojson")
	require.NoError(t, os.WriteFile(path, []byte(outline), 0o644))

	assert.NotNil(t, NewFetcher().Fetch(context.Background(), path))
}

func TestStart(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(outline))
	}))
	defer srv.Close()

	p := NewFetcher().Start(context.Background(), srv.URL)
	_, ok := p.Get()
	assert.False(t, ok)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b := p.Wait(ctx)
	require.NotNil(t, b)

	got, ok := p.Get()
	assert.True(t, ok)
	assert.Same(t, b, got)
}
