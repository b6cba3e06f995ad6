package mapview

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-roadless/internal/mapengine"
	"github.com/joeblew999/plat-roadless/internal/mapengine/memory"
	"github.com/joeblew999/plat-roadless/internal/popup"
	"github.com/joeblew999/plat-roadless/internal/selection"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

type fixture struct {
	engine *memory.Engine
	ctrl   *selection.Controller
	view   *View
	errs   []error
}

// newFixture lays out a district covering (-1,-1)..(1,1), a roadless area in
// its upper right corner and a trail crossing it at y=-0.5.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	e := memory.New(memory.WithZoom(6))

	district := geojson.NewFeature(square(-1, -1, 1, 1))
	district.Properties = geojson.Properties{
		"DISTRICT": "2", "Representative": "Bentz, Cliff", "Party": "R",
		"Acres": 44000000.0, "SUM_RoadlessAreasAcres": 4400000.0,
	}
	area := geojson.NewFeature(square(0.5, 0.5, 0.9, 0.9))
	area.Properties = geojson.Properties{"LISTING_NA": "Bull of the Woods", "OBJECTID_1": 7}
	trail := geojson.NewFeature(orb.LineString{{-2, -0.5}, {2, -0.5}})
	trail.Properties = geojson.Properties{"TRAIL_NAME": "Timberline", "TRAIL_TYPE": "Hiking"}

	for _, s := range []mapengine.SourceDef{
		{ID: "districts", Type: "geojson", Features: []*geojson.Feature{district}},
		{ID: "roadless", Type: "geojson", Features: []*geojson.Feature{area}},
		{ID: "trails", Type: "geojson", Features: []*geojson.Feature{trail}},
	} {
		require.NoError(t, e.AddSource(s))
	}
	for _, l := range []mapengine.LayerDef{
		{ID: "district-fill", Type: "fill", Source: "districts", Kind: mapengine.KindDistrict},
		{ID: "district-line", Type: "line", Source: "districts", Kind: mapengine.KindDistrict},
		{ID: "roadless-fill", Type: "fill", Source: "roadless", Kind: mapengine.KindArea},
		{ID: "trails-line", Type: "line", Source: "trails", Kind: mapengine.KindTrail},
	} {
		require.NoError(t, e.AddLayer(l, ""))
	}

	b, err := popup.NewBuilder()
	require.NoError(t, err)

	f := &fixture{engine: e}
	f.ctrl = selection.NewController(e)
	f.view = New(e, f.ctrl, b, WithErrorHandler(func(err error) { f.errs = append(f.errs, err) }))
	require.NoError(t, f.view.Mount())
	return f
}

func (f *fixture) popupHTML(t *testing.T) string {
	t.Helper()
	html, _, ok := f.engine.OpenPopup()
	require.True(t, ok, "expected an open popup")
	return html
}

func TestMountInstallsBaseline(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, selection.BaseFillOpacity, f.engine.Paint("district-fill")["fill-opacity"])
	assert.Equal(t, selection.BaseLineWidth, f.engine.Paint("district-line")["line-width"])
	// Three listeners per interactive layer plus map-wide click and zoom.
	assert.Equal(t, 5*3+2, f.engine.TotalListeners())
}

func TestClickDistrictSelectsAndOpensPopup(t *testing.T) {
	f := newFixture(t)

	f.engine.Click(orb.Point{0, 0})
	require.Empty(t, f.errs)

	assert.Equal(t, selection.Selected("2"), f.ctrl.State())
	html := f.popupHTML(t)
	assert.Contains(t, html, "Rep. Cliff Bentz (R–OR-02)")
	assert.Contains(t, html, "10.0%")
	assert.IsType(t, []any{}, f.engine.Paint("district-fill")["fill-opacity"])
}

func TestClickAreaOverDistrict(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})

	f.engine.Click(orb.Point{0.7, 0.7})
	require.Empty(t, f.errs)

	assert.False(t, f.ctrl.State().IsSelected())
	html := f.popupHTML(t)
	assert.Contains(t, html, "Bull of the Woods")
	assert.NotContains(t, html, "OR-02")
	assert.Equal(t, selection.BaseFillOpacity, f.engine.Paint("district-fill")["fill-opacity"])
}

func TestClickTrail(t *testing.T) {
	f := newFixture(t)

	f.engine.Click(orb.Point{0, -0.5})
	require.Empty(t, f.errs)

	assert.False(t, f.ctrl.State().IsSelected())
	assert.Contains(t, f.popupHTML(t), "Timberline")
}

func TestClickEmptyClearsPopup(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})

	f.engine.Click(orb.Point{10, 10})
	_, _, ok := f.engine.OpenPopup()
	assert.False(t, ok)
	assert.False(t, f.ctrl.State().IsSelected())
}

func TestClosingDistrictPopupClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})
	require.True(t, f.ctrl.State().IsSelected())

	f.engine.CloseOpenPopup()
	assert.False(t, f.ctrl.State().IsSelected())
	assert.Equal(t, selection.BaseLineOpacity, f.engine.Paint("district-line")["line-opacity"])
}

func TestViewClosePopup(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})

	require.NoError(t, f.view.ClosePopup())
	assert.False(t, f.ctrl.State().IsSelected())

	require.NoError(t, f.view.Unmount())
	assert.ErrorIs(t, f.view.ClosePopup(), ErrNotMounted)
}

func TestZoomRestylesKeepingSelection(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})

	f.engine.SetZoom(9)
	assert.Equal(t, selection.BaseFillOpacity, f.engine.Paint("district-fill")["fill-opacity"])
	assert.True(t, f.ctrl.State().IsSelected())

	f.engine.SetZoom(8)
	assert.IsType(t, []any{}, f.engine.Paint("district-fill")["fill-opacity"])
}

func TestHoverCursor(t *testing.T) {
	f := newFixture(t)

	f.engine.Move(orb.Point{0, 0})
	assert.Equal(t, CursorPointer, f.engine.Cursor())
	f.engine.Move(orb.Point{10, 10})
	assert.Equal(t, "", f.engine.Cursor())
	assert.False(t, f.ctrl.State().IsSelected())
}

func TestUnmountDetachesEverything(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})

	require.NoError(t, f.view.Unmount())
	assert.Zero(t, f.engine.TotalListeners())
	assert.False(t, f.ctrl.State().IsSelected())
	_, _, ok := f.engine.OpenPopup()
	assert.False(t, ok)

	// Events after unmount have no effect.
	f.engine.Click(orb.Point{0, 0})
	assert.False(t, f.ctrl.State().IsSelected())

	require.NoError(t, f.view.Unmount())
	assert.False(t, f.view.Mounted())
}

func TestRemountIsSymmetric(t *testing.T) {
	f := newFixture(t)
	n := f.engine.TotalListeners()

	require.NoError(t, f.view.Mount())
	assert.Equal(t, n, f.engine.TotalListeners())

	require.NoError(t, f.view.Unmount())
	require.NoError(t, f.view.Mount())
	assert.Equal(t, n, f.engine.TotalListeners())
}

func TestNonStringDistrictReportsError(t *testing.T) {
	e := memory.New(memory.WithZoom(6))
	bad := geojson.NewFeature(square(-1, -1, 1, 1))
	bad.Properties = geojson.Properties{"DISTRICT": 2}
	require.NoError(t, e.AddSource(mapengine.SourceDef{ID: "districts", Features: []*geojson.Feature{bad}}))
	require.NoError(t, e.AddLayer(mapengine.LayerDef{ID: "district-fill", Type: "fill", Source: "districts", Kind: mapengine.KindDistrict}, ""))
	require.NoError(t, e.AddLayer(mapengine.LayerDef{ID: "district-line", Type: "line", Source: "districts", Kind: mapengine.KindDistrict}, ""))

	b, err := popup.NewBuilder()
	require.NoError(t, err)
	var errs []error
	v := New(e, selection.NewController(e), b, WithErrorHandler(func(err error) { errs = append(errs, err) }))
	require.NoError(t, v.Mount())

	e.Click(orb.Point{0, 0})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], popup.ErrDistrictNotString)
}

func TestSelectActsLikeClick(t *testing.T) {
	f := newFixture(t)
	src, ok := f.engine.GetSource("districts")
	require.True(t, ok)
	feat := mapengine.Feature{LayerID: "district-fill", SourceID: "districts", Geometry: src.Features[0].Geometry, Properties: src.Features[0].Properties}

	require.NoError(t, f.view.Select(feat, orb.Point{0, 0}))
	require.Empty(t, f.errs)
	d, ok := f.ctrl.State().District()
	assert.True(t, ok)
	assert.Equal(t, "2", d)
	assert.Contains(t, f.popupHTML(t), "OR-02")

	require.NoError(t, f.view.Unmount())
	assert.ErrorIs(t, f.view.Select(feat, orb.Point{0, 0}), ErrNotMounted)
}

func TestFailedDistrictClickClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{0, 0})
	require.Equal(t, selection.Selected("2"), f.ctrl.State())

	bad := mapengine.Feature{
		LayerID:    "district-fill",
		SourceID:   "districts",
		Geometry:   square(-1, -1, 1, 1),
		Properties: geojson.Properties{"DISTRICT": 3.0},
	}
	require.NoError(t, f.view.Select(bad, orb.Point{0, 0}))
	require.Len(t, f.errs, 1)
	assert.ErrorIs(t, f.errs[0], popup.ErrDistrictNotString)

	assert.Equal(t, selection.Unselected(), f.ctrl.State())
	_, _, ok := f.engine.OpenPopup()
	assert.False(t, ok)
	assert.Equal(t, selection.BaseFillOpacity, f.engine.Paint("district-fill")["fill-opacity"])
	assert.Equal(t, selection.BaseLineWidth, f.engine.Paint("district-line")["line-width"])
}

func TestClosePopupWithoutPopupClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.engine.Click(orb.Point{10, 10})
	_, _, ok := f.engine.OpenPopup()
	require.False(t, ok)

	require.NoError(t, f.view.ClosePopup())
	assert.Equal(t, selection.Unselected(), f.ctrl.State())
	assert.Equal(t, selection.BaseLineOpacity, f.engine.Paint("district-line")["line-opacity"])
}
