// Package mapview wires a map engine to the selection controller and the
// popup builder. A View is mounted once per map; every listener it attaches
// is detached again on unmount.
package mapview

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/mapengine"
	"github.com/joeblew999/plat-roadless/internal/popup"
	"github.com/joeblew999/plat-roadless/internal/priority"
	"github.com/joeblew999/plat-roadless/internal/selection"
)

// CursorPointer is set while the pointer is over an interactive layer.
const CursorPointer = "pointer"

// ErrNotMounted is returned by operations that need a mounted view.
var ErrNotMounted = errors.New("view is not mounted")

type registration struct {
	event    mapengine.EventType
	layer    string
	listener *mapengine.Listener
}

// View connects an engine, a selection controller and a popup builder.
type View struct {
	engine  mapengine.Engine
	ctrl    *selection.Controller
	popups  *popup.Builder
	order   priority.Order
	policy  priority.UnlistedPolicy
	logger  *slog.Logger
	onError func(error)

	regs  []registration
	popup mapengine.Popup
}

// Option configures a View.
type Option func(*View)

// WithOrder sets the interactive layers and their precedence.
func WithOrder(o priority.Order) Option {
	return func(v *View) { v.order = o }
}

// WithPolicy sets how features from layers outside the order are treated.
func WithPolicy(p priority.UnlistedPolicy) Option {
	return func(v *View) { v.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.logger = l }
}

// WithErrorHandler receives errors raised inside event handlers, which have
// no caller to return them to. The default logs them.
func WithErrorHandler(fn func(error)) Option {
	return func(v *View) { v.onError = fn }
}

// New creates an unmounted view.
func New(engine mapengine.Engine, ctrl *selection.Controller, popups *popup.Builder, opts ...Option) *View {
	v := &View{
		engine: engine,
		ctrl:   ctrl,
		popups: popups,
		order:  priority.Default,
		policy: priority.IncludeUnlisted,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.onError == nil {
		v.onError = func(err error) { v.logger.Error("map event failed", "error", err) }
	}
	return v
}

// Mounted reports whether listeners are attached.
func (v *View) Mounted() bool { return len(v.regs) > 0 }

// Mount attaches the listeners and installs the baseline paint. Mounting a
// mounted view is a no-op.
func (v *View) Mount() error {
	if v.Mounted() {
		return nil
	}

	for _, id := range v.order {
		v.attach(mapengine.EventMouseEnter, id, func(mapengine.Event) { v.engine.SetCursor(CursorPointer) })
		v.attach(mapengine.EventMouseLeave, id, func(mapengine.Event) { v.engine.SetCursor("") })
		v.attach(mapengine.EventClick, id, v.layerClick(id))
	}
	v.attach(mapengine.EventClick, "", v.mapClick)
	v.attach(mapengine.EventZoom, "", v.zoom)

	v.logger.Debug("map view mounted", "listeners", len(v.regs))
	return v.ctrl.Render()
}

// Unmount detaches every listener Mount attached, closes the popup without
// touching the selection, and resets the selection. Unmounting twice is a no-op.
func (v *View) Unmount() error {
	if !v.Mounted() {
		return nil
	}
	for _, r := range v.regs {
		v.engine.Off(r.event, r.layer, r.listener)
	}
	v.regs = nil
	v.dismiss()

	v.logger.Debug("map view unmounted")
	return v.ctrl.Reset()
}

// ClosePopup closes the open popup the way the user would, running its
// close callback. The selection is cleared even when no popup is open.
func (v *View) ClosePopup() error {
	if !v.Mounted() {
		return ErrNotMounted
	}
	if v.popup != nil {
		p := v.popup
		v.popup = nil
		p.Remove()
	}
	return v.ctrl.ClosePopup()
}

// Select behaves like a map click at at that hit only f.
func (v *View) Select(f mapengine.Feature, at orb.Point) error {
	if !v.Mounted() {
		return ErrNotMounted
	}
	v.mapClick(mapengine.Event{Type: mapengine.EventClick, LngLat: at, Features: []mapengine.Feature{f}})
	return nil
}

func (v *View) attach(event mapengine.EventType, layer string, fn func(mapengine.Event)) {
	l := mapengine.NewListener(fn)
	v.engine.On(event, layer, l)
	v.regs = append(v.regs, registration{event: event, layer: layer, listener: l})
}

// mapClick drives the selection. The previous popup is dropped silently,
// since the click itself decides the next state.
func (v *View) mapClick(ev mapengine.Event) {
	v.dismiss()

	eff, err := v.ctrl.Click(ev.Features)
	if err != nil {
		v.fail(err)
		return
	}
	if eff.OpenPopup == nil {
		return
	}

	html, err := v.popups.District(classify.ClassifyDistrict(eff.OpenPopup.Properties))
	if err != nil {
		v.fail(fmt.Errorf("district popup: %w", err))
		return
	}
	v.open(ev.LngLat, html, func() {
		if err := v.ctrl.ClosePopup(); err != nil {
			v.onError(err)
		}
	})
}

// layerClick opens the popup of a non-district feature when layerID holds
// the top feature under the pointer.
func (v *View) layerClick(layerID string) func(mapengine.Event) {
	return func(ev mapengine.Event) {
		if v.ctrl.IsDistrictLayer(layerID) {
			return
		}
		top, ok := priority.Resolve(v.engine.QueryRenderedFeatures(ev.LngLat), v.order, v.policy)
		if !ok || top.LayerID != layerID {
			return
		}
		layer, ok := v.engine.GetLayer(layerID)
		if !ok {
			v.onError(fmt.Errorf("%w: %q", mapengine.ErrLayerNotFound, layerID))
			return
		}
		html, err := v.popups.ForFeature(layer.Kind, top)
		if err != nil {
			v.onError(fmt.Errorf("popup for %s: %w", layerID, err))
			return
		}
		v.open(ev.LngLat, html, nil)
	}
}

// fail reports a click that could not open its district popup. A selection
// never outlives its popup, so the state is cleared as a close would.
func (v *View) fail(err error) {
	v.onError(err)
	if err := v.ctrl.ClosePopup(); err != nil {
		v.onError(err)
	}
}

func (v *View) zoom(ev mapengine.Event) {
	if err := v.ctrl.Zoom(ev.Zoom); err != nil {
		v.onError(err)
	}
}

func (v *View) open(at orb.Point, html string, onClose func()) {
	p := v.engine.NewPopup()
	p.OnClose(onClose)
	v.popup = p.SetLngLat(at).SetHTML(html).AddTo()
}

// dismiss removes the current popup without running its close callback.
func (v *View) dismiss() {
	if v.popup == nil {
		return
	}
	p := v.popup
	v.popup = nil
	p.OnClose(nil)
	p.Remove()
}
