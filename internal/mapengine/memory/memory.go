// Package memory provides a headless map engine that keeps sources, layers,
// paint properties and listeners in memory and hit-tests features with orb.
//
// It stands in for the browser map on the server: each viewer session owns
// one Engine, the browser forwards pointer and zoom events to it, and the
// resulting paint values and popup markup are streamed back.
package memory

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-roadless/internal/mapengine"
)

const (
	defaultTolerancePx = 3.0
	tileSize           = 512.0
	maxZoom            = 22.0
)

type listenerKey struct {
	event mapengine.EventType
	layer string
}

// Engine is an in-memory mapengine.Engine.
type Engine struct {
	mu          sync.Mutex
	sources     map[string]mapengine.SourceDef
	layers      []mapengine.LayerDef
	paint       map[string]map[string]any
	listeners   map[listenerKey][]*mapengine.Listener
	hovered     map[string]bool
	zoom        float64
	cursor      string
	tolerancePx float64
	popup       *Popup
	popupRev    int
	bounds      *orb.Bound
}

// Option configures an Engine.
type Option func(*Engine)

// WithZoom sets the initial zoom.
func WithZoom(z float64) Option {
	return func(e *Engine) { e.zoom = clampZoom(z) }
}

// WithTolerance sets the line hit tolerance in screen pixels.
func WithTolerance(px float64) Option {
	return func(e *Engine) { e.tolerancePx = px }
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		sources:     make(map[string]mapengine.SourceDef),
		paint:       make(map[string]map[string]any),
		listeners:   make(map[listenerKey][]*mapengine.Listener),
		hovered:     make(map[string]bool),
		tolerancePx: defaultTolerancePx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddSource registers a source.
func (e *Engine) AddSource(def mapengine.SourceDef) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.sources[def.ID]; exists {
		return fmt.Errorf("%w: %q", mapengine.ErrSourceExists, def.ID)
	}
	e.sources[def.ID] = def
	return nil
}

// AddLayer registers a layer on top of the stack, or directly below
// beforeID when it names an existing layer.
func (e *Engine) AddLayer(def mapengine.LayerDef, beforeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sources[def.Source]; !ok {
		return fmt.Errorf("layer %q: %w: %q", def.ID, mapengine.ErrSourceNotFound, def.Source)
	}
	if e.layerIndex(def.ID) >= 0 {
		return fmt.Errorf("%w: %q", mapengine.ErrLayerExists, def.ID)
	}

	paint := make(map[string]any, len(def.Paint))
	for k, v := range def.Paint {
		paint[k] = v
	}
	e.paint[def.ID] = paint

	if i := e.layerIndex(beforeID); beforeID != "" && i >= 0 {
		e.layers = slices.Insert(e.layers, i, def)
		return nil
	}
	e.layers = append(e.layers, def)
	return nil
}

// RemoveLayer drops a layer and its paint. Listeners registered for it stay
// until removed with Off, as in MapLibre.
func (e *Engine) RemoveLayer(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.layerIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", mapengine.ErrLayerNotFound, id)
	}
	e.layers = slices.Delete(e.layers, i, i+1)
	delete(e.paint, id)
	delete(e.hovered, id)
	return nil
}

// GetLayer returns a layer definition by ID.
func (e *Engine) GetLayer(id string) (mapengine.LayerDef, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.layerIndex(id); i >= 0 {
		return e.layers[i], true
	}
	return mapengine.LayerDef{}, false
}

// GetSource returns a source definition by ID.
func (e *Engine) GetSource(id string) (mapengine.SourceDef, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sources[id]
	return s, ok
}

// LayerIDs returns layer IDs bottom to top.
func (e *Engine) LayerIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, len(e.layers))
	for i, l := range e.layers {
		ids[i] = l.ID
	}
	return ids
}

// SetPaintProperty replaces one paint property of a layer.
func (e *Engine) SetPaintProperty(layerID, property string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	paint, ok := e.paint[layerID]
	if !ok {
		return fmt.Errorf("%w: %q", mapengine.ErrLayerNotFound, layerID)
	}
	paint[property] = value
	return nil
}

// Paint returns a copy of a layer's paint properties.
func (e *Engine) Paint(layerID string) map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]any, len(e.paint[layerID]))
	for k, v := range e.paint[layerID] {
		out[k] = v
	}
	return out
}

// On registers a listener. Registering the same listener twice for the same
// event and layer is a no-op.
func (e *Engine) On(event mapengine.EventType, layerID string, l *mapengine.Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	key := listenerKey{event, layerID}
	if slices.Contains(e.listeners[key], l) {
		return
	}
	e.listeners[key] = append(e.listeners[key], l)
}

// Off removes a listener previously passed to On with the same event and layer.
func (e *Engine) Off(event mapengine.EventType, layerID string, l *mapengine.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := listenerKey{event, layerID}
	list := slices.DeleteFunc(e.listeners[key], func(x *mapengine.Listener) bool { return x == l })
	if len(list) == 0 {
		delete(e.listeners, key)
		return
	}
	e.listeners[key] = list
}

// ListenerCount returns the number of listeners for event on layerID.
func (e *Engine) ListenerCount(event mapengine.EventType, layerID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[listenerKey{event, layerID}])
}

// TotalListeners returns the number of registered listeners across all keys.
func (e *Engine) TotalListeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, list := range e.listeners {
		n += len(list)
	}
	return n
}

// QueryRenderedFeatures returns the features rendered at p, top-most layer first.
func (e *Engine) QueryRenderedFeatures(p orb.Point) []mapengine.Feature {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query(p)
}

func (e *Engine) query(p orb.Point) []mapengine.Feature {
	tol := e.toleranceDegrees()

	var out []mapengine.Feature
	for i := len(e.layers) - 1; i >= 0; i-- {
		layer := e.layers[i]
		if !layer.VisibleAt(e.zoom) {
			continue
		}
		src := e.sources[layer.Source]
		for _, f := range src.Features {
			if f == nil || f.Geometry == nil {
				continue
			}
			if !hit(layer.Type, f.Geometry, p, tol) {
				continue
			}
			out = append(out, mapengine.Feature{
				ID:         f.ID,
				LayerID:    layer.ID,
				SourceID:   layer.Source,
				Geometry:   f.Geometry,
				Properties: f.Properties,
			})
		}
	}
	return out
}

// toleranceDegrees converts the pixel tolerance to degrees at the current zoom.
func (e *Engine) toleranceDegrees() float64 {
	return e.tolerancePx * 360.0 / (tileSize * math.Pow(2, e.zoom))
}

// GetZoom returns the current zoom.
func (e *Engine) GetZoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoom
}

// SetZoom changes the zoom and fires map-wide zoom listeners.
func (e *Engine) SetZoom(z float64) {
	e.mu.Lock()
	e.zoom = clampZoom(z)
	ev := mapengine.Event{Type: mapengine.EventZoom, Zoom: e.zoom}
	listeners := e.snapshot(mapengine.EventZoom, "")
	e.mu.Unlock()

	for _, l := range listeners {
		l.Handle(ev)
	}
}

// Click fires click listeners for p. Map-wide listeners run first, then
// layer listeners top-most layer first, each receiving only its own features.
func (e *Engine) Click(p orb.Point) {
	e.mu.Lock()
	features := e.query(p)
	zoom := e.zoom
	mapWide := e.snapshot(mapengine.EventClick, "")

	type layerCall struct {
		listeners []*mapengine.Listener
		features  []mapengine.Feature
	}
	var calls []layerCall
	for i := len(e.layers) - 1; i >= 0; i-- {
		id := e.layers[i].ID
		ls := e.snapshot(mapengine.EventClick, id)
		if len(ls) == 0 {
			continue
		}
		own := filterLayer(features, id)
		if len(own) == 0 {
			continue
		}
		calls = append(calls, layerCall{ls, own})
	}
	e.mu.Unlock()

	ev := mapengine.Event{Type: mapengine.EventClick, LngLat: p, Zoom: zoom, Features: features}
	for _, l := range mapWide {
		l.Handle(ev)
	}
	for _, c := range calls {
		lev := ev
		lev.Features = c.features
		for _, l := range c.listeners {
			l.Handle(lev)
		}
	}
}

// Move updates the hover set for p and fires mouseenter/mouseleave
// listeners for layers the pointer entered or left.
func (e *Engine) Move(p orb.Point) {
	e.mu.Lock()
	features := e.query(p)
	zoom := e.zoom

	hit := make(map[string]bool)
	for _, f := range features {
		hit[f.LayerID] = true
	}

	type call struct {
		listeners []*mapengine.Listener
		ev        mapengine.Event
	}
	var calls []call
	for _, layer := range e.layers {
		id := layer.ID
		switch {
		case hit[id] && !e.hovered[id]:
			calls = append(calls, call{e.snapshot(mapengine.EventMouseEnter, id), mapengine.Event{
				Type: mapengine.EventMouseEnter, LngLat: p, Zoom: zoom, Features: filterLayer(features, id),
			}})
		case !hit[id] && e.hovered[id]:
			calls = append(calls, call{e.snapshot(mapengine.EventMouseLeave, id), mapengine.Event{
				Type: mapengine.EventMouseLeave, LngLat: p, Zoom: zoom,
			}})
		}
	}
	e.hovered = hit
	e.mu.Unlock()

	for _, c := range calls {
		for _, l := range c.listeners {
			l.Handle(c.ev)
		}
	}
}

// SetCursor records the canvas cursor style.
func (e *Engine) SetCursor(cursor string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = cursor
}

// Cursor returns the canvas cursor style.
func (e *Engine) Cursor() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// FitBounds records the viewport bounds.
func (e *Engine) FitBounds(b orb.Bound) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bounds = &b
}

// Bounds returns the viewport bounds set by FitBounds, if any.
func (e *Engine) Bounds() (orb.Bound, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bounds == nil {
		return orb.Bound{}, false
	}
	return *e.bounds, true
}

// NewPopup creates a closed popup bound to this engine.
func (e *Engine) NewPopup() mapengine.Popup {
	return &Popup{engine: e}
}

// OpenPopup returns the popup currently shown, if any.
func (e *Engine) OpenPopup() (html string, at orb.Point, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.popup == nil {
		return "", orb.Point{}, false
	}
	return e.popup.html, e.popup.lngLat, true
}

// PopupRevision counts the popups shown so far. It changes on every AddTo,
// even when the markup and anchor are unchanged.
func (e *Engine) PopupRevision() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.popupRev
}

// CloseOpenPopup removes the popup currently shown, running its close callback.
func (e *Engine) CloseOpenPopup() {
	e.mu.Lock()
	p := e.popup
	e.mu.Unlock()
	if p != nil {
		p.Remove()
	}
}

func (e *Engine) snapshot(event mapengine.EventType, layerID string) []*mapengine.Listener {
	return slices.Clone(e.listeners[listenerKey{event, layerID}])
}

func (e *Engine) layerIndex(id string) int {
	return slices.IndexFunc(e.layers, func(l mapengine.LayerDef) bool { return l.ID == id })
}

func filterLayer(features []mapengine.Feature, layerID string) []mapengine.Feature {
	var out []mapengine.Feature
	for _, f := range features {
		if f.LayerID == layerID {
			out = append(out, f)
		}
	}
	return out
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) || z < 0 {
		return 0
	}
	return math.Min(z, maxZoom)
}

var _ mapengine.Engine = (*Engine)(nil)
