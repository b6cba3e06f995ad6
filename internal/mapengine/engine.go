// Package mapengine defines the contract between the viewer core and a map
// rendering engine. The core never talks to a concrete engine directly; it is
// handed an Engine at mount time and drives it through this interface.
package mapengine

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Errors returned by engines.
var (
	ErrSourceExists   = errors.New("source already exists")
	ErrLayerExists    = errors.New("layer already exists")
	ErrSourceNotFound = errors.New("source not found")
	ErrLayerNotFound  = errors.New("layer not found")
)

// Layer kinds used to pick a popup variant.
const (
	KindArea     = "area"
	KindTrail    = "trail"
	KindDistrict = "district"
)

// EventType names a map or layer event.
type EventType string

const (
	EventClick      EventType = "click"
	EventMouseEnter EventType = "mouseenter"
	EventMouseLeave EventType = "mouseleave"
	EventZoom       EventType = "zoom"
)

// Feature is one rendered geographic entity together with the layer and
// source it was rendered from.
type Feature struct {
	ID         any
	LayerID    string
	SourceID   string
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// SourceDef declares a geometry provider.
type SourceDef struct {
	ID       string
	Type     string // "geojson" or "vector"
	URL      string
	Features []*geojson.Feature
}

// LayerDef declares a renderable layer bound to exactly one source.
type LayerDef struct {
	ID      string
	Type    string // "fill" or "line"
	Source  string
	Kind    string
	MinZoom float64
	MaxZoom float64
	Paint   map[string]any
}

// VisibleAt reports whether the layer renders at zoom z.
// A zero MaxZoom means no upper bound.
func (l LayerDef) VisibleAt(z float64) bool {
	if z < l.MinZoom {
		return false
	}
	return l.MaxZoom == 0 || z <= l.MaxZoom
}

// Event is delivered to listeners.
// For layer-scoped events Features holds the features of that layer under
// the pointer; for map-wide events it holds every rendered feature there.
type Event struct {
	Type     EventType
	LngLat   orb.Point
	Zoom     float64
	Features []Feature
}

// Listener wraps an event callback. Listeners are registered and removed by
// pointer identity, so the same *Listener must be passed to On and Off.
type Listener struct {
	fn func(Event)
}

// NewListener creates a listener around fn.
func NewListener(fn func(Event)) *Listener {
	return &Listener{fn: fn}
}

// Handle invokes the callback.
func (l *Listener) Handle(e Event) {
	if l != nil && l.fn != nil {
		l.fn(e)
	}
}

// Popup is the engine's popup primitive.
type Popup interface {
	SetLngLat(p orb.Point) Popup
	SetHTML(html string) Popup
	AddTo() Popup
	// Remove closes the popup and runs the close callback, if any.
	Remove()
	// OnClose replaces the close callback. nil clears it.
	OnClose(fn func())
}

// Engine is the subset of a map engine the viewer consumes.
type Engine interface {
	AddSource(def SourceDef) error
	AddLayer(def LayerDef, beforeID string) error
	GetLayer(id string) (LayerDef, bool)
	GetSource(id string) (SourceDef, bool)
	SetPaintProperty(layerID, property string, value any) error
	// On registers l for event; an empty layerID registers a map-wide listener.
	On(event EventType, layerID string, l *Listener)
	Off(event EventType, layerID string, l *Listener)
	QueryRenderedFeatures(p orb.Point) []Feature
	GetZoom() float64
	SetCursor(cursor string)
	NewPopup() Popup
}
