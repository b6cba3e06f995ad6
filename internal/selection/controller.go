package selection

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/mapengine"
	"github.com/joeblew999/plat-roadless/internal/priority"
)

// Observer is told about every state change.
type Observer func(prev, next State)

// Effect is the side effect a click asks the caller to perform.
type Effect struct {
	// OpenPopup is set when a district was selected and its popup should open.
	OpenPopup *mapengine.Feature
}

// Controller drives the state machine against a map engine. It is not safe
// for concurrent use; callers serialize events.
type Controller struct {
	engine   mapengine.Engine
	order    priority.Order
	policy   priority.UnlistedPolicy
	fill     string
	line     string
	state    State
	observer Observer
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithOrder sets the layer precedence used to resolve clicks.
func WithOrder(o priority.Order) Option {
	return func(c *Controller) { c.order = o }
}

// WithPolicy sets the unlisted-layer policy used to resolve clicks.
func WithPolicy(p priority.UnlistedPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithObserver registers a state change observer.
func WithObserver(fn Observer) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates an Unselected controller for engine.
func NewController(engine mapengine.Engine, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		order:  priority.Default,
		policy: priority.IncludeUnlisted,
		fill:   FillLayer,
		line:   LineLayer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// IsDistrictLayer reports whether layerID is one of the district layers.
func (c *Controller) IsDistrictLayer(layerID string) bool {
	return layerID == c.fill || layerID == c.line
}

// Click resolves the top feature among features. A district on top selects
// it and requests its popup; anything else clears the selection.
func (c *Controller) Click(features []mapengine.Feature) (Effect, error) {
	top, ok := priority.Resolve(features, c.order, c.policy)
	if !ok || !c.IsDistrictLayer(top.LayerID) {
		return Effect{}, c.apply(ClickElsewhere, "")
	}

	d, err := classify.ClassifyDistrict(top.Properties).Number()
	if err != nil {
		return Effect{}, fmt.Errorf("selecting district on %s: %w", top.LayerID, err)
	}
	if err := c.apply(ClickDistrict, d); err != nil {
		return Effect{}, err
	}
	return Effect{OpenPopup: &top}, nil
}

// ClosePopup clears the selection, whatever the current state.
func (c *Controller) ClosePopup() error {
	return c.apply(PopupClosed, "")
}

// Zoom restyles the district layers for the new zoom without changing the selection.
func (c *Controller) Zoom(zoom float64) error {
	c.transition(ZoomChanged, "")
	return c.install(Derive(c.state, zoom))
}

// Reset returns to Unselected and restyles. Used on unmount.
func (c *Controller) Reset() error {
	c.state = Unselected()
	return c.Render()
}

// Render installs the paint for the current state and engine zoom.
func (c *Controller) Render() error {
	return c.install(Derive(c.state, c.engine.GetZoom()))
}

func (c *Controller) apply(ev Event, district string) error {
	c.transition(ev, district)
	return c.Render()
}

func (c *Controller) transition(ev Event, district string) {
	prev := c.state
	c.state = Transition(prev, ev, district)
	if prev == c.state {
		return
	}
	c.logger.Debug("selection changed", "event", ev.String(), "from", prev.String(), "to", c.state.String())
	if c.observer != nil {
		c.observer(prev, c.state)
	}
}

func (c *Controller) install(p Paint) error {
	return errors.Join(
		c.engine.SetPaintProperty(c.fill, FillOpacity, p.FillOpacity.Expression()),
		c.engine.SetPaintProperty(c.line, LineOpacity, p.LineOpacity.Expression()),
		c.engine.SetPaintProperty(c.line, LineWidth, p.LineWidth.Expression()),
	)
}
