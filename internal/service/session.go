package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/mapengine"
	"github.com/joeblew999/plat-roadless/internal/mapengine/memory"
	"github.com/joeblew999/plat-roadless/internal/mapview"
	"github.com/joeblew999/plat-roadless/internal/popup"
	"github.com/joeblew999/plat-roadless/internal/selection"
)

// DefaultZoom is the zoom a new session starts at.
const DefaultZoom = 6.0

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDistrictNotFound is returned when selecting a district the map does not have.
	ErrDistrictNotFound = errors.New("district not found")
)

// Session is one mounted map view. All access goes through Do, which
// serializes events the way a single UI thread would.
type Session struct {
	ID string

	mu       sync.Mutex
	engine   *memory.Engine
	ctrl     *selection.Controller
	view     *mapview.View
	pending  []error
	lastSeen time.Time
}

// Snapshot is what the browser needs to render a session.
type Snapshot struct {
	ID        string
	District  string
	Selected  bool
	Zoom      float64
	Cursor    string
	PopupOpen bool
	PopupRev  int
	PopupHTML string
	PopupAt   orb.Point
	Paint     map[string]map[string]any
}

// Do runs fn with the session locked. Errors raised by map event handlers
// while fn ran are joined to fn's own error.
func (s *Session) Do(fn func(e *memory.Engine, v *mapview.View) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	err := fn(s.engine, s.view)
	pending := s.pending
	s.pending = nil
	return errors.Join(append([]error{err}, pending...)...)
}

// Click delivers a click at p.
func (s *Session) Click(p orb.Point) error {
	return s.Do(func(e *memory.Engine, _ *mapview.View) error {
		e.Click(p)
		return nil
	})
}

// Hover delivers a pointer move to p.
func (s *Session) Hover(p orb.Point) error {
	return s.Do(func(e *memory.Engine, _ *mapview.View) error {
		e.Move(p)
		return nil
	})
}

// Zoom changes the map zoom.
func (s *Session) Zoom(z float64) error {
	return s.Do(func(e *memory.Engine, _ *mapview.View) error {
		e.SetZoom(z)
		return nil
	})
}

// ClosePopup closes the open popup as the user would.
func (s *Session) ClosePopup() error {
	return s.Do(func(_ *memory.Engine, v *mapview.View) error {
		return v.ClosePopup()
	})
}

// SelectDistrict selects district d as if its polygon had been clicked at
// its centroid.
func (s *Session) SelectDistrict(d string) error {
	return s.Do(func(e *memory.Engine, v *mapview.View) error {
		f, ok := findDistrict(e, d)
		if !ok {
			return fmt.Errorf("%w: %q", ErrDistrictNotFound, d)
		}
		at, _ := planar.CentroidArea(f.Geometry)
		return v.Select(f, at)
	})
}

func findDistrict(e *memory.Engine, d string) (mapengine.Feature, bool) {
	layer, ok := e.GetLayer(selection.FillLayer)
	if !ok {
		return mapengine.Feature{}, false
	}
	src, ok := e.GetSource(layer.Source)
	if !ok {
		return mapengine.Feature{}, false
	}
	for _, f := range src.Features {
		n, err := classify.ClassifyDistrict(f.Properties).Number()
		if err != nil || n != d {
			continue
		}
		return mapengine.Feature{ID: f.ID, LayerID: layer.ID, SourceID: src.ID, Geometry: f.Geometry, Properties: f.Properties}, true
	}
	return mapengine.Feature{}, false
}

// Snapshot returns the current render state. paintLayers limits the paint
// map to the given layers.
func (s *Session) Snapshot(paintLayers ...string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, selected := s.ctrl.State().District()
	snap := Snapshot{
		ID:       s.ID,
		District: d,
		Selected: selected,
		Zoom:     s.engine.GetZoom(),
		Cursor:   s.engine.Cursor(),
		Paint:    make(map[string]map[string]any, len(paintLayers)),
	}
	snap.PopupHTML, snap.PopupAt, snap.PopupOpen = s.engine.OpenPopup()
	snap.PopupRev = s.engine.PopupRevision()
	for _, id := range paintLayers {
		snap.Paint[id] = s.engine.Paint(id)
	}
	return snap
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionManager creates and tracks viewer sessions.
type SessionManager struct {
	layers  *LayerService
	sources *SourceService
	popups  *popup.Builder
	bus     *EventBus
	logger  *slog.Logger
	bounds  func() (orb.Bound, bool)

	mu       sync.Mutex
	sessions map[string]*Session
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithBounds supplies the initial viewport. ok false leaves it unset.
func WithBounds(fn func() (orb.Bound, bool)) SessionOption {
	return func(m *SessionManager) { m.bounds = fn }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(m *SessionManager) { m.logger = l }
}

// NewSessionManager creates a manager. bus may be nil.
func NewSessionManager(layers *LayerService, sources *SourceService, popups *popup.Builder, bus *EventBus, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		layers:   layers,
		sources:  sources,
		popups:   popups,
		bus:      bus,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds a session engine from the catalog and mounts a view on it.
func (m *SessionManager) Create() (*Session, error) {
	s := &Session{ID: uuid.NewString(), lastSeen: time.Now()}
	s.engine = memory.New(memory.WithZoom(DefaultZoom))

	if err := m.populate(s.engine); err != nil {
		return nil, err
	}
	if m.bounds != nil {
		if b, ok := m.bounds(); ok {
			s.engine.FitBounds(b)
		}
	}

	order := m.layers.Order()
	s.ctrl = selection.NewController(s.engine,
		selection.WithOrder(order),
		selection.WithLogger(m.logger.With("session", s.ID)),
		selection.WithObserver(func(_, next selection.State) {
			d, _ := next.District()
			m.publish(Event{Session: s.ID, Kind: EventSelection, District: d})
		}),
	)
	s.view = mapview.New(s.engine, s.ctrl, m.popups,
		mapview.WithOrder(order),
		mapview.WithLogger(m.logger.With("session", s.ID)),
		mapview.WithErrorHandler(func(err error) { s.pending = append(s.pending, err) }),
	)
	if err := s.view.Mount(); err != nil {
		return nil, fmt.Errorf("mounting view: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session created", "session", s.ID, "sessions", n)
	return s, nil
}

func (m *SessionManager) populate(e *memory.Engine) error {
	for _, src := range m.layers.Sources() {
		features, err := m.sources.Load(src)
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("source file missing, layer will be empty", "source", src.ID, "file", src.File)
		} else if err != nil {
			return err
		}
		typ := "geojson"
		if src.URL != "" {
			typ = "vector"
		}
		if err := e.AddSource(mapengine.SourceDef{ID: src.ID, Type: typ, URL: src.URL, Features: features}); err != nil {
			return err
		}
	}
	for _, l := range m.layers.List() {
		def := mapengine.LayerDef{
			ID:      l.ID,
			Type:    l.Type,
			Source:  l.Source,
			Kind:    l.Kind,
			MinZoom: l.MinZoom,
			MaxZoom: l.MaxZoom,
			Paint:   Paint(l),
		}
		if err := e.AddLayer(def, ""); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close unmounts and forgets a session.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	err := s.Do(func(_ *memory.Engine, v *mapview.View) error { return v.Unmount() })
	m.publish(Event{Session: id, Kind: EventClosed})
	m.logger.Info("session closed", "session", id)
	return err
}

// Prune closes sessions idle for longer than ttl and returns how many.
func (m *SessionManager) Prune(ttl time.Duration) int {
	now := time.Now()
	var stale []string

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(now) > ttl {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		if err := m.Close(id); err != nil {
			m.logger.Warn("closing idle session", "session", id, "error", err)
		}
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Bus returns the event bus, possibly nil.
func (m *SessionManager) Bus() *EventBus { return m.bus }

func (m *SessionManager) publish(e Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}
