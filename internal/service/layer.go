package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/priority"
)

// CatalogFile is the layer catalog file name inside the data directory.
const CatalogFile = "layers.yaml"

var (
	ErrLayerNotFound  = errors.New("layer not found")
	ErrSourceNotFound = errors.New("source not found")
	ErrInvalidCatalog = errors.New("invalid layer catalog")
)

// DefaultCatalog is used when the data directory has no layers.yaml.
func DefaultCatalog() Catalog {
	return Catalog{
		Sources: []SourceConfig{
			{ID: "districts", File: "or_congressional_districts.geojson"},
			{ID: "roadless", File: "or_roadless_areas.geojson"},
			{ID: "trails", File: "or_trails.geojson"},
			{ID: "pct", File: "pct_oregon.geojson"},
		},
		Layers: []LayerConfig{
			{ID: "district-fill", Name: "Congressional districts", Source: "districts", Type: "fill", Kind: "district", Interactive: true, Color: "#6a51a3", Opacity: 0.1},
			{ID: "district-line", Name: "District boundaries", Source: "districts", Type: "line", Kind: "district", Interactive: true, Color: "#54278f", Opacity: 0.8, Width: 1.5},
			{ID: "roadless-fill", Name: "Roadless areas", Source: "roadless", Type: "fill", Kind: "area", Interactive: true, Color: "#2e7d32", Opacity: 0.5,
				Legend: []LegendItem{{Label: "Inventoried roadless area", Color: "#2e7d32"}}},
			{ID: "trails-line", Name: "Trails", Source: "trails", Type: "line", Kind: "trail", Interactive: true, Color: "#8d6e63", Opacity: 0.9, Width: 1, MinZoom: 7},
			{ID: "pct-line", Name: "Pacific Crest Trail", Source: "pct", Type: "line", Kind: "trail", Interactive: true, Color: "#d84315", Opacity: 1, Width: 3,
				Legend: []LegendItem{{Label: "Pacific Crest Trail", Color: "#d84315"}}},
		},
	}
}

// LayerService serves the read-only layer catalog.
type LayerService struct {
	dataDir string
	logger  *slog.Logger

	mu      sync.RWMutex
	catalog Catalog
}

// NewLayerService loads <dataDir>/layers.yaml, falling back to
// DefaultCatalog when the file does not exist.
func NewLayerService(dataDir string, logger *slog.Logger) (*LayerService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LayerService{dataDir: dataDir, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewLayerServiceFromCatalog serves c without touching the disk.
func NewLayerServiceFromCatalog(c Catalog) (*LayerService, error) {
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &LayerService{logger: slog.Default(), catalog: c}, nil
}

// Reload rereads the catalog file.
func (s *LayerService) Reload() error {
	c, err := s.loadFromDisk()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()
	return nil
}

// List returns the layers bottom to top.
func (s *LayerService) List() []LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog.Layers)
}

// Get returns a layer by ID.
func (s *LayerService) Get(id string) (LayerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.catalog.Layers, func(l LayerConfig) bool { return l.ID == id })
	if i < 0 {
		return LayerConfig{}, false
	}
	return s.catalog.Layers[i], true
}

// Sources returns the source definitions.
func (s *LayerService) Sources() []SourceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog.Sources)
}

// Source returns a source definition by ID.
func (s *LayerService) Source(id string) (SourceConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.catalog.Sources, func(c SourceConfig) bool { return c.ID == id })
	if i < 0 {
		return SourceConfig{}, false
	}
	return s.catalog.Sources[i], true
}

// Order returns the click precedence of the interactive layers.
func (s *LayerService) Order() priority.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.catalog.Priority) > 0 {
		return slices.Clone(priority.Order(s.catalog.Priority))
	}
	var o priority.Order
	for _, id := range priority.Default {
		if i := slices.IndexFunc(s.catalog.Layers, func(l LayerConfig) bool { return l.ID == id }); i >= 0 && s.catalog.Layers[i].Interactive {
			o = append(o, id)
		}
	}
	return o
}

// TrailRules returns the configured trail relabel rules, or the built-in
// ones when none are configured.
func (s *LayerService) TrailRules() []classify.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.catalog.TrailRules) == 0 {
		return classify.DefaultRules
	}
	rules := make([]classify.Rule, len(s.catalog.TrailRules))
	for i, r := range s.catalog.TrailRules {
		rules[i] = classify.Rule{Match: r.Match, Name: r.Name, Description: r.Description}
	}
	return rules
}

// Paint returns the initial paint properties of a layer.
func Paint(l LayerConfig) map[string]any {
	switch l.Type {
	case "fill":
		return map[string]any{"fill-color": l.Color, "fill-opacity": l.Opacity}
	default:
		return map[string]any{"line-color": l.Color, "line-opacity": l.Opacity, "line-width": l.Width}
	}
}

// configFile returns the path to the layers catalog.
func (s *LayerService) configFile() string {
	return filepath.Join(s.dataDir, CatalogFile)
}

func (s *LayerService) loadFromDisk() (Catalog, error) {
	data, err := os.ReadFile(s.configFile())
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("no layer catalog, using defaults", "path", s.configFile())
		c := DefaultCatalog()
		return c, c.normalize()
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("reading layer catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, s.configFile(), err)
	}
	if err := c.normalize(); err != nil {
		return Catalog{}, err
	}
	s.logger.Info("layer catalog loaded", "path", s.configFile(), "layers", len(c.Layers), "sources", len(c.Sources))
	return c, nil
}

// normalize fills missing IDs and checks references.
func (c *Catalog) normalize() error {
	sources := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		if c.Sources[i].ID == "" {
			return fmt.Errorf("%w: source %d has no id", ErrInvalidCatalog, i)
		}
		sources[c.Sources[i].ID] = true
	}

	seen := make(map[string]bool, len(c.Layers))
	for i := range c.Layers {
		l := &c.Layers[i]
		if l.ID == "" {
			l.ID = generateID(l.Name)
		}
		if l.ID == "" {
			return fmt.Errorf("%w: layer %d has no id or name", ErrInvalidCatalog, i)
		}
		if seen[l.ID] {
			return fmt.Errorf("%w: duplicate layer %q", ErrInvalidCatalog, l.ID)
		}
		seen[l.ID] = true
		if !sources[l.Source] {
			return fmt.Errorf("%w: layer %q: %w: %q", ErrInvalidCatalog, l.ID, ErrSourceNotFound, l.Source)
		}
		if l.Type != "fill" && l.Type != "line" {
			return fmt.Errorf("%w: layer %q has type %q", ErrInvalidCatalog, l.ID, l.Type)
		}
	}
	for _, id := range c.Priority {
		if !seen[id] {
			return fmt.Errorf("%w: priority names %w: %q", ErrInvalidCatalog, ErrLayerNotFound, id)
		}
	}
	return nil
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "-")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
