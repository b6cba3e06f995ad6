package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrUnsupportedSource is returned for files that cannot be loaded as features.
var ErrUnsupportedSource = errors.New("unsupported source file")

var extToType = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
	".shp":     "Shapefile",
}

// SourceService lists and loads source data files. Loaded features are
// cached per file and shared read-only between sessions.
type SourceService struct {
	sourcesDir string

	mu    sync.Mutex
	cache map[string][]*geojson.Feature
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
		cache:      make(map[string][]*geojson.Feature),
	}
}

// List returns all loadable source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := extToType[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     humanize.Bytes(uint64(info.Size())),
			Bytes:    info.Size(),
			FileType: fileType,
		})
	}
	return files, nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// Load returns the features of a source. Remote sources have none.
func (s *SourceService) Load(cfg SourceConfig) ([]*geojson.Feature, error) {
	if cfg.File == "" {
		return nil, nil
	}
	if strings.ContainsAny(cfg.File, `/\`) || strings.Contains(cfg.File, "..") {
		return nil, fmt.Errorf("source %q: invalid file name %q", cfg.ID, cfg.File)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fs, ok := s.cache[cfg.File]; ok {
		return fs, nil
	}
	path := filepath.Join(s.sourcesDir, cfg.File)

	var (
		fs  []*geojson.Feature
		err error
	)
	switch extToType[strings.ToLower(filepath.Ext(cfg.File))] {
	case "GeoJSON":
		fs, err = readGeoJSON(path)
	case "Shapefile":
		fs, err = readShapefile(path)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedSource, cfg.File)
	}
	if err != nil {
		return nil, fmt.Errorf("loading source %q: %w", cfg.ID, err)
	}
	s.cache[cfg.File] = fs
	return fs, nil
}

func readGeoJSON(path string) ([]*geojson.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return fc.Features, nil
}

func readShapefile(path string) ([]*geojson.Feature, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	var out []*geojson.Feature
	for r.Next() {
		n, shape := r.Shape()

		var g orb.Geometry
		switch v := shape.(type) {
		case *shp.Polygon:
			g = polygonFromShape(v.NumParts, v.NumPoints, v.Parts, v.Points)
		case *shp.PolyLine:
			g = lineFromShape(v.NumParts, v.NumPoints, v.Parts, v.Points)
		case *shp.Point:
			g = orb.Point{v.X, v.Y}
		default:
			continue
		}

		f := geojson.NewFeature(g)
		f.ID = n
		for i, name := range names {
			// DBF fields may be NUL padded.
			f.Properties[name] = strings.TrimRight(r.ReadAttribute(n, i), "\x00 ")
		}
		out = append(out, f)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading shapes: %w", err)
	}
	return out, nil
}

func parts(numParts, numPoints int32, starts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		end := numPoints
		if i < numParts-1 {
			end = starts[i+1]
		}
		part := make([]orb.Point, 0, end-starts[i])
		for _, p := range points[starts[i]:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}
	return out
}

func lineFromShape(numParts, numPoints int32, starts []int32, points []shp.Point) orb.MultiLineString {
	var ml orb.MultiLineString
	for _, p := range parts(numParts, numPoints, starts, points) {
		ml = append(ml, orb.LineString(p))
	}
	return ml
}

// polygonFromShape treats all parts as rings of one polygon.
func polygonFromShape(numParts, numPoints int32, starts []int32, points []shp.Point) orb.Polygon {
	var poly orb.Polygon
	for _, p := range parts(numParts, numPoints, starts, points) {
		poly = append(poly, orb.Ring(p))
	}
	return poly
}
