// Package stats keeps per-district roadless statistics in DuckDB so the API
// can list and page through them without walking GeoJSON on every request.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-roadless/internal/classify"
)

// ErrNotFound is returned for an unknown district.
var ErrNotFound = errors.New("district not found")

const schema = `CREATE TABLE IF NOT EXISTS districts (
	district       VARCHAR PRIMARY KEY,
	representative VARCHAR NOT NULL,
	party          VARCHAR NOT NULL,
	total_acres    DOUBLE,
	roadless_acres DOUBLE
)`

// District is one row of the districts table.
type District struct {
	District       string   `json:"district" doc:"District number" example:"2"`
	Representative string   `json:"representative" doc:"Representative, first name first" example:"Cliff Bentz"`
	Party          string   `json:"party" doc:"Party initial" example:"R"`
	TotalAcres     *float64 `json:"totalAcres,omitempty" doc:"District area in acres"`
	RoadlessAcres  *float64 `json:"roadlessAcres,omitempty" doc:"Roadless area in acres"`
}

// RoadlessShare returns the roadless percentage when both areas are known.
func (d District) RoadlessShare() (float64, bool) {
	if d.TotalAcres == nil || d.RoadlessAcres == nil || *d.TotalAcres <= 0 {
		return 0, false
	}
	return *d.RoadlessAcres / *d.TotalAcres * 100, true
}

// Summary aggregates all districts.
type Summary struct {
	Districts     int     `json:"districts" doc:"Number of districts"`
	TotalAcres    float64 `json:"totalAcres" doc:"Sum of district areas in acres"`
	RoadlessAcres float64 `json:"roadlessAcres" doc:"Sum of roadless areas in acres"`
}

// Config holds database configuration.
type Config struct {
	// DataDir holds duckdb/<DBName>.duckdb. Empty means an in-memory database.
	DataDir string
	DBName  string
}

// Store is the district statistics table.
type Store struct {
	db *sql.DB
}

// Open opens the database and creates the table.
func Open(cfg Config) (*Store, error) {
	dsn := ""
	if cfg.DataDir != "" {
		dir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "roadless"
		}
		dsn = filepath.Join(dir, name+".duckdb")
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating districts table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load upserts one row per district feature and returns how many rows were
// written. A feature whose DISTRICT is not a string aborts the load.
func (s *Store) Load(ctx context.Context, features []*geojson.Feature) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO districts VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, f := range features {
		if f == nil {
			continue
		}
		info := classify.ClassifyDistrict(f.Properties)
		d, err := info.Number()
		if err != nil {
			return 0, fmt.Errorf("feature %v: %w", f.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d, info.Representative, info.Party,
			acres(f.Properties, classify.KeyAcres), acres(f.Properties, classify.KeyRoadlessAcres)); err != nil {
			return 0, fmt.Errorf("inserting district %s: %w", d, err)
		}
		n++
	}
	return n, tx.Commit()
}

func acres(props geojson.Properties, key string) sql.NullFloat64 {
	v, ok := classify.Probe(props, key)
	if !ok {
		return sql.NullFloat64{}
	}
	f, ok := v.Float()
	return sql.NullFloat64{Float64: f, Valid: ok}
}

// List returns a page of districts ordered by number, and the total count.
func (s *Store) List(ctx context.Context, offset, limit int) ([]District, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM districts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT district, representative, party, total_acres, roadless_acres
		FROM districts
		ORDER BY lpad(district, 4, '0')
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []District{}
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// Get returns one district.
func (s *Store) Get(ctx context.Context, district string) (District, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT district, representative, party, total_acres, roadless_acres
		FROM districts WHERE district = ?`, district)
	d, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return District{}, fmt.Errorf("%w: %q", ErrNotFound, district)
	}
	return d, err
}

// Summary sums areas over all districts.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(total_acres), 0), coalesce(sum(roadless_acres), 0)
		FROM districts`).Scan(&sum.Districts, &sum.TotalAcres, &sum.RoadlessAcres)
	return sum, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (District, error) {
	var (
		d               District
		total, roadless sql.NullFloat64
	)
	if err := r.Scan(&d.District, &d.Representative, &d.Party, &total, &roadless); err != nil {
		return District{}, err
	}
	if total.Valid {
		d.TotalAcres = &total.Float64
	}
	if roadless.Valid {
		d.RoadlessAcres = &roadless.Float64
	}
	return d, nil
}
