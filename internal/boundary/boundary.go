// Package boundary loads the state outline once in the background. The
// outline only frames the initial viewport and reports the total area, so
// every failure degrades to a nil result.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-roadless/internal/measure"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 15 * time.Second

// maxBody caps the response size.
const maxBody = 64 << 20

// ErrEmpty is returned when the document holds no usable geometry.
var ErrEmpty = errors.New("boundary has no geometry")

// Boundary is the loaded outline.
type Boundary struct {
	Bound    orb.Bound
	Acres    measure.Measurement
	Features int
}

// Fetcher loads boundaries over HTTP or from a local file.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch loads and measures the boundary at src. It returns nil on any
// failure and logs the reason at debug level.
func (f *Fetcher) Fetch(ctx context.Context, src string) *Boundary {
	b, err := f.load(ctx, src)
	if err != nil {
		f.logger.Debug("boundary unavailable", "src", src, "error", err)
		return nil
	}
	f.logger.Debug("boundary loaded", "src", src, "features", b.Features, "acres", b.Acres.String())
	return b
}

// Start fetches src in a new goroutine.
func (f *Fetcher) Start(ctx context.Context, src string) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		b := f.Fetch(ctx, src)
		p.mu.Lock()
		p.result = b
		p.mu.Unlock()
	}()
	return p
}

func (f *Fetcher) load(ctx context.Context, src string) (*Boundary, error) {
	if src == "" {
		return nil, errors.New("no boundary source configured")
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	data, err := f.read(ctx, src)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (f *Fetcher) read(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching boundary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching boundary: unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// Parse reads a GeoJSON FeatureCollection, or a single Feature, and
// computes its bound and area.
func Parse(data []byte) (*Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil || len(fc.Features) == 0 {
		feat, ferr := geojson.UnmarshalFeature(data)
		if ferr != nil || feat.Geometry == nil {
			if err != nil {
				return nil, fmt.Errorf("parsing boundary: %w", err)
			}
			return nil, ErrEmpty
		}
		fc = geojson.NewFeatureCollection().Append(feat)
	}

	var (
		b     Boundary
		acres float64
		have  bool
	)
	for _, feat := range fc.Features {
		if feat == nil || feat.Geometry == nil {
			continue
		}
		if bound, ok := measure.Bounds(feat.Geometry); ok {
			if have {
				b.Bound = b.Bound.Union(bound)
			} else {
				b.Bound, have = bound, true
			}
		}
		if m := measure.AreaAcres(feat.Geometry); m.OK {
			acres += m.Value
		}
		b.Features++
	}
	if !have {
		return nil, ErrEmpty
	}
	b.Acres = measure.Valid(acres)
	return &b, nil
}

// Pending is a boundary being fetched.
type Pending struct {
	done   chan struct{}
	mu     sync.Mutex
	result *Boundary
}

// Get returns the result without blocking. ok is false while the fetch is
// still running; once it finishes b may still be nil.
func (p *Pending) Get() (b *Boundary, ok bool) {
	select {
	case <-p.done:
	default:
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, true
}

// Wait blocks until the fetch finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) *Boundary {
	select {
	case <-p.done:
		b, _ := p.Get()
		return b
	case <-ctx.Done():
		return nil
	}
}

// Done is closed when the fetch finishes.
func (p *Pending) Done() <-chan struct{} { return p.done }
