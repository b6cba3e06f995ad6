package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-roadless/internal/api"
	"github.com/joeblew999/plat-roadless/internal/api/viewer"
	"github.com/joeblew999/plat-roadless/internal/boundary"
	"github.com/joeblew999/plat-roadless/internal/humastar"
	"github.com/joeblew999/plat-roadless/internal/logger"
	"github.com/joeblew999/plat-roadless/internal/popup"
	"github.com/joeblew999/plat-roadless/internal/selection"
	"github.com/joeblew999/plat-roadless/internal/service"
	"github.com/joeblew999/plat-roadless/internal/stats"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// BoundaryURL locates the state outline, over HTTP or on disk. Empty
	// skips the fetch.
	BoundaryURL string
	// SessionTTL closes viewer sessions idle for longer. Zero keeps them.
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// Server is the roadless viewer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	links    *humastar.Links
	services *api.Services
	sessions *service.SessionManager
	logger   *slog.Logger
	cancel   context.CancelFunc
}

// New creates a new server. The boundary fetch and session pruning run in
// the background until Close.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{config: cfg, mux: mux, logger: log}

	humaConfig := huma.DefaultConfig("plat-roadless API", api.Version)
	humaConfig.Info.Description = "Oregon roadless areas, trails and congressional districts map viewer."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer(&s.links))
	s.humaAPI = humago.New(mux, humaConfig)

	layers, err := service.NewLayerService(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}
	sources := service.NewSourceService(cfg.DataDir)
	popups, err := popup.NewBuilder(popup.WithTrailRules(layers.TrailRules()))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var pending *boundary.Pending
	if cfg.BoundaryURL != "" {
		pending = boundary.NewFetcher(boundary.WithLogger(log)).Start(ctx, cfg.BoundaryURL)
	}
	bounds := func() (orb.Bound, bool) {
		if pending == nil {
			return orb.Bound{}, false
		}
		b, ok := pending.Get()
		if !ok || b == nil {
			return orb.Bound{}, false
		}
		return b.Bound, true
	}

	s.services = &api.Services{
		DataDir:  cfg.DataDir,
		Layer:    layers,
		Source:   sources,
		Stats:    openStats(ctx, cfg.DataDir, layers, sources, log),
		Boundary: pending,
	}
	s.sessions = service.NewSessionManager(layers, sources, popups, service.NewEventBus(),
		service.WithBounds(bounds),
		service.WithSessionLogger(log),
	)

	if err := s.routes(bounds); err != nil {
		cancel()
		return nil, err
	}
	s.links = humastar.AutoLinks(s.humaAPI, viewer.Tag)
	s.handler = logger.AccessMiddleware(log)(mux)

	if cfg.SessionTTL > 0 {
		go s.prune(ctx, cfg.SessionTTL)
	}
	return s, nil
}

// openStats opens the district table and loads the district layer's source
// into it. Failures leave the district routes unavailable.
func openStats(ctx context.Context, dataDir string, layers *service.LayerService, sources *service.SourceService, log *slog.Logger) *stats.Store {
	store, err := stats.Open(stats.Config{DataDir: dataDir, DBName: "roadless"})
	if err != nil {
		log.Warn("district database unavailable", "error", err)
		return nil
	}

	layer, ok := layers.Get(selection.FillLayer)
	if !ok {
		return store
	}
	src, ok := layers.Source(layer.Source)
	if !ok {
		return store
	}
	features, err := sources.Load(src)
	if err != nil {
		log.Warn("district source not loaded", "source", src.ID, "error", err)
		return store
	}
	n, err := store.Load(ctx, features)
	if err != nil {
		log.Warn("district table not loaded", "source", src.ID, "error", err)
		return store
	}
	log.Info("district table loaded", "districts", n)
	return store
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the viewer session manager.
func (s *Server) Sessions() *service.SessionManager {
	return s.sessions
}

// Close stops background work and closes server resources.
func (s *Server) Close() error {
	s.cancel()
	if s.services.Stats != nil {
		return s.services.Stats.Close()
	}
	return nil
}

func (s *Server) routes(bounds func() (orb.Bound, bool)) error {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.sessions, s.logger).RegisterRoutes(s.humaAPI)

	page, err := viewer.NewPage(s.humaAPI, s.services.Layer, bounds, s.logger)
	if err != nil {
		return err
	}
	s.mux.Handle("GET /viewer", page)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-roadless",
		"status":  "running",
		"viewer":  "/viewer",
	})
}

func (s *Server) prune(ctx context.Context, ttl time.Duration) {
	t := time.NewTicker(max(ttl/2, time.Second))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Prune(ttl); n > 0 {
				s.logger.Info("pruned idle sessions", "closed", n, "open", s.sessions.Len())
			}
		}
	}
}
