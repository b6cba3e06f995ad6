package viewer

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-roadless/internal/humastar"
	"github.com/joeblew999/plat-roadless/internal/service"
	"github.com/joeblew999/plat-roadless/internal/templates"
)

//go:embed templates/*.html
var pageFS embed.FS

// Page renders the viewer HTML page.
type Page struct {
	renderer *templates.Renderer
	data     pageData
	bounds   func() (orb.Bound, bool)
	logger   *slog.Logger
}

type sourceRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type pageData struct {
	humastar.PageData
	Title   string
	Zoom    float64
	Layers  []service.LayerConfig
	Sources []sourceRef
	Bounds  []float64
}

// Action returns the Datastar expression calling an operation, for use in
// data-on attributes where html/template expects JavaScript.
func (d pageData) Action(operationID string) template.JS {
	return template.JS(d.Route(operationID).Action())
}

// NewPage builds the page from the registered viewer operations. Call after
// the viewer routes are registered. bounds, when set, supplies the initial
// viewport at request time.
func NewPage(api huma.API, layers *service.LayerService, bounds func() (orb.Bound, bool), logger *slog.Logger) (*Page, error) {
	r, err := templates.New(pageFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing viewer page: %w", err)
	}
	pd, err := humastar.BuildPageData(api, Tag, map[string]any{
		SignalSession:   "",
		SignalLng:       0,
		SignalLat:       0,
		SignalZoom:      service.DefaultZoom,
		SignalDistrict:  "",
		SignalSelected:  false,
		SignalCursor:    "",
		SignalPopupOpen: false,
		SignalPopupLng:  0,
		SignalPopupLat:  0,
		SignalPopupRev:  0,
		SignalPaint:     map[string]any{},
		"error":         "",
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	data := pageData{PageData: pd, Title: "Oregon Roadless Areas", Zoom: service.DefaultZoom, Layers: layers.List()}
	for _, src := range layers.Sources() {
		ref := sourceRef{ID: src.ID, URL: src.URL}
		if ref.URL == "" {
			ref.URL = "/api/v1/sources/" + src.ID + "/features"
		}
		data.Sources = append(data.Sources, ref)
	}
	return &Page{renderer: r, data: data, bounds: bounds, logger: logger}, nil
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := p.data
	if p.bounds != nil {
		if b, ok := p.bounds(); ok {
			data.Bounds = []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
		}
	}
	html, err := p.renderer.Render("viewer", data)
	if err != nil {
		p.logger.Error("rendering viewer page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}
