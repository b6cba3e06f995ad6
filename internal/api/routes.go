// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-roadless/internal/boundary"
	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/humastar"
	"github.com/joeblew999/plat-roadless/internal/popup"
	"github.com/joeblew999/plat-roadless/internal/service"
	"github.com/joeblew999/plat-roadless/internal/stats"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers. Any of them may
// be nil; the affected routes then answer with empty lists or 503.
type Services struct {
	DataDir  string
	Layer    *service.LayerService
	Source   *service.SourceService
	Stats    *stats.Store
	Boundary *boundary.Pending
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"district-fill"`
}

type SourceIDInput struct {
	ID string `path:"id" doc:"Source ID" example:"roadless"`
}

type FeaturesOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type DistrictInput struct {
	District string `path:"district" doc:"District number" example:"2"`
}

type LayerOutput struct {
	Body service.LayerConfig
}

type LayersOutput struct {
	Body []service.LayerConfig
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// DistrictBody is one district with its derived fields.
type DistrictBody struct {
	stats.District
	Label         string   `json:"label" doc:"Popup label" example:"Rep. Cliff Bentz (R–OR-02)"`
	RoadlessShare *float64 `json:"roadlessShare,omitempty" doc:"Roadless share of the district area in percent"`
}

var districtActions = []humastar.ActionDef{
	{Rel: "select", Pattern: "/api/v1/map/select/%s", Method: http.MethodPost, Title: "Highlight district %s"},
}

// Actions implements humastar.Actor.
func (b DistrictBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.District.District, districtActions)
}

func newDistrictBody(d stats.District) DistrictBody {
	b := DistrictBody{District: d}
	info := classify.DistrictInfo{District: d.District, Representative: d.Representative, Party: d.Party}
	if label, err := popup.Label(info); err == nil {
		b.Label = label
	}
	if share, ok := d.RoadlessShare(); ok {
		b.RoadlessShare = &share
	}
	return b
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc == nil {
		svc = &Services{}
	}
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// RegisterLayers registers the read-only catalog routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Get(api, "/api/v1/sources/{id}/features", h.GetSourceFeatures, huma.OperationTags("sources"))
}

// RegisterDistricts registers the district statistics routes.
func (h *APIHandler) RegisterDistricts(api huma.API) {
	huma.Get(api, "/api/v1/districts", h.GetDistricts, huma.OperationTags("districts"))
	huma.Get(api, "/api/v1/districts/{district}", h.GetDistrict, huma.OperationTags("districts"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc.Layer == nil {
		return &LayersOutput{Body: []service.LayerConfig{}}, nil
	}
	return &LayersOutput{Body: h.svc.Layer.List()}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	if h.svc.Layer == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	layer, ok := h.svc.Layer.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

// GetSourceFeatures serves a catalog source as a GeoJSON FeatureCollection,
// whatever its file format.
func (h *APIHandler) GetSourceFeatures(ctx context.Context, input *SourceIDInput) (*FeaturesOutput, error) {
	if h.svc.Layer == nil || h.svc.Source == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	src, ok := h.svc.Layer.Source(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("source not found")
	}
	if src.File == "" {
		return nil, huma.Error404NotFound("source has no local features")
	}
	features, err := h.svc.Source.Load(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil, huma.Error404NotFound("source file not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load source", err)
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = features
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode source", err)
	}
	return &FeaturesOutput{ContentType: "application/geo+json", Body: data}, nil
}

func (h *APIHandler) GetDistricts(ctx context.Context, input *struct{ humastar.PageInput }) (*struct {
	Body humastar.PageBody[DistrictBody]
}, error) {
	if h.svc.Stats == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	offset, limit := input.Bounds()
	rows, total, err := h.svc.Stats.List(ctx, offset, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list districts", err)
	}

	page := humastar.PageBody[DistrictBody]{Total: total, Offset: offset, Limit: limit, Data: make([]DistrictBody, len(rows))}
	for i, d := range rows {
		page.Data[i] = newDistrictBody(d)
	}
	return &struct {
		Body humastar.PageBody[DistrictBody]
	}{Body: page}, nil
}

func (h *APIHandler) GetDistrict(ctx context.Context, input *DistrictInput) (*struct{ Body DistrictBody }, error) {
	if h.svc.Stats == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	d, err := h.svc.Stats.Get(ctx, input.District)
	if errors.Is(err, stats.ErrNotFound) {
		return nil, huma.Error404NotFound("district not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read district", err)
	}
	return &struct{ Body DistrictBody }{Body: newDistrictBody(d)}, nil
}
