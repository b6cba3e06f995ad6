package api

import (
	"context"

	"github.com/joeblew999/plat-roadless/internal/classify"
	"github.com/joeblew999/plat-roadless/internal/stats"
)

// Boundary fetch states reported by /api/v1/info.
const (
	BoundaryPending     = "pending"
	BoundaryReady       = "ready"
	BoundaryUnavailable = "unavailable"
)

type BoundaryInfo struct {
	Status   string     `json:"status" enum:"pending,ready,unavailable" doc:"State of the state outline fetch"`
	Bound    [4]float64 `json:"bound,omitempty" doc:"West, south, east, north in degrees"`
	Acres    string     `json:"acres,omitempty" doc:"Computed area of the outline" example:"61,000,000"`
	Features int        `json:"features,omitempty" doc:"Number of outline features"`
}

type InfoBody struct {
	Name      string         `json:"name" doc:"Service name"`
	Version   string         `json:"version" doc:"Service version"`
	DataDir   string         `json:"data_dir" doc:"Data directory path"`
	DB        bool           `json:"db" doc:"Whether the district database is available"`
	Layers    int            `json:"layers" doc:"Number of catalog layers"`
	Boundary  BoundaryInfo   `json:"boundary" doc:"State outline"`
	Districts *stats.Summary `json:"districts,omitempty" doc:"District totals"`
	Features  []string       `json:"features" doc:"Available features"`
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-roadless",
		Version:  Version,
		DataDir:  h.svc.DataDir,
		DB:       h.svc.Stats != nil,
		Boundary: h.boundaryInfo(),
		Features: []string{"geojson", "shapefile", "duckdb", "datastar"},
	}
	if h.svc.Layer != nil {
		body.Layers = len(h.svc.Layer.List())
	}
	if h.svc.Stats != nil {
		if sum, err := h.svc.Stats.Summary(ctx); err == nil {
			body.Districts = &sum
		}
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}

func (h *APIHandler) boundaryInfo() BoundaryInfo {
	if h.svc.Boundary == nil {
		return BoundaryInfo{Status: BoundaryUnavailable}
	}
	b, done := h.svc.Boundary.Get()
	switch {
	case !done:
		return BoundaryInfo{Status: BoundaryPending}
	case b == nil:
		return BoundaryInfo{Status: BoundaryUnavailable}
	}
	info := BoundaryInfo{
		Status:   BoundaryReady,
		Bound:    [4]float64{b.Bound.Min.X(), b.Bound.Min.Y(), b.Bound.Max.X(), b.Bound.Max.Y()},
		Features: b.Features,
	}
	if b.Acres.OK {
		info.Acres = classify.FormatAcres(b.Acres.Value)
	}
	return info
}
