// Package viewer contains the Datastar SSE handlers that drive a map viewer
// session from the browser.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-roadless/internal/humastar"
	"github.com/joeblew999/plat-roadless/internal/selection"
	"github.com/joeblew999/plat-roadless/internal/service"
)

// Tag groups the viewer operations in the OpenAPI spec.
const Tag = "viewer"

// Signal names exchanged with the page.
const (
	SignalSession   = "session"
	SignalLng       = "lng"
	SignalLat       = "lat"
	SignalZoom      = "zoom"
	SignalDistrict  = "district"
	SignalSelected  = "selected"
	SignalCursor    = "cursor"
	SignalPopupOpen = "popupOpen"
	SignalPopupLng  = "popupLng"
	SignalPopupLat  = "popupLat"
	SignalPopupRev  = "popupRev"
	SignalPaint     = "paint"
)

// PopupSelector is the element receiving popup markup.
const PopupSelector = "#popup-content"

// Handler serves the viewer session endpoints.
type Handler struct {
	humastar.Handler
	sessions *service.SessionManager
	paint    []string
}

// NewHandler creates a handler. Paint of the district layers is streamed
// with every response.
func NewHandler(sessions *service.SessionManager, logger *slog.Logger) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Logger: logger},
		sessions: sessions,
		paint:    []string{selection.FillLayer, selection.LineLayer},
	}
}

type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type SelectInput struct {
	District string `path:"district" doc:"District number" example:"2"`
	RawBody  []byte
}

type EventsInput struct {
	Session string `query:"session" required:"true" doc:"Session ID"`
}

func (h *Handler) RegisterRoutes(api huma.API) {
	op := func(id, method, path, summary string) huma.Operation {
		return huma.Operation{OperationID: id, Method: method, Path: path, Summary: summary, Tags: []string{Tag}}
	}
	huma.Register(api, op("map-session", http.MethodPost, "/api/v1/map/session", "Start a viewer session"), h.CreateSession)
	huma.Register(api, op("map-click", http.MethodPost, "/api/v1/map/click", "Click the map"), h.Click)
	huma.Register(api, op("map-hover", http.MethodPost, "/api/v1/map/hover", "Move the pointer"), h.Hover)
	huma.Register(api, op("map-zoom", http.MethodPost, "/api/v1/map/zoom", "Change the zoom"), h.Zoom)
	huma.Register(api, op("map-popup-close", http.MethodPost, "/api/v1/map/popup/close", "Close the popup"), h.ClosePopup)
	huma.Register(api, op("map-select", http.MethodPost, "/api/v1/map/select/{district}", "Select a district"), h.Select)
	huma.Register(api, op("map-session-delete", http.MethodDelete, "/api/v1/map/session/{id}", "End a viewer session"), h.DeleteSession)
	huma.Register(api, op("map-events", http.MethodGet, "/api/v1/map/events", "Stream session events"), h.Events)
}

func (h *Handler) CreateSession(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	s, err := h.sessions.Create()
	if err != nil {
		h.Log().Error("creating session", "error", err)
		return nil, huma.Error500InternalServerError("Failed to create session", err)
	}
	return h.Stream(func(sse humastar.SSE) {
		h.render(sse, s.Snapshot(h.paint...))
	}), nil
}

func (h *Handler) Click(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.act(input, func(s *service.Session, sig humastar.Signals) error {
		p, ok := sig.Point(SignalLng, SignalLat)
		if !ok {
			return huma.Error400BadRequest("lng and lat are required")
		}
		return s.Click(p)
	})
}

func (h *Handler) Hover(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.act(input, func(s *service.Session, sig humastar.Signals) error {
		p, ok := sig.Point(SignalLng, SignalLat)
		if !ok {
			return huma.Error400BadRequest("lng and lat are required")
		}
		return s.Hover(p)
	})
}

func (h *Handler) Zoom(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.act(input, func(s *service.Session, sig humastar.Signals) error {
		z, ok := sig.Float(SignalZoom)
		if !ok {
			return huma.Error400BadRequest("zoom is required")
		}
		return s.Zoom(z)
	})
}

func (h *Handler) ClosePopup(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.act(input, func(s *service.Session, _ humastar.Signals) error {
		return s.ClosePopup()
	})
}

func (h *Handler) Select(ctx context.Context, input *SelectInput) (*huma.StreamResponse, error) {
	return h.act(&humastar.SignalsInput{RawBody: input.RawBody}, func(s *service.Session, _ humastar.Signals) error {
		err := s.SelectDistrict(input.District)
		if errors.Is(err, service.ErrDistrictNotFound) {
			return huma.Error404NotFound(err.Error())
		}
		return err
	})
}

func (h *Handler) DeleteSession(ctx context.Context, input *SessionIDInput) (*struct{}, error) {
	err := h.sessions.Close(input.ID)
	if errors.Is(err, service.ErrSessionNotFound) {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err != nil {
		h.Log().Warn("closing session", "session", input.ID, "error", err)
	}
	return nil, nil
}

// Events streams selection changes of a session as custom DOM events until
// the client goes away or the session closes.
func (h *Handler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	if _, err := h.sessions.Get(input.Session); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	bus := h.sessions.Bus()
	if bus == nil {
		return nil, huma.Error503ServiceUnavailable("event bus not available")
	}

	return h.Stream(func(sse humastar.SSE) {
		ch := bus.Subscribe(input.Session)
		defer bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Kind == service.EventClosed {
					sse.Signals(map[string]any{SignalSession: ""})
					return
				}
				sse.DispatchCustomEvent("map-"+ev.Kind, map[string]any{
					"session":  ev.Session,
					"district": ev.District,
				})
			}
		}
	}), nil
}

// act parses the signals, finds the session and runs fn before streaming.
// Huma errors from fn are returned as HTTP errors; any other error is sent
// to the page along with the new state.
func (h *Handler) act(input *humastar.SignalsInput, fn func(*service.Session, humastar.Signals) error) (*huma.StreamResponse, error) {
	sig, err := input.Parse()
	if err != nil {
		return nil, err
	}
	s, err := h.sessions.Get(sig.String(SignalSession))
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}

	err = fn(s, sig)
	var se huma.StatusError
	if errors.As(err, &se) {
		return nil, err
	}
	if err != nil {
		h.Log().Error("map event failed", "session", s.ID, "error", err)
	}

	snap := s.Snapshot(h.paint...)
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(fmt.Sprintf("map event failed: %v", err))
		}
		h.render(sse, snap)
	}), nil
}

// render sends the popup markup and the signals describing snap.
func (h *Handler) render(sse humastar.SSE, snap service.Snapshot) {
	html := ""
	if snap.PopupOpen {
		html = snap.PopupHTML
	}
	sse.Patch(html, PopupSelector)
	sse.Signals(Signals(snap))
}

// Signals maps a snapshot to page signals.
func Signals(snap service.Snapshot) map[string]any {
	paint := make(map[string]any, len(snap.Paint))
	for id, props := range snap.Paint {
		paint[id] = props
	}
	return map[string]any{
		SignalSession:   snap.ID,
		SignalZoom:      snap.Zoom,
		SignalDistrict:  snap.District,
		SignalSelected:  snap.Selected,
		SignalCursor:    snap.Cursor,
		SignalPopupOpen: snap.PopupOpen,
		SignalPopupLng:  snap.PopupAt.Lon(),
		SignalPopupLat:  snap.PopupAt.Lat(),
		SignalPopupRev:  snap.PopupRev,
		SignalPaint:     paint,
	}
}
