package humastar

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Route is an operation discovered in the OpenAPI spec.
type Route struct {
	Method string
	Path   string
}

// Action returns the Datastar action expression calling the route, e.g.
// "@post('/api/v1/map/click')".
func (r Route) Action() string {
	return fmt.Sprintf("@%s('%s')", strings.ToLower(r.Method), r.Path)
}

// PageData is what a page template needs from the spec, so the HTML never
// hardcodes URLs or signal names.
type PageData struct {
	// Signals is the JSON for the data-signals attribute.
	Signals string
	// Routes maps operation IDs to routes.
	Routes map[string]Route
}

// Route returns the route of an operation ID. It panics on unknown IDs so a
// template referring to a removed endpoint fails at render time.
func (pd PageData) Route(operationID string) Route {
	r, ok := pd.Routes[operationID]
	if !ok {
		panic(fmt.Sprintf("humastar: no route for operation %q", operationID))
	}
	return r
}

// BuildPageData collects the operations tagged tag and encodes the initial
// signals.
func BuildPageData(api huma.API, tag string, signals map[string]any) (PageData, error) {
	pd := PageData{Routes: map[string]Route{}}

	raw, err := json.Marshal(signals)
	if err != nil {
		return PageData{}, fmt.Errorf("encoding signals: %w", err)
	}
	pd.Signals = string(raw)

	for p, pi := range api.OpenAPI().Paths {
		for _, op := range operationsOf(pi) {
			if op == nil || op.OperationID == "" || !slices.Contains(op.Tags, tag) {
				continue
			}
			pd.Routes[op.OperationID] = Route{Method: op.Method, Path: p}
		}
	}
	return pd, nil
}
