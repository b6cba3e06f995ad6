package humastar

import (
	"fmt"
	"net/url"
)

// ActionDef is a reusable action template. Pattern and Title each take a
// single %s verb for the resource ID.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// ActionsFor generates concrete actions for a resource ID. The ID is path
// escaped in the href.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		a := Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, url.PathEscape(id)),
			Method: d.Method,
		}
		if d.Title != "" {
			a.Title = fmt.Sprintf(d.Title, id)
		}
		actions[i] = a
	}
	return actions
}
