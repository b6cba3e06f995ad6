package humastar

import (
	"fmt"
	"strings"
)

// Action is a state-dependent hypermedia action link, rendered as an
// RFC 8288 Link header with method and title extension parameters:
//
//	</api/v1/map/select>; rel="select"; method="POST"; title="Highlight district 2"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, strings.ReplaceAll(a.Title, `"`, `'`))
	}
	return h
}
