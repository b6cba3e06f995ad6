// Package templates renders the HTML fragments sent to the viewer: popup
// bodies and the viewer page.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
)

// Renderer executes named templates parsed once at startup. It is safe for
// concurrent use.
type Renderer struct {
	templates *template.Template
}

// New parses every template in fsys matching the given patterns.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the named template and returns its output.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
