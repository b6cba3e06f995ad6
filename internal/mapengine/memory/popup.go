package memory

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-roadless/internal/mapengine"
)

// Popup is a popup tracked by an in-memory Engine. An engine shows at most
// one popup; adding a new one hides the previous without firing its close
// callback.
type Popup struct {
	engine  *Engine
	lngLat  orb.Point
	html    string
	onClose func()
	open    bool
}

// SetLngLat sets the anchor.
func (p *Popup) SetLngLat(at orb.Point) mapengine.Popup {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.lngLat = at
	return p
}

// SetHTML sets the markup.
func (p *Popup) SetHTML(html string) mapengine.Popup {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.html = html
	return p
}

// AddTo shows the popup on its engine.
func (p *Popup) AddTo() mapengine.Popup {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	if prev := p.engine.popup; prev != nil && prev != p {
		prev.open = false
	}
	p.open = true
	p.engine.popup = p
	p.engine.popupRev++
	return p
}

// Remove hides the popup and runs the close callback once.
func (p *Popup) Remove() {
	p.engine.mu.Lock()
	if !p.open {
		p.engine.mu.Unlock()
		return
	}
	p.open = false
	if p.engine.popup == p {
		p.engine.popup = nil
	}
	fn := p.onClose
	p.engine.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// OnClose sets the close callback.
func (p *Popup) OnClose(fn func()) {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.onClose = fn
}
