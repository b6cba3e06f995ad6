// Package selection owns the selected-district state of a map view and the
// district layer styling derived from it.
//
// The state machine has two states and four events:
//
//	state \ event   ClickDistrict(d)  ClickElsewhere  PopupClosed  ZoomChanged
//	Unselected      Selected(d)       Unselected      Unselected   Unselected
//	Selected(x)     Selected(d)       Unselected      Unselected   Selected(x)
//
// Paint values are a pure function of (state, zoom) and are reinstalled on
// every event, so zoom changes restyle without changing the selection.
package selection

import "fmt"

// State is the selected-district state. The zero value is Unselected.
type State struct {
	district string
	selected bool
}

// Unselected returns the empty state.
func Unselected() State { return State{} }

// Selected returns the state with district d selected.
func Selected(d string) State { return State{district: d, selected: true} }

// District returns the selected district, if any.
func (s State) District() (string, bool) { return s.district, s.selected }

// IsSelected reports whether a district is selected.
func (s State) IsSelected() bool { return s.selected }

func (s State) String() string {
	if !s.selected {
		return "Unselected"
	}
	return fmt.Sprintf("Selected(%q)", s.district)
}

// Event is an input to the state machine.
type Event int

const (
	ClickDistrict Event = iota
	ClickElsewhere
	PopupClosed
	ZoomChanged
)

func (e Event) String() string {
	switch e {
	case ClickDistrict:
		return "click-district"
	case ClickElsewhere:
		return "click-elsewhere"
	case PopupClosed:
		return "popup-closed"
	case ZoomChanged:
		return "zoom-changed"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

type transitionFunc func(cur State, district string) State

func toSelected(_ State, d string) State { return Selected(d) }
func toUnselected(State, string) State { return Unselected() }
func stay(cur State, _ string) State { return cur }

// transitions is keyed by whether a district is currently selected.
var transitions = map[bool]map[Event]transitionFunc{
	false: {
		ClickDistrict:  toSelected,
		ClickElsewhere: toUnselected,
		PopupClosed:    toUnselected,
		ZoomChanged:    stay,
	},
	true: {
		ClickDistrict:  toSelected,
		ClickElsewhere: toUnselected,
		PopupClosed:    toUnselected,
		ZoomChanged:    stay,
	},
}

// Transition returns the state after ev. district is only read for
// ClickDistrict. Unknown events leave the state unchanged.
func Transition(cur State, ev Event, district string) State {
	fn, ok := transitions[cur.selected][ev]
	if !ok {
		return cur
	}
	return fn(cur, district)
}
