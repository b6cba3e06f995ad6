package service

import "sync"

// Event kinds published by sessions.
const (
	EventSelection = "selection"
	EventPopup     = "popup"
	EventPaint     = "paint"
	EventClosed    = "closed"
)

// Event is something that changed in a viewer session.
type Event struct {
	Session  string
	Kind     string
	District string // selected district for EventSelection, empty when cleared
}

// EventBus is a fan-out pub/sub for session events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]string
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]string)}
}

// Publish sends an event to matching subscribers. Slow subscribers miss
// events rather than block the publisher.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, session := range b.subs {
		if session != "" && session != e.Session {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel receiving events of one session, or
// of all sessions when session is empty.
func (b *EventBus) Subscribe(session string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = session
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
