package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusFiltersBySession(t *testing.T) {
	b := NewEventBus()
	a := b.Subscribe("a")
	all := b.Subscribe("")
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(all)

	b.Publish(Event{Session: "b", Kind: EventPaint})
	b.Publish(Event{Session: "a", Kind: EventSelection, District: "4"})

	got := <-a
	assert.Equal(t, "4", got.District)
	assert.Len(t, all, 2)
	assert.Len(t, a, 0)
}

func TestEventBusDropsWhenFull(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe("")
	for range 100 {
		b.Publish(Event{Kind: EventPaint})
	}
	assert.Equal(t, cap(ch), len(ch))

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)
	assert.Zero(t, b.Subscribers())

	for range ch {
	}
	_, open := <-ch
	require.False(t, open)
}
