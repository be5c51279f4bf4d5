package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DispatchInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var got []string
	b.AddEventListener(TeamUpdated, func(any) { got = append(got, "first") })
	b.AddEventListener(TeamUpdated, func(any) { got = append(got, "second") })
	b.AddEventListener(SharingUpdated, func(any) { got = append(got, "other") })

	b.DispatchEvent(TeamUpdated, nil)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBus_RemoveListener(t *testing.T) {
	b := NewBus()
	calls := 0
	remove := b.AddEventListener(ElementAdded, func(any) { calls++ })
	b.DispatchEvent(ElementAdded, nil)
	remove()
	remove()
	b.DispatchEvent(ElementAdded, nil)

	assert.Equal(t, 1, calls)
	assert.Empty(t, b.listeners[ElementAdded])
}

func TestBus_ListenerAddedDuringDispatchWaitsForNextEvent(t *testing.T) {
	b := NewBus()
	late := 0
	b.AddEventListener(SlideAdded, func(any) {
		b.AddEventListener(SlideAdded, func(any) { late++ })
	})
	b.DispatchEvent(SlideAdded, nil)
	assert.Equal(t, 0, late)

	b.DispatchEvent(SlideAdded, nil)
	assert.Equal(t, 1, late)
}

func TestBus_PayloadDelivered(t *testing.T) {
	b := NewBus()
	var got any
	b.AddEventListener(FormSaved, func(p any) { got = p })
	b.DispatchEvent(FormSaved, 42)
	assert.Equal(t, 42, got)
}
