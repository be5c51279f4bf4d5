// Package events is the editor's in-process notification bus.
//
// Dispatch is synchronous: every handler registered at the time of the call runs once, in
// registration order, before DispatchEvent returns.
package events

const (
	TeamUpdated     = "teamUpdated"
	SharingUpdated  = "sharingUpdated"
	ElementAdded    = "elementAdded"
	ElementsUpdated = "elementsUpdated"
	SlideAdded      = "slideAdded"
	SlidesUpdated   = "slidesUpdated"
	FormSaved       = "formSaved"
	FormFailed      = "formFailed"
)

type Handler func(payload any)

type listener struct {
	id int
	fn Handler
}

type Bus struct {
	nextID    int
	listeners map[string][]listener
}

func NewBus() *Bus {
	return &Bus{listeners: map[string][]listener{}}
}

// AddEventListener registers fn for name and returns a func that removes it again.
func (b *Bus) AddEventListener(name string, fn Handler) (remove func()) {
	if fn == nil {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], listener{id: id, fn: fn})
	return func() {
		ls := b.listeners[name]
		for i := range ls {
			if ls[i].id == id {
				b.listeners[name] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) DispatchEvent(name string, payload any) {
	// Snapshot so handlers that add or remove listeners don't affect this dispatch.
	ls := append([]listener(nil), b.listeners[name]...)
	for _, l := range ls {
		l.fn(payload)
	}
}
