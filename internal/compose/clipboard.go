package compose

import (
	"deckhand/internal/model"

	"github.com/google/uuid"
)

// Clipboard holds at most one element snapshot. It is empty iff no snapshot is held,
// regardless of what the snapshot contains.
type Clipboard struct {
	snapshot model.Record
}

// Copy stores a deep snapshot of el; later changes to el do not reach the clipboard.
func (c *Clipboard) Copy(el *model.Element) {
	if el == nil {
		return
	}
	c.copyRecord(el.Serialize())
}

// copyRecord accepts any element record; invalid ones are rejected by Element.
func (c *Clipboard) copyRecord(r model.Record) {
	if r == nil {
		return
	}
	c.snapshot = r.Clone()
}

func (c *Clipboard) IsEmpty() bool { return c.snapshot == nil }

func (c *Clipboard) Clear() { c.snapshot = nil }

// Element materializes a fresh element from the snapshot, ready to be pasted: identity,
// slide reference, order and explicit offsets are cleared, the lock is released and the
// copied marker is set. It returns nil when the clipboard is empty or the snapshot has no
// name.
func (c *Clipboard) Element() *model.Element {
	if c.snapshot == nil {
		return nil
	}
	r := model.Normalize(c.snapshot.Clone(), "name")
	if !r.Has("name") {
		return nil
	}
	el := &model.Element{LocalKey: uuid.NewString()}
	el.Load(r)
	el.ID = model.UnsetID
	el.SlideID = model.UnsetID
	el.Order = model.UnsetOrder
	el.X = 0
	el.Y = 0
	el.Locked = false
	el.Copied = true
	return el
}
