// Package dialog holds the editor's dialogs. Each one is a form.Lifecycle over one entity
// type plus the submitter that persists it.
package dialog

import (
	"context"
	"errors"
	"fmt"

	"deckhand/internal/api"
	"deckhand/internal/collab"
	"deckhand/internal/compose"
	"deckhand/internal/form"
	"deckhand/internal/model"
)

// ErrUnsaved is reported when editing an entity the server has not confirmed yet.
var ErrUnsaved = errors.New("entity not saved yet")

// Presentation edits the name, description and size of the open presentation.
type Presentation struct {
	*form.Lifecycle[*model.Presentation]
}

func NewPresentation(client api.Client, composer *compose.Composer, opts ...form.Option) *Presentation {
	submit := func(ctx context.Context, rec model.Record, done func(bool, any)) {
		id := rec.Int("id")
		if id == model.UnsetID {
			done(false, ErrUnsaved)
			return
		}
		client.Put(ctx, fmt.Sprintf("/presentations/%d", id), rec, done)
	}
	d := &Presentation{form.New("presentation", func() *model.Presentation { return &model.Presentation{} }, submit, opts...)}
	d.OnSaved(func(r model.Record) {
		if p := composer.Presentation(); p != nil && p.ID == r.Int("id") {
			p.Load(r)
		}
	})
	return d
}

// Slide creates a new slide in the open presentation and closes once it is saved.
//
// A failed create leaves its optimistic slide in the composition. Saving again re-sends
// that same slide with the edited name and notes instead of inserting another one.
type Slide struct {
	*form.Lifecycle[*model.Slide]
	pending *model.Slide
}

func NewSlide(composer *compose.Composer, opts ...form.Option) *Slide {
	d := &Slide{}
	confirm := func(slide *model.Slide, done func(bool, any)) func(ok bool) {
		return func(ok bool) {
			if !ok {
				done(false, nil)
				return
			}
			if d.pending == slide {
				d.pending = nil
			}
			done(true, slide.Serialize())
		}
	}
	submit := func(ctx context.Context, rec model.Record, done func(bool, any)) {
		edited := model.SlideFromRecord(rec)
		if p := d.pending; p != nil {
			p.Name, p.Notes = edited.Name, edited.Notes
			if composer.RetrySlide(ctx, p, confirm(p, done)) {
				return
			}
		}
		edited.ID = model.UnsetID
		d.pending = edited
		composer.AddSlide(ctx, edited, false, confirm(edited, done))
	}
	opts = append([]form.Option{form.CloseOnSave()}, opts...)
	d.Lifecycle = form.New("slide", func() *model.Slide { return &model.Slide{} }, submit, opts...)
	return d
}

// OpenNew opens the dialog on an empty slide for the composed presentation.
func (d *Slide) OpenNew(presentationID int64) {
	d.pending = nil
	d.Open(model.Record{"presentationId": presentationID})
}

// Element edits one existing element. A confirmed edit is applied to the live element in
// the composer.
type Element struct {
	*form.Lifecycle[*model.Element]
}

func NewElement(client api.Client, composer *compose.Composer, opts ...form.Option) *Element {
	submit := func(ctx context.Context, rec model.Record, done func(bool, any)) {
		id := rec.Int("id")
		if id == model.UnsetID {
			done(false, ErrUnsaved)
			return
		}
		client.Put(ctx, fmt.Sprintf("/elements/%d", id), rec, done)
	}
	d := &Element{form.New("element", func() *model.Element { return &model.Element{} }, submit, opts...)}
	d.OnSaved(func(r model.Record) { composer.UpdateElement(r) })
	return d
}

// OpenFor opens the dialog on el's current state.
func (d *Element) OpenFor(el *model.Element) {
	d.Open(el.Serialize())
}

// Share edits the sharing status of one presentation and saves it through the collab
// manager, so the cache and its listeners see the change.
type Share struct {
	*form.Lifecycle[*model.SharingStatus]
	collab *collab.Manager
}

func NewShare(manager *collab.Manager, opts ...form.Option) *Share {
	submit := func(ctx context.Context, rec model.Record, done func(bool, any)) {
		override := model.SharingStatusFromRecord(rec)
		key := override.PresentationID
		if key == model.UnsetID {
			done(false, ErrUnsaved)
			return
		}
		manager.UpdateSharingStatus(ctx, key, override, func(ok bool) {
			status := manager.GetStatus(key)
			if !ok || status == nil {
				done(false, collab.ErrNoStatus)
				return
			}
			done(true, status.Serialize())
		}, false)
	}
	return &Share{
		Lifecycle: form.New("share", func() *model.SharingStatus { return &model.SharingStatus{} }, submit, opts...),
		collab:    manager,
	}
}

// OpenFor opens the dialog on the cached status of presentation key, or an empty one.
func (d *Share) OpenFor(key int64) {
	rec := model.Record{"presentationId": key}
	if status := d.collab.GetStatus(key); status != nil {
		rec = status.Serialize()
	}
	d.Open(rec)
}
