// Package editor wires the collaborators of one editing session together. It is the only
// place that constructs the composer, the collab manager and the dialogs; everything else
// receives them from here.
package editor

import (
	"context"
	"fmt"

	"deckhand/internal/api"
	"deckhand/internal/collab"
	"deckhand/internal/compose"
	"deckhand/internal/dialog"
	"deckhand/internal/events"
	"deckhand/internal/form"
	"deckhand/internal/model"
	"deckhand/internal/session"

	"go.uber.org/zap"
)

// NotFoundError is reported by Open when the presentation does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s not found: %d", e.Kind, e.ID) }

type Editor struct {
	client  api.Client
	session session.Context
	logger  *zap.Logger

	bus      *events.Bus
	composer *compose.Composer
	collab   *collab.Manager

	presentation *dialog.Presentation
	slide        *dialog.Slide
	element      *dialog.Element
	share        *dialog.Share
}

func New(client api.Client, sess session.Context, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := events.NewBus()
	e := &Editor{
		client:  client,
		session: sess,
		logger:  logger,
		bus:     bus,
	}
	e.composer = compose.New(client, bus, compose.WithLogger(logger.Named("compose")))
	e.collab = collab.NewManager(client, bus, sess, collab.WithLogger(logger.Named("collab")))

	opts := []form.Option{form.WithLogger(logger.Named("form")), form.NotifySaved(e.reportSaved)}
	e.presentation = dialog.NewPresentation(client, e.composer, opts...)
	e.slide = dialog.NewSlide(e.composer, opts...)
	e.element = dialog.NewElement(client, e.composer, opts...)
	e.share = dialog.NewShare(e.collab, opts...)
	e.presentation.OnFailed(e.reportFailure("presentation"))
	e.slide.OnFailed(e.reportFailure("slide"))
	e.element.OnFailed(e.reportFailure("element"))
	e.share.OnFailed(e.reportFailure("share"))
	return e
}

// FormSave is the payload of events.FormSaved.
type FormSave struct {
	Form   string
	Record model.Record
}

func (e *Editor) reportSaved(name string, confirmed model.Record) {
	e.bus.DispatchEvent(events.FormSaved, FormSave{Form: name, Record: confirmed})
}

// FormFailure is the payload of events.FormFailed.
type FormFailure struct {
	Form string
	Err  error
}

func (e *Editor) reportFailure(name string) func(error) {
	return func(err error) {
		e.bus.DispatchEvent(events.FormFailed, FormFailure{Form: name, Err: err})
	}
}

func (e *Editor) Bus() *events.Bus                         { return e.bus }
func (e *Editor) Session() session.Context                 { return e.session }
func (e *Editor) Composer() *compose.Composer              { return e.composer }
func (e *Editor) Collab() *collab.Manager                  { return e.collab }
func (e *Editor) PresentationDialog() *dialog.Presentation { return e.presentation }
func (e *Editor) SlideDialog() *dialog.Slide               { return e.slide }
func (e *Editor) ElementDialog() *dialog.Element           { return e.element }
func (e *Editor) ShareDialog() *dialog.Share               { return e.share }

// Open loads presentation id with its slides into the composer, then refreshes the team
// and the presentation's sharing status. done is called once; team and sharing failures
// are logged but do not fail the open.
func (e *Editor) Open(ctx context.Context, id int64, done func(err error)) {
	finish := func(err error) {
		if done != nil {
			done(err)
		}
	}
	e.client.Get(ctx, fmt.Sprintf("/presentations/%d", id), nil, func(ok bool, data any) {
		if !ok {
			finish(openError("presentation", id, data))
			return
		}
		r, _ := model.AsRecord(data)
		p := &model.Presentation{}
		p.Load(r)

		e.client.Get(ctx, fmt.Sprintf("/presentations/%d/slides", id), nil, func(ok bool, data any) {
			if !ok {
				finish(openError("slides", id, data))
				return
			}
			var slides []*model.Slide
			for _, sr := range model.AsRecords(data) {
				slides = append(slides, model.SlideFromRecord(sr))
			}
			e.composer.Load(p, slides)
			e.presentation.Load(p.Serialize())
			e.refresh(ctx, id, finish)
		})
	})
}

func (e *Editor) refresh(ctx context.Context, id int64, finish func(error)) {
	remaining := 2
	step := func(what string) func(bool) {
		return func(ok bool) {
			if !ok {
				e.logger.Warn("refresh failed", zap.String("what", what), zap.Int64("presentation", id))
			}
			remaining--
			if remaining == 0 {
				finish(nil)
			}
		}
	}
	e.collab.ReloadTeam(ctx, step("team"))
	e.collab.ReloadSharing(ctx, []int64{id}, step("sharing"))
}

func openError(kind string, id int64, data any) error {
	err, _ := data.(error)
	if api.IsNotFound(err) {
		return NotFoundError{Kind: kind, ID: id}
	}
	if err == nil {
		err = fmt.Errorf("load %s %d failed", kind, id)
	}
	return fmt.Errorf("open presentation %d: %w", id, err)
}
