// Package form implements the edit/commit/rollback lifecycle shared by every dialog.
//
// A Lifecycle owns two models: previous, the last server-confirmed state, and current, the
// live edit buffer. Saving disables the form until the submitter answers, so repeated
// input (double click, double Enter) cannot submit twice.
package form

import (
	"context"
	"errors"
	"fmt"

	"deckhand/internal/loop"
	"deckhand/internal/model"

	"go.uber.org/zap"
)

// Submitter persists rec and later calls done on the loop with the outcome. data is the
// server's answer on success and the error on failure.
type Submitter func(ctx context.Context, rec model.Record, done func(ok bool, data any))

var ErrSaveFailed = errors.New("save failed")

type settings struct {
	logger      *zap.Logger
	closeOnSave bool
	notify      func(name string, confirmed model.Record)
}

type Option func(*settings)

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NotifySaved registers fn to run after every confirmed save, once the form's own
// OnSaved handler has run.
func NotifySaved(fn func(name string, confirmed model.Record)) Option {
	return func(s *settings) { s.notify = fn }
}

// CloseOnSave closes the form after a successful save instead of re-enabling it.
func CloseOnSave() Option {
	return func(s *settings) { s.closeOnSave = true }
}

type Lifecycle[M model.Editable] struct {
	name     string
	previous M
	current  M
	enabled  bool
	open     bool

	submit Submitter
	epoch  loop.Epoch
	cfg    settings

	onSaved  func(model.Record)
	onFailed func(error)
	onClose  func()
}

func New[M model.Editable](name string, newModel func() M, submit Submitter, opts ...Option) *Lifecycle[M] {
	cfg := settings{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Lifecycle[M]{
		name:     name,
		previous: newModel(),
		current:  newModel(),
		enabled:  true,
		submit:   submit,
		cfg:      cfg,
	}
}

func (l *Lifecycle[M]) OnSaved(fn func(model.Record)) { l.onSaved = fn }
func (l *Lifecycle[M]) OnFailed(fn func(error))       { l.onFailed = fn }
func (l *Lifecycle[M]) OnClose(fn func())             { l.onClose = fn }

func (l *Lifecycle[M]) Previous() M   { return l.previous }
func (l *Lifecycle[M]) Current() M    { return l.current }
func (l *Lifecycle[M]) Enabled() bool { return l.enabled }
func (l *Lifecycle[M]) IsOpen() bool  { return l.open }

// Load replaces both models from data. previous is loaded first so it always holds the
// authoritative baseline, even when loading current reads from it. Loading starts a new
// context: the form is re-enabled and completions of earlier saves are ignored.
func (l *Lifecycle[M]) Load(data model.Record) {
	l.previous.Load(data)
	l.current.Load(data)
	l.enabled = true
	l.epoch.Advance()
}

// Open loads data and marks the form open.
func (l *Lifecycle[M]) Open(data model.Record) {
	l.Load(data)
	l.open = true
}

// Save submits current. It returns false, without touching state or the network, while a
// previous save is still in flight.
func (l *Lifecycle[M]) Save(ctx context.Context) bool {
	if !l.enabled {
		l.cfg.logger.Debug("save ignored while disabled", zap.String("form", l.name))
		return false
	}
	l.enabled = false

	tok := l.epoch.Begin()
	rec := l.current.Serialize()
	l.submit(ctx, rec, func(ok bool, data any) {
		l.complete(tok, rec, ok, data)
	})
	return true
}

func (l *Lifecycle[M]) complete(tok loop.Token, submitted model.Record, ok bool, data any) {
	if !l.epoch.Current(tok) {
		l.cfg.logger.Debug("stale save completion dropped", zap.String("form", l.name))
		return
	}
	if !ok {
		l.enabled = true
		err := saveError(data)
		l.cfg.logger.Warn("save failed", zap.String("form", l.name), zap.Error(err))
		if l.onFailed != nil {
			l.onFailed(err)
		}
		return
	}

	confirmed := submitted
	if r, ok := model.AsRecord(data); ok && len(r) > 0 {
		confirmed = r
	}
	l.previous.Load(confirmed)
	l.current.Load(confirmed)

	if l.cfg.closeOnSave {
		l.Close()
	} else {
		l.enabled = true
	}
	if l.onSaved != nil {
		l.onSaved(confirmed)
	}
	if l.cfg.notify != nil {
		l.cfg.notify(l.name, confirmed)
	}
}

func saveError(data any) error {
	if err, ok := data.(error); ok {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return ErrSaveFailed
}

// Cancel discards in-progress edits and closes the form.
func (l *Lifecycle[M]) Cancel() {
	l.current.Load(l.previous.Serialize())
	l.Close()
}

// Close is idempotent.
func (l *Lifecycle[M]) Close() {
	if !l.open {
		return
	}
	l.open = false
	if l.onClose != nil {
		l.onClose()
	}
}

// HandleKey maps keyboard submit and dismiss onto Save and Cancel. It reports whether the
// key was consumed; a consumed enter must not fall through to a default form submit.
func (l *Lifecycle[M]) HandleKey(ctx context.Context, key string) bool {
	switch key {
	case "enter":
		l.Save(ctx)
		return true
	case "esc":
		l.Cancel()
		return true
	default:
		return false
	}
}
