// Package compose manages the slides and elements of the open presentation: ordering,
// optimistic creation and the single-slot clipboard.
//
// Every mutation is applied locally first and is visible before the create request is
// issued; the server's answer only patches identifiers into the objects already inserted.
package compose

import (
	"context"
	"fmt"
	"slices"

	"deckhand/internal/api"
	"deckhand/internal/events"
	"deckhand/internal/loop"
	"deckhand/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Composer struct {
	client api.Client
	bus    *events.Bus
	logger *zap.Logger

	presentation *model.Presentation
	slides       []*model.Slide
	selected     *model.Slide
	clipboard    Clipboard

	// Elements added to a slide the server has not confirmed yet; their create requests
	// are sent once the slide has an id.
	waiting map[*model.Slide][]*model.Element

	epoch loop.Epoch
}

type Option func(*Composer)

func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(client api.Client, bus *events.Bus, opts ...Option) *Composer {
	c := &Composer{
		client:  client,
		bus:     bus,
		logger:  zap.NewNop(),
		waiting: map[*model.Slide][]*model.Element{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load replaces the composed presentation. Completions of requests issued for the previous
// state are dropped from now on. The first slide is selected.
func (c *Composer) Load(p *model.Presentation, slides []*model.Slide) {
	c.epoch.Advance()
	c.presentation = p
	c.slides = append([]*model.Slide(nil), slides...)
	sortSlides(c.slides)
	for _, s := range c.slides {
		sortElements(s.Elements)
	}
	c.waiting = map[*model.Slide][]*model.Element{}
	c.selected = nil
	if len(c.slides) > 0 {
		c.selected = c.slides[0]
	}
	c.bus.DispatchEvent(events.SlidesUpdated, c.slides)
}

func (c *Composer) Presentation() *model.Presentation { return c.presentation }
func (c *Composer) Slides() []*model.Slide            { return c.slides }
func (c *Composer) Selected() *model.Slide            { return c.selected }
func (c *Composer) Clipboard() *Clipboard             { return &c.clipboard }

func (c *Composer) Slide(id int64) *model.Slide {
	for _, s := range c.slides {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SelectSlide makes the slide with id the paste target.
func (c *Composer) SelectSlide(id int64) bool {
	s := c.Slide(id)
	if s == nil {
		return false
	}
	c.selected = s
	return true
}

// FindElement looks an element up by server id across all slides.
func (c *Composer) FindElement(id int64) (*model.Slide, *model.Element) {
	if id == model.UnsetID {
		return nil, nil
	}
	for _, s := range c.slides {
		for _, e := range s.Elements {
			if e.ID == id {
				return s, e
			}
		}
	}
	return nil, nil
}

// FindByLocalKey finds an element whether or not the server has confirmed it.
func (c *Composer) FindByLocalKey(key string) (*model.Slide, *model.Element) {
	for _, s := range c.slides {
		for _, e := range s.Elements {
			if e.LocalKey == key {
				return s, e
			}
		}
	}
	return nil, nil
}

// AddSlide appends slide to the presentation with the next slide order and, unless
// localOnly, creates it on the server. done, when given, is called once with the outcome;
// a completion that arrives after Load reports false.
func (c *Composer) AddSlide(ctx context.Context, slide *model.Slide, localOnly bool, done func(ok bool)) {
	finish := func(ok bool) {
		if done != nil {
			done(ok)
		}
	}
	if slide == nil {
		finish(false)
		return
	}
	if c.presentation != nil && slide.PresentationID != c.presentation.ID {
		slide.PresentationID = c.presentation.ID
		slide.Order = model.UnsetOrder
	}
	if slide.Order == model.UnsetOrder {
		slide.Order = NextSlideOrder(c.slides)
	}
	c.slides = append(c.slides, slide)
	if c.selected == nil {
		c.selected = slide
	}
	c.bus.DispatchEvent(events.SlideAdded, slide)

	if localOnly {
		finish(true)
		return
	}

	c.createSlide(ctx, slide, finish)
}

// RetrySlide sends the create of slide again after a failed attempt. slide must still be
// part of the composition and have no server id; otherwise nothing is sent, done is not
// called and RetrySlide reports false. Elements added to slide meanwhile are created once
// the retry succeeds.
func (c *Composer) RetrySlide(ctx context.Context, slide *model.Slide, done func(ok bool)) bool {
	if slide == nil || slide.ID != model.UnsetID || !slices.Contains(c.slides, slide) {
		return false
	}
	c.createSlide(ctx, slide, func(ok bool) {
		if done != nil {
			done(ok)
		}
	})
	return true
}

func (c *Composer) createSlide(ctx context.Context, slide *model.Slide, finish func(ok bool)) {
	tok := c.epoch.Begin()
	body := slide.Serialize()
	delete(body, "elements")
	c.client.Post(ctx, fmt.Sprintf("/presentations/%d/slides", slide.PresentationID), body, func(ok bool, data any) {
		if !c.epoch.Current(tok) {
			c.logger.Debug("stale slide create dropped")
			finish(false)
			return
		}
		if !ok {
			c.logger.Warn("slide create failed", zap.String("name", slide.Name), zap.Any("error", data))
			finish(false)
			return
		}
		r, _ := model.AsRecord(data)
		id := model.Normalize(r, "id").Int("id")
		if id == model.UnsetID {
			c.logger.Warn("slide create returned no id", zap.String("name", slide.Name))
			finish(false)
			return
		}
		slide.ID = id
		for _, e := range slide.Elements {
			if e.SlideID == model.UnsetID {
				e.SlideID = id
			}
		}
		c.bus.DispatchEvent(events.SlidesUpdated, c.slides)
		c.flushWaiting(ctx, slide)
		finish(true)
	})
}

// AddElement inserts el into slide and, unless localOnly, creates it on the server.
//
// An element coming from another slide (or none) is re-homed and gets a fresh order; an
// element without an order gets NextOrder. The element is appended before any request is
// issued. When the server answers, its id is patched into the same object; if the answer
// never comes, the element stays with its placeholder id.
func (c *Composer) AddElement(ctx context.Context, slide *model.Slide, el *model.Element, localOnly bool) {
	if slide == nil || el == nil {
		return
	}
	forced := false
	if el.SlideID != slide.ID {
		el.SlideID = slide.ID
		forced = true
	}
	if el.Order == model.UnsetOrder || forced {
		el.Order = NextOrder(slide)
	}
	if el.LocalKey == "" {
		el.LocalKey = uuid.NewString()
	}
	slide.Elements = append(slide.Elements, el)
	c.bus.DispatchEvent(events.ElementAdded, el)

	if localOnly {
		return
	}
	if slide.ID == model.UnsetID {
		c.waiting[slide] = append(c.waiting[slide], el)
		return
	}
	c.createElement(ctx, slide, el)
}

func (c *Composer) flushWaiting(ctx context.Context, slide *model.Slide) {
	pending := c.waiting[slide]
	delete(c.waiting, slide)
	for _, el := range pending {
		el.SlideID = slide.ID
		c.createElement(ctx, slide, el)
	}
}

func (c *Composer) createElement(ctx context.Context, slide *model.Slide, el *model.Element) {
	tok := c.epoch.Begin()
	c.client.Post(ctx, fmt.Sprintf("/slides/%d/elements", slide.ID), el.Serialize(), func(ok bool, data any) {
		if !c.epoch.Current(tok) {
			c.logger.Debug("stale element create dropped", zap.String("key", el.LocalKey))
			return
		}
		if !ok {
			c.logger.Warn("element create failed", zap.String("key", el.LocalKey), zap.Any("error", data))
			return
		}
		r, _ := model.AsRecord(data)
		id := model.Normalize(r, "id").Int("id")
		if id == model.UnsetID {
			c.logger.Warn("element create returned no id", zap.String("key", el.LocalKey))
			return
		}
		el.ID = id
		c.bus.DispatchEvent(events.ElementsUpdated, slide.Elements)
	})
}

// UpdateElement applies a server-confirmed element record onto the live element with the
// same id. The element keeps its identity and local key.
func (c *Composer) UpdateElement(r model.Record) bool {
	id := model.Normalize(r, "id").Int("id")
	slide, el := c.FindElement(id)
	if el == nil {
		return false
	}
	el.Load(r)
	if el.SlideID != slide.ID {
		el.SlideID = slide.ID
	}
	c.bus.DispatchEvent(events.ElementsUpdated, slide.Elements)
	return true
}

// Copy places a snapshot of el on the clipboard.
func (c *Composer) Copy(el *model.Element) {
	c.clipboard.Copy(el)
}

// Paste adds the clipboard element to the selected slide. Without a selected slide it does
// nothing. The clipboard is cleared before the insert so a rapid second paste cannot insert
// the same content again while the first create is pending.
func (c *Composer) Paste(ctx context.Context) *model.Element {
	target := c.selected
	if target == nil {
		return nil
	}
	el := c.clipboard.Element()
	c.clipboard.Clear()
	if el == nil {
		return nil
	}
	c.AddElement(ctx, target, el, false)
	return el
}
