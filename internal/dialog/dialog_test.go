package dialog

import (
	"context"
	"errors"
	"testing"

	"deckhand/internal/api/apitest"
	"deckhand/internal/collab"
	"deckhand/internal/compose"
	"deckhand/internal/events"
	"deckhand/internal/model"
	"deckhand/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client   *apitest.Client
	bus      *events.Bus
	composer *compose.Composer
	collab   *collab.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{client: &apitest.Client{}, bus: events.NewBus()}
	f.composer = compose.New(f.client, f.bus)
	f.collab = collab.NewManager(f.client, f.bus, session.New(1, "me@example.com"))
	f.composer.Load(&model.Presentation{ID: 3, Name: "Deck"}, []*model.Slide{
		{ID: 10, PresentationID: 3, Name: "Intro", Order: 1, Elements: []*model.Element{
			{ID: 20, SlideID: 10, Name: "Title", Kind: model.ElementText, Order: 1, LocalKey: "title"},
		}},
	})
	return f
}

func TestPresentation_SaveUpdatesComposer(t *testing.T) {
	f := newFixture(t)
	d := NewPresentation(f.client, f.composer)
	d.Open(f.composer.Presentation().Serialize())

	d.Current().Name = "Renamed"
	require.True(t, d.Save(context.Background()))
	call := f.client.Last()
	assert.Equal(t, "PUT", call.Method)
	assert.Equal(t, "/presentations/3", call.Path)

	call.Complete(true, nil)
	assert.Equal(t, "Renamed", f.composer.Presentation().Name)
	assert.Equal(t, "Renamed", d.Previous().Name)
	assert.True(t, d.Enabled())
	assert.True(t, d.IsOpen())
}

func TestPresentation_UnsavedFails(t *testing.T) {
	f := newFixture(t)
	d := NewPresentation(f.client, f.composer)
	var got error
	d.OnFailed(func(err error) { got = err })
	d.Open(model.Record{"name": "draft"})

	d.Save(context.Background())
	assert.Empty(t, f.client.Calls)
	assert.ErrorIs(t, got, ErrUnsaved)
	assert.True(t, d.Enabled())
}

func TestSlide_CreatesThroughComposerAndCloses(t *testing.T) {
	f := newFixture(t)
	d := NewSlide(f.composer)
	closed := 0
	d.OnClose(func() { closed++ })
	d.OpenNew(3)
	d.Current().Name = "Agenda"

	require.True(t, d.Save(context.Background()))
	require.Len(t, f.composer.Slides(), 2)
	added := f.composer.Slides()[1]
	assert.Equal(t, "Agenda", added.Name)
	assert.Equal(t, int64(2), added.Order)
	assert.False(t, d.Enabled())

	call := f.client.Last()
	assert.Equal(t, "/presentations/3/slides", call.Path)
	call.Complete(true, map[string]any{"id": float64(11)})

	assert.Equal(t, int64(11), added.ID)
	assert.Equal(t, int64(11), d.Previous().ID)
	assert.False(t, d.IsOpen())
	assert.Equal(t, 1, closed)
}

func TestSlide_FailureKeepsDialogOpen(t *testing.T) {
	f := newFixture(t)
	d := NewSlide(f.composer)
	d.OpenNew(3)
	d.Current().Name = "Agenda"
	d.Save(context.Background())

	f.client.Last().Complete(false, errors.New("boom"))
	assert.True(t, d.IsOpen())
	assert.True(t, d.Enabled())
	assert.Equal(t, "Agenda", d.Current().Name)
}

func TestSlide_RetryAfterFailureReusesSlide(t *testing.T) {
	f := newFixture(t)
	d := NewSlide(f.composer)
	d.OpenNew(3)
	d.Current().Name = "Agenda"
	d.Save(context.Background())
	f.client.Last().Complete(false, errors.New("boom"))

	d.Current().Notes = "- goals"
	require.True(t, d.Save(context.Background()))
	require.Len(t, f.client.Calls, 2)
	retry := f.client.Last()
	assert.Equal(t, "/presentations/3/slides", retry.Path)
	retry.Complete(true, map[string]any{"id": float64(99)})

	slides := f.composer.Slides()
	require.Len(t, slides, 2, "the retry must not insert a second slide")
	assert.Equal(t, int64(99), slides[1].ID)
	assert.Equal(t, "Agenda", slides[1].Name)
	assert.Equal(t, "- goals", slides[1].Notes)
	assert.Equal(t, int64(2), slides[1].Order)
	assert.False(t, d.IsOpen())
}

func TestSlide_RetryAfterReloadAddsFreshSlide(t *testing.T) {
	f := newFixture(t)
	d := NewSlide(f.composer)
	d.OpenNew(3)
	d.Current().Name = "Agenda"
	d.Save(context.Background())
	f.client.Last().Complete(false, errors.New("boom"))

	f.composer.Load(&model.Presentation{ID: 3, Name: "Deck"}, nil)
	require.True(t, d.Save(context.Background()))
	f.client.Last().Complete(true, map[string]any{"id": float64(12)})

	slides := f.composer.Slides()
	require.Len(t, slides, 1)
	assert.Equal(t, int64(12), slides[0].ID)
	assert.Equal(t, int64(1), slides[0].Order)
}

func TestElement_SaveAppliesToLiveElement(t *testing.T) {
	f := newFixture(t)
	_, live := f.composer.FindElement(20)
	require.NotNil(t, live)

	d := NewElement(f.client, f.composer)
	d.OpenFor(live)
	d.Current().Content = "Hello"
	d.Save(context.Background())

	call := f.client.Last()
	assert.Equal(t, "/elements/20", call.Path)
	assert.Empty(t, live.Content)

	call.Complete(true, map[string]any{"id": float64(20), "slideId": float64(10), "name": "Title", "kind": "text", "order": float64(1), "content": "Hello"})
	assert.Equal(t, "Hello", live.Content)
	assert.Equal(t, "title", live.LocalKey)
}

func TestElement_CancelRestores(t *testing.T) {
	f := newFixture(t)
	_, live := f.composer.FindElement(20)
	d := NewElement(f.client, f.composer)
	d.OpenFor(live)
	d.Current().Name = "Scratch"

	d.Cancel()
	assert.Equal(t, "Title", d.Current().Name)
	assert.Equal(t, "Title", live.Name)
	assert.False(t, d.IsOpen())
}

func TestShare_SavesThroughCollab(t *testing.T) {
	f := newFixture(t)
	updates := 0
	f.bus.AddEventListener(events.SharingUpdated, func(any) { updates++ })

	d := NewShare(f.collab)
	d.OpenFor(3)
	d.Current().Users = append(d.Current().Users, &model.SharingUser{InviteEmail: "bo@example.com"})
	d.Save(context.Background())

	call := f.client.Last()
	require.NotNil(t, call)
	assert.Equal(t, "/sharing", call.Path)
	assert.False(t, call.Background)
	call.Complete(true, nil)

	status := f.collab.GetStatus(3)
	require.NotNil(t, status)
	require.Len(t, status.Users, 1)
	assert.Equal(t, "bo@example.com", status.Users[0].InviteEmail)
	assert.Equal(t, 1, updates)
	require.Len(t, d.Previous().Users, 1)
}

func TestShare_OpenForUsesCache(t *testing.T) {
	f := newFixture(t)
	f.collab.Cache().Set(3, &model.SharingStatus{PresentationID: 3, Users: []*model.SharingUser{{UserID: 2, Accepted: true}}})

	d := NewShare(f.collab)
	d.OpenFor(3)
	require.Len(t, d.Current().Users, 1)
	d.Current().Users[0].Accepted = false

	assert.True(t, f.collab.GetStatus(3).Users[0].Accepted)
}
