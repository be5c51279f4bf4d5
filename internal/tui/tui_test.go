package tui

import (
	"context"
	"strings"
	"testing"

	"deckhand/internal/api/apitest"
	"deckhand/internal/editor"
	"deckhand/internal/loop"
	"deckhand/internal/model"
	"deckhand/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (appModel, *apitest.Client, *editor.Editor, *loop.Loop) {
	t.Helper()
	client := &apitest.Client{}
	e := editor.New(client, session.New(1, "me@example.com"), nil)
	e.Composer().Load(&model.Presentation{ID: 3, Name: "Deck"}, []*model.Slide{
		{ID: 10, PresentationID: 3, Name: "Intro", Order: 1, Notes: "# Welcome", Elements: []*model.Element{
			{ID: 20, SlideID: 10, Name: "Title", Kind: model.ElementText, Order: 1},
		}},
		{ID: 11, PresentationID: 3, Name: "Outro", Order: 2},
	})
	l := loop.New()
	return newAppModel(context.Background(), Options{Editor: e, Loop: l}), client, e, l
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(appModel)
	}
	return m
}

func TestSlideNavigation(t *testing.T) {
	m, _, e, _ := newTestModel(t)
	m = press(t, m, "j")
	assert.Equal(t, int64(11), e.Composer().Selected().ID)

	m = press(t, m, "j")
	assert.Equal(t, int64(11), e.Composer().Selected().ID, "selection stays on the last slide")

	press(t, m, "k")
	assert.Equal(t, int64(10), e.Composer().Selected().ID)
}

func TestCopyPaste(t *testing.T) {
	m, client, e, _ := newTestModel(t)
	m = press(t, m, "tab", "c")
	assert.Contains(t, m.notice.text, "copied Title")

	m = press(t, m, "v")
	slide := e.Composer().Selected()
	require.Len(t, slide.Elements, 2)
	assert.Equal(t, model.UnsetID, slide.Elements[1].ID)
	require.NotNil(t, client.Last())
	assert.Equal(t, "/slides/10/elements", client.Last().Path)
	assert.True(t, e.Composer().Clipboard().IsEmpty())
	assert.Equal(t, 1, m.element, "the pasted element is selected")
	assert.Same(t, slide.Elements[1], m.selectedElement())

	press(t, m, "v")
	assert.Len(t, slide.Elements, 2, "clipboard is cleared by the first paste")
}

func TestAddElement_SelectsNewElement(t *testing.T) {
	m, client, e, _ := newTestModel(t)
	m = press(t, m, "a")
	slide := e.Composer().Selected()
	require.Len(t, slide.Elements, 2)
	assert.Equal(t, paneElements, m.pane)
	assert.Same(t, slide.Elements[1], m.selectedElement())
	assert.Equal(t, "/slides/10/elements", client.Last().Path)
}

func TestPresentationModal_SavesTypedName(t *testing.T) {
	m, client, e, _ := newTestModel(t)
	m = press(t, m, "p")
	require.NotNil(t, m.modal)
	assert.True(t, e.PresentationDialog().IsOpen())

	m = press(t, m, "!")
	assert.Equal(t, "Deck!", e.PresentationDialog().Current().Name)

	m = press(t, m, "enter")
	require.Equal(t, "PUT", client.Last().Method)
	assert.Equal(t, "/presentations/3", client.Last().Path)
	assert.False(t, e.PresentationDialog().Enabled())

	client.Last().Complete(true, map[string]any{"id": float64(3), "name": "Deck!"})
	assert.Equal(t, "Deck!", e.Composer().Presentation().Name)
	assert.Equal(t, "presentation saved", m.notice.text)

	m = press(t, m, "esc")
	assert.Nil(t, m.modal)
}

func TestSlideModal_ClosesOnSave(t *testing.T) {
	m, client, e, _ := newTestModel(t)
	m = press(t, m, "n", "N", "e", "w", "enter")
	require.Equal(t, "/presentations/3/slides", client.Last().Path)
	require.Len(t, e.Composer().Slides(), 3)

	client.Last().Complete(true, map[string]any{"id": float64(12)})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, next.(appModel).modal)
	assert.Equal(t, "New", e.Composer().Slides()[2].Name)
}

func TestShareModal_InvitesPendingEmail(t *testing.T) {
	m, client, e, _ := newTestModel(t)
	m = press(t, m, "s", "a", "@", "b")
	users := e.ShareDialog().Current().Users
	require.Len(t, users, 1)
	assert.Equal(t, "a@b", users[0].InviteEmail)

	press(t, m, "enter")
	require.NotNil(t, client.Last())
	assert.Equal(t, "/sharing", client.Last().Path)
}

func TestElementModal_FailureIsShown(t *testing.T) {
	m, client, _, _ := newTestModel(t)
	m = press(t, m, "tab", "e", "enter")
	require.Equal(t, "/elements/20", client.Last().Path)

	client.Last().Complete(false, assert.AnError)
	assert.True(t, m.notice.err)
	assert.Contains(t, m.notice.text, "element")
}

func TestLoopCallbacksRunInUpdate(t *testing.T) {
	m, _, _, l := newTestModel(t)
	ran := false
	l.Post(func() { ran = true })

	msg := waitLoop(context.Background(), l)()
	require.IsType(t, loopMsg{}, msg)
	_, cmd := m.Update(msg)
	assert.True(t, ran)
	assert.NotNil(t, cmd, "the loop is re-armed")
	assert.Zero(t, l.Pending())
}

func TestWaitLoop_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, waitLoop(ctx, loop.New())())
}

func TestView_ShowsSlidesAndNotes(t *testing.T) {
	t.Setenv("DECKHAND_MD_STYLE", "notty")
	m, _, _, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	out := next.(appModel).View()
	assert.Contains(t, out, "Intro")
	assert.Contains(t, out, "Outro")
	assert.Contains(t, out, "Title [text]")
	assert.Contains(t, out, "Welcome")
}

func TestRenderMarkdown(t *testing.T) {
	t.Setenv("DECKHAND_MD_STYLE", "notty")
	assert.Empty(t, RenderMarkdown("   ", 40))

	out := RenderMarkdown("# Agenda\n\n- one\n- two", 40)
	assert.Contains(t, out, "Agenda")
	assert.Contains(t, out, "two")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestRun_RequiresEditor(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background(), Options{}), errNoEditor)
}
