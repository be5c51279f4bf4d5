package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"deckhand/internal/editor"
	"deckhand/internal/events"
	"deckhand/internal/loop"
	"deckhand/internal/model"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

type pane int

const (
	paneSlides pane = iota
	paneElements
)

// loopMsg carries one loop callback into Update, so callbacks and key handling share
// the program goroutine.
type loopMsg struct{ run func() }

// notice is written by bus listeners, which run inside Update.
type notice struct {
	text string
	err  bool
}

type appModel struct {
	ctx    context.Context
	editor *editor.Editor
	loop   *loop.Loop
	busy   func() int
	logger *zap.Logger

	width  int
	height int

	pane    pane
	element int
	modal   *formModal
	spinner spinner.Model
	notice  *notice
}

func newAppModel(ctx context.Context, opts Options) appModel {
	busy := opts.Busy
	if busy == nil {
		busy = func() int { return 0 }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	m := appModel{
		ctx:     ctx,
		editor:  opts.Editor,
		loop:    opts.Loop,
		busy:    busy,
		logger:  logger,
		width:   100,
		height:  30,
		spinner: sp,
		notice:  &notice{},
	}
	bus := opts.Editor.Bus()
	bus.AddEventListener(events.FormFailed, func(p any) {
		if f, ok := p.(editor.FormFailure); ok {
			*m.notice = notice{text: fmt.Sprintf("%s: %v", f.Form, f.Err), err: true}
		}
	})
	bus.AddEventListener(events.FormSaved, func(p any) {
		if f, ok := p.(editor.FormSave); ok {
			*m.notice = notice{text: f.Form + " saved"}
		}
	})
	bus.AddEventListener(events.TeamUpdated, func(any) {
		*m.notice = notice{text: fmt.Sprintf("team: %d members", len(opts.Editor.Collab().Team()))}
	})
	return m
}

func waitLoop(ctx context.Context, l *loop.Loop) tea.Cmd {
	return func() tea.Msg {
		fn := l.Next(ctx)
		if fn == nil {
			return nil
		}
		return loopMsg{run: fn}
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitLoop(m.ctx, m.loop), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case loopMsg:
		msg.run()
		cmd = waitLoop(m.ctx, m.loop)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
	case tea.KeyMsg:
		if m.modal != nil {
			cmd = m.modal.update(m.ctx, msg)
		} else {
			var quit bool
			m, quit = m.handleKey(msg)
			if quit {
				return m, tea.Quit
			}
		}
	}
	if m.modal != nil && !m.modal.target.IsOpen() {
		m.modal = nil
	}
	m.clampElement()
	return m, cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, bool) {
	c := m.editor.Composer()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, true
	case "tab":
		if m.pane == paneSlides {
			m.pane = paneElements
		} else {
			m.pane = paneSlides
		}
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "a":
		if s := c.Selected(); s != nil {
			c.AddElement(m.ctx, s, model.NewElement(model.ElementText, "Text"), false)
		}
	case "c":
		if el := m.selectedElement(); el != nil {
			c.Copy(el)
			*m.notice = notice{text: "copied " + el.Name}
		}
	case "v":
		if el := c.Paste(m.ctx); el != nil {
			*m.notice = notice{text: "pasted " + el.Name}
		}
	case "n":
		if p := c.Presentation(); p != nil {
			d := m.editor.SlideDialog()
			d.OpenNew(p.ID)
			m.modal = editableForm("New slide", d.Lifecycle,
				fieldSpec{key: "name", label: "Name"},
				fieldSpec{key: "notes", label: "Notes"},
			)
		}
	case "e":
		if el := m.selectedElement(); el != nil {
			d := m.editor.ElementDialog()
			d.OpenFor(el)
			m.modal = editableForm("Element", d.Lifecycle,
				fieldSpec{key: "name", label: "Name"},
				fieldSpec{key: "content", label: "Content"},
				fieldSpec{key: "x", label: "X"},
				fieldSpec{key: "y", label: "Y"},
				fieldSpec{key: "width", label: "Width"},
				fieldSpec{key: "height", label: "Height"},
			)
		}
	case "p":
		if p := c.Presentation(); p != nil {
			d := m.editor.PresentationDialog()
			d.Open(p.Serialize())
			m.modal = editableForm("Presentation", d.Lifecycle,
				fieldSpec{key: "name", label: "Name"},
				fieldSpec{key: "description", label: "Description"},
				fieldSpec{key: "width", label: "Width"},
				fieldSpec{key: "height", label: "Height"},
			)
		}
	case "s":
		if p := c.Presentation(); p != nil {
			d := m.editor.ShareDialog()
			d.OpenFor(p.ID)
			m.modal = shareForm(d)
		}
	}
	return m, false
}

func (m *appModel) move(delta int) {
	c := m.editor.Composer()
	if m.pane == paneElements {
		m.element += delta
		return
	}
	slides := c.Slides()
	if len(slides) == 0 {
		return
	}
	idx := 0
	for i, s := range slides {
		if s == c.Selected() {
			idx = i
			break
		}
	}
	idx = max(0, min(len(slides)-1, idx+delta))
	if c.SelectSlide(slides[idx].ID) {
		m.element = 0
	}
}

// focusElement puts the element cursor on the element with the given local key, which
// works before the server has assigned an id.
func (m *appModel) focusElement(key string) {
	slide, el := m.editor.Composer().FindByLocalKey(key)
	if el == nil || slide != m.editor.Composer().Selected() {
		return
	}
	m.pane = paneElements
	m.element = slices.Index(slide.Elements, el)
}

func (m *appModel) clampElement() {
	n := 0
	if s := m.editor.Composer().Selected(); s != nil {
		n = len(s.Elements)
	}
	m.element = max(0, min(n-1, m.element))
}

func (m appModel) selectedElement() *model.Element {
	s := m.editor.Composer().Selected()
	if s == nil || m.element < 0 || m.element >= len(s.Elements) {
		return nil
	}
	return s.Elements[m.element]
}

func (m appModel) View() string {
	c := m.editor.Composer()
	title := "deckhand"
	if p := c.Presentation(); p != nil {
		title = p.Name
	}

	if m.modal != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.modal.view())
	}

	leftW := max(20, m.width/3)
	rightW := max(20, m.width-leftW-4)
	bodyH := max(5, m.height-4)

	left := paneStyle.Width(leftW - 2).Height(bodyH).Render(m.slidesView(leftW - 4))
	right := paneStyle.Width(rightW - 2).Height(bodyH).Render(m.elementsView(rightW-4, bodyH))

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(ansi.Truncate(title, m.width, "…")),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.statusLine(),
	)
}

func (m appModel) slidesView(width int) string {
	c := m.editor.Composer()
	var b strings.Builder
	b.WriteString(headingStyle.Render("Slides"))
	b.WriteString("\n")
	for _, s := range c.Slides() {
		line := ansi.Truncate(fmt.Sprintf("%d. %s", s.Order, slideLabel(s)), width, "…")
		if s == c.Selected() {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) elementsView(width, height int) string {
	s := m.editor.Composer().Selected()
	if s == nil {
		return mutedStyle.Render("No slide selected")
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render("Elements"))
	b.WriteString("\n")
	for i, el := range s.Elements {
		line := ansi.Truncate(elementLabel(el), width, "…")
		if m.pane == paneElements && i == m.element {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if notes := RenderMarkdown(s.Notes, width); notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
	}
	out := strings.TrimRight(b.String(), "\n")
	lines := strings.Split(out, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m appModel) statusLine() string {
	parts := []string{}
	if n := m.busy(); n > 0 {
		parts = append(parts, fmt.Sprintf("%s %d pending", m.spinner.View(), n))
	}
	if m.notice.text != "" {
		txt := m.notice.text
		if m.notice.err {
			txt = errorStyle.Render(txt)
		}
		parts = append(parts, txt)
	}
	parts = append(parts, mutedStyle.Render("tab pane · a add · c copy · v paste · n slide · e edit · p deck · s share · q quit"))
	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

func slideLabel(s *model.Slide) string {
	name := s.Name
	if name == "" {
		name = "(untitled)"
	}
	if s.ID == model.UnsetID {
		name += " (saving)"
	}
	return name
}

func elementLabel(el *model.Element) string {
	label := fmt.Sprintf("%s [%s]", el.Name, el.Kind)
	if el.ID == model.UnsetID {
		label += " (unsaved)"
	}
	if el.Locked {
		label += " (locked)"
	}
	return label
}
