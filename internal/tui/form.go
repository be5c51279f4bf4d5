package tui

import (
	"context"
	"slices"
	"strings"

	"deckhand/internal/dialog"
	"deckhand/internal/form"
	"deckhand/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// formTarget is the part of a form.Lifecycle the modal drives.
type formTarget interface {
	HandleKey(ctx context.Context, key string) bool
	IsOpen() bool
	Enabled() bool
}

type fieldSpec struct {
	key   string
	label string
}

// formModal renders a dialog as a column of text inputs. Every edit is written straight
// into the dialog's current model, so enter saves exactly what is on screen.
type formModal struct {
	title  string
	target formTarget
	fields []fieldSpec
	inputs []textinput.Model
	focus  int
	set    func(key, value string)
}

func newFormModal(title string, target formTarget, fields []fieldSpec, get func(key string) string, set func(key, value string)) *formModal {
	f := &formModal{title: title, target: target, fields: fields, set: set}
	for i, field := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 512
		in.Width = 40
		in.SetValue(get(field.key))
		if i == 0 {
			in.Focus()
		}
		f.inputs = append(f.inputs, in)
	}
	return f
}

// editableForm binds fields of a lifecycle's current model. Values are written back as
// strings; Record's typed accessors parse them on Load.
func editableForm[M model.Editable](title string, lc *form.Lifecycle[M], fields ...fieldSpec) *formModal {
	get := func(key string) string { return lc.Current().Serialize().String(key) }
	set := func(key, value string) {
		r := lc.Current().Serialize()
		r[key] = value
		lc.Current().Load(r)
	}
	return newFormModal(title, lc, fields, get, set)
}

// shareForm edits a single pending invitation on top of the cached sharing status.
func shareForm(d *dialog.Share) *formModal {
	var pending *model.SharingUser
	get := func(string) string { return "" }
	set := func(_ string, value string) {
		st := d.Current()
		st.Users = slices.DeleteFunc(st.Users, func(u *model.SharingUser) bool { return u == pending })
		pending = nil
		if value = strings.TrimSpace(value); value != "" {
			pending = &model.SharingUser{InviteEmail: value}
			st.Users = append(st.Users, pending)
		}
	}
	return newFormModal("Share", d, []fieldSpec{{key: "inviteEmail", label: "Invite email"}}, get, set)
}

func (f *formModal) update(ctx context.Context, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc":
		f.target.HandleKey(ctx, msg.String())
		return nil
	case "tab", "down":
		f.moveFocus(1)
		return nil
	case "shift+tab", "up":
		f.moveFocus(-1)
		return nil
	}
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	before := f.inputs[f.focus].Value()
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if after := f.inputs[f.focus].Value(); after != before {
		f.set(f.fields[f.focus].key, after)
	}
	return cmd
}

func (f *formModal) moveFocus(delta int) {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *formModal) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")
	for i, field := range f.fields {
		label := mutedStyle.Render(field.label)
		if i == f.focus {
			label = headingStyle.Render(field.label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n\n")
	}
	hint := "enter save · esc cancel · tab next"
	if !f.target.Enabled() {
		hint = "saving…"
	}
	b.WriteString(mutedStyle.Render(hint))
	return modalStyle.Render(lipgloss.NewStyle().Width(44).Render(b.String()))
}
