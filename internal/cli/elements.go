package cli

import (
	"fmt"
	"strings"

	"deckhand/internal/events"
	"deckhand/internal/model"

	"github.com/spf13/cobra"
)

func newElementsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "elements",
		Aliases: []string{"element", "el"},
		Short:   "Element commands",
	}
	cmd.AddCommand(newElementsAddCmd(app))
	cmd.AddCommand(newElementsDuplicateCmd(app))
	cmd.AddCommand(newElementsEditCmd(app))
	return cmd
}

type elementFlags struct {
	name, kind, content string
	x, y, width, height float64
	locked              bool
}

func (f *elementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Element name")
	cmd.Flags().StringVar(&f.kind, "kind", string(model.ElementText), "Element kind (text|image|chart|shape)")
	cmd.Flags().StringVar(&f.content, "content", "", "Content")
	cmd.Flags().Float64Var(&f.x, "x", 0, "X offset")
	cmd.Flags().Float64Var(&f.y, "y", 0, "Y offset")
	cmd.Flags().Float64Var(&f.width, "width", 0, "Width")
	cmd.Flags().Float64Var(&f.height, "height", 0, "Height")
	cmd.Flags().BoolVar(&f.locked, "locked", false, "Lock the element")
}

// apply copies the flags the user set onto el.
func (f *elementFlags) apply(cmd *cobra.Command, el *model.Element) error {
	set := cmd.Flags().Changed
	if set("name") {
		el.Name = strings.TrimSpace(f.name)
	}
	if set("kind") || el.Kind == "" {
		kind, err := parseKind(f.kind)
		if err != nil {
			return err
		}
		el.Kind = kind
	}
	if set("content") {
		el.Content = f.content
	}
	if set("x") {
		el.X = f.x
	}
	if set("y") {
		el.Y = f.y
	}
	if set("width") {
		el.Width = f.width
	}
	if set("height") {
		el.Height = f.height
	}
	if set("locked") {
		el.Locked = f.locked
	}
	return nil
}

func parseKind(s string) (model.ElementKind, error) {
	switch k := model.ElementKind(strings.ToLower(strings.TrimSpace(s))); k {
	case model.ElementText, model.ElementImage, model.ElementChart, model.ElementShape:
		return k, nil
	default:
		return "", fmt.Errorf("unknown element kind: %s", s)
	}
}

func newElementsAddCmd(app *App) *cobra.Command {
	var f elementFlags

	cmd := &cobra.Command{
		Use:   "add <presentation-id> <slide-id>",
		Short: "Add an element on top of a slide",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("presentation", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			sid, err := parseID("slide", args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := rt.open(cmd.Context(), pid); err != nil {
				return writeErr(cmd, err)
			}
			slide := rt.editor.Composer().Slide(sid)
			if slide == nil {
				return writeErr(cmd, errNotFound("slide", sid))
			}
			el := model.NewElement(model.ElementText, "")
			if err := f.apply(cmd, el); err != nil {
				return writeErr(cmd, err)
			}
			return addAndWait(cmd, app, rt, func() *model.Element {
				rt.editor.Composer().AddElement(cmd.Context(), slide, el, false)
				return el
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newElementsDuplicateCmd(app *App) *cobra.Command {
	var to int64

	cmd := &cobra.Command{
		Use:   "duplicate <presentation-id> <element-id>",
		Short: "Copy an element and paste it onto a slide (its own slide by default)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("presentation", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			eid, err := parseID("element", args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := rt.open(cmd.Context(), pid); err != nil {
				return writeErr(cmd, err)
			}
			c := rt.editor.Composer()
			slide, el := c.FindElement(eid)
			if el == nil {
				return writeErr(cmd, errNotFound("element", eid))
			}
			target := slide.ID
			if to != 0 {
				target = to
			}
			if !c.SelectSlide(target) {
				return writeErr(cmd, errNotFound("slide", target))
			}
			c.Copy(el)
			return addAndWait(cmd, app, rt, func() *model.Element {
				return c.Paste(cmd.Context())
			})
		},
	}
	cmd.Flags().Int64Var(&to, "to", 0, "Target slide id")
	return cmd
}

// addAndWait runs an optimistic insert and reports the element once its create settled.
func addAndWait(cmd *cobra.Command, app *App, rt *runtime, add func() *model.Element) error {
	confirmed := false
	var el *model.Element
	remove := rt.editor.Bus().AddEventListener(events.ElementsUpdated, func(any) {
		if el != nil && el.ID != model.UnsetID {
			confirmed = true
		}
	})
	defer remove()

	el = add()
	if el == nil {
		return writeErr(cmd, emptyClipboardError{})
	}
	if err := rt.settle(cmd.Context()); err != nil {
		return writeErr(cmd, err)
	}
	if !confirmed {
		return writeErr(cmd, rt.failure("create element"))
	}
	return writeOut(cmd, app, map[string]any{"data": el.Serialize()})
}

func newElementsEditCmd(app *App) *cobra.Command {
	var f elementFlags

	cmd := &cobra.Command{
		Use:   "edit <presentation-id> <element-id>",
		Short: "Edit element fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("presentation", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			eid, err := parseID("element", args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := rt.open(cmd.Context(), pid); err != nil {
				return writeErr(cmd, err)
			}
			_, el := rt.editor.Composer().FindElement(eid)
			if el == nil {
				return writeErr(cmd, errNotFound("element", eid))
			}
			d := rt.editor.ElementDialog()
			d.OpenFor(el)
			if err := f.apply(cmd, d.Current()); err != nil {
				return writeErr(cmd, err)
			}
			if err := saveDialog(cmd.Context(), rt, d.Save); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": el.Serialize()})
		},
	}
	f.register(cmd)
	return cmd
}
