package cli

import (
	"context"
	"errors"
	"strings"

	"deckhand/internal/editor"
	"deckhand/internal/events"
	"deckhand/internal/model"

	"github.com/spf13/cobra"
)

func newPresentationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "presentations",
		Aliases: []string{"presentation", "p"},
		Short:   "Presentation commands",
	}
	cmd.AddCommand(newPresentationsListCmd(app))
	cmd.AddCommand(newPresentationsCreateCmd(app))
	cmd.AddCommand(newPresentationsShowCmd(app))
	cmd.AddCommand(newPresentationsEditCmd(app))
	return cmd
}

func newPresentationsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List presentations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			var out []model.Record
			ok := false
			rt.client.Get(cmd.Context(), "/presentations", nil, func(success bool, data any) {
				ok = success
				out = model.AsRecords(data)
			})
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("list presentations"))
			}
			if out == nil {
				out = []model.Record{}
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func newPresentationsCreateCmd(app *App) *cobra.Command {
	var name, description string
	var width, height int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a presentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			p := &model.Presentation{
				Name:        strings.TrimSpace(name),
				Description: description,
				Width:       width,
				Height:      height,
				OwnerID:     app.cfg.UserID,
			}
			ok := false
			rt.client.Post(cmd.Context(), "/presentations", p.Serialize(), func(success bool, data any) {
				ok = success
				if r, isRecord := model.AsRecord(data); success && isRecord {
					p.Load(r)
				}
			})
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("create presentation"))
			}
			return writeOut(cmd, app, map[string]any{"data": p.Serialize()})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Presentation name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().Int64Var(&width, "width", 1920, "Canvas width")
	cmd.Flags().Int64Var(&height, "height", 1080, "Canvas height")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPresentationsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <presentation-id>",
		Short: "Show a presentation with its slides, team and sharing status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("presentation", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := rt.open(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": presentationView(rt, id)})
		},
	}
}

func presentationView(rt *runtime, id int64) map[string]any {
	c := rt.editor.Composer()
	slides := make([]model.Record, 0, len(c.Slides()))
	for _, s := range c.Slides() {
		slides = append(slides, s.Serialize())
	}
	team := make([]model.Record, 0)
	for _, m := range rt.editor.Collab().Team() {
		team = append(team, m.Serialize())
	}
	var sharing any
	if st := rt.editor.Collab().GetStatus(id); st != nil {
		sharing = st.Serialize()
	}
	return map[string]any{
		"presentation": c.Presentation().Serialize(),
		"slides":       slides,
		"team":         team,
		"sharing":      sharing,
	}
}

func newPresentationsEditCmd(app *App) *cobra.Command {
	var name, description string
	var width, height int64

	cmd := &cobra.Command{
		Use:   "edit <presentation-id>",
		Short: "Edit presentation fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("presentation", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := rt.open(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			d := rt.editor.PresentationDialog()
			d.Open(rt.editor.Composer().Presentation().Serialize())
			cur := d.Current()
			if cmd.Flags().Changed("name") {
				cur.Name = strings.TrimSpace(name)
			}
			if cmd.Flags().Changed("description") {
				cur.Description = description
			}
			if cmd.Flags().Changed("width") {
				cur.Width = width
			}
			if cmd.Flags().Changed("height") {
				cur.Height = height
			}
			if err := saveDialog(cmd.Context(), rt, d.Save); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": d.Previous().Serialize()})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Presentation name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().Int64Var(&width, "width", 0, "Canvas width")
	cmd.Flags().Int64Var(&height, "height", 0, "Canvas height")
	return cmd
}

// saveDialog saves a dialog and waits for the outcome. Dialog failures arrive as
// events.FormFailed.
func saveDialog(ctx context.Context, rt *runtime, save func(context.Context) bool) error {
	var failed error
	remove := rt.editor.Bus().AddEventListener(events.FormFailed, func(p any) {
		if f, ok := p.(editor.FormFailure); ok {
			failed = f.Err
		}
	})
	defer remove()
	if !save(ctx) {
		return errors.New("save already in progress")
	}
	if err := rt.settle(ctx); err != nil {
		return err
	}
	return failed
}
