package cli

import (
	"fmt"
	"strings"

	"deckhand/internal/model"
	"deckhand/internal/tui"

	"github.com/spf13/cobra"
)

func newSlidesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "slides",
		Aliases: []string{"slide"},
		Short:   "Slide commands",
	}
	cmd.AddCommand(newSlidesListCmd(app))
	cmd.AddCommand(newSlidesAddCmd(app))
	cmd.AddCommand(newSlidesNotesCmd(app))
	return cmd
}

func newSlidesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <presentation-id>",
		Short: "List slides in order, with their elements",
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
			out := []model.Record{}
			for _, s := range rt.editor.Composer().Slides() {
				out = append(out, s.Serialize())
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func newSlidesAddCmd(app *App) *cobra.Command {
	var name, notes string

	cmd := &cobra.Command{
		Use:   "add <presentation-id>",
		Short: "Append a slide",
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
			d := rt.editor.SlideDialog()
			d.OpenNew(id)
			d.Current().Name = strings.TrimSpace(name)
			d.Current().Notes = notes
			if err := saveDialog(cmd.Context(), rt, d.Save); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": d.Previous().Serialize()})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Slide name")
	cmd.Flags().StringVar(&notes, "notes", "", "Speaker notes (markdown)")
	return cmd
}

func newSlidesNotesCmd(app *App) *cobra.Command {
	var set string
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "notes <presentation-id> <slide-id>",
		Short: "Render (or replace) a slide's speaker notes",
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

			if cmd.Flags().Changed("set") {
				ok := false
				rt.client.Put(cmd.Context(), fmt.Sprintf("/slides/%d/notes", sid), model.Record{"notes": set}, func(success bool, data any) {
					ok = success
					if r, isRecord := model.AsRecord(data); success && isRecord {
						slide.Notes = model.Normalize(r, "notes").String("notes")
					}
				})
				if err := rt.settle(cmd.Context()); err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					return writeErr(cmd, rt.failure("update notes"))
				}
				return writeOut(cmd, app, map[string]any{"data": slide.Serialize()})
			}

			if raw {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), slide.Notes)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(slide.Notes, width))
			return err
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "Replace the notes with this markdown")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source instead of rendering it")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for rendered notes")
	return cmd
}
