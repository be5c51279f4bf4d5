package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"deckhand/internal/collab"
	"deckhand/internal/events"
	"deckhand/internal/model"
	"deckhand/internal/push"

	"github.com/spf13/cobra"
)

func newTeamCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Collaborator roster commands",
	}
	cmd.AddCommand(newTeamListCmd(app))
	cmd.AddCommand(newTeamAddCmd(app))
	cmd.AddCommand(newTeamEditCmd(app))
	cmd.AddCommand(newTeamRemoveCmd(app))
	cmd.AddCommand(newTeamWatchCmd(app))
	return cmd
}

func teamRecords(members []*model.TeamMember) []model.Record {
	out := make([]model.Record, 0, len(members))
	for _, m := range members {
		out = append(out, m.Serialize())
	}
	return out
}

func reloadTeam(ctx context.Context, rt *runtime) error {
	ok := false
	rt.editor.Collab().ReloadTeam(ctx, func(success bool) { ok = success })
	if err := rt.settle(ctx); err != nil {
		return err
	}
	if !ok {
		return rt.failure("load team")
	}
	return nil
}

func newTeamListCmd(app *App) *cobra.Command {
	var others bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collaborators",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := reloadTeam(cmd.Context(), rt); err != nil {
				return writeErr(cmd, err)
			}
			members := rt.editor.Collab().Team()
			if others {
				members = rt.editor.Collab().Others()
			}
			return writeOut(cmd, app, map[string]any{"data": teamRecords(members)})
		},
	}
	cmd.Flags().BoolVar(&others, "others", false, "Exclude the signed-in user")
	return cmd
}

func newTeamAddCmd(app *App) *cobra.Command {
	var email, first, last string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a collaborator",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			var delta collab.Delta
			remove := rt.editor.Bus().AddEventListener(events.TeamUpdated, func(p any) {
				if u, ok := p.(collab.TeamUpdate); ok {
					delta = u.Delta
				}
			})
			defer remove()

			// Reconcile against the current team first so the delta only shows the new member.
			if err := reloadTeam(cmd.Context(), rt); err != nil {
				return writeErr(cmd, err)
			}
			ok := false
			rt.editor.Collab().AddMember(cmd.Context(), email, first, last, func(success bool) { ok = success })
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("add member"))
			}
			return writeOut(cmd, app, map[string]any{
				"data": teamRecords(rt.editor.Collab().Team()),
				"meta": map[string]any{"added": teamRecords(delta.Added)},
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&first, "first-name", "", "First name")
	cmd.Flags().StringVar(&last, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newTeamEditCmd(app *App) *cobra.Command {
	var first, last, avatar string

	cmd := &cobra.Command{
		Use:   "edit <member-id>",
		Short: "Update a collaborator's profile fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := reloadTeam(cmd.Context(), rt); err != nil {
				return writeErr(cmd, err)
			}
			live, ok := rt.editor.Collab().Roster().Find(id)
			if !ok {
				return writeErr(cmd, errNotFound("team member", id))
			}
			edit := model.TeamMemberFromRecord(live.Serialize())
			if cmd.Flags().Changed("first-name") {
				edit.FirstName = first
			}
			if cmd.Flags().Changed("last-name") {
				edit.LastName = last
			}
			if cmd.Flags().Changed("avatar-url") {
				edit.AvatarURL = avatar
			}

			ok = false
			rt.editor.Collab().UpdateMember(cmd.Context(), edit, func(success bool) { ok = success })
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("update member"))
			}
			return writeOut(cmd, app, map[string]any{"data": live.Serialize()})
		},
	}
	cmd.Flags().StringVar(&first, "first-name", "", "First name")
	cmd.Flags().StringVar(&last, "last-name", "", "Last name")
	cmd.Flags().StringVar(&avatar, "avatar-url", "", "Avatar URL")
	return cmd
}

func newTeamRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <member-id>",
		Short: "Remove a collaborator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := reloadTeam(cmd.Context(), rt); err != nil {
				return writeErr(cmd, err)
			}
			if _, ok := rt.editor.Collab().Roster().Find(id); !ok {
				return writeErr(cmd, errNotFound("team member", id))
			}
			var delta collab.Delta
			ok := false
			rt.client.Post(cmd.Context(), fmt.Sprintf("/team/%d/remove", id), nil, func(success bool, data any) {
				ok = success
				if success {
					delta = rt.editor.Collab().ApplyTeam(model.TeamFromRecords(model.AsRecords(data)))
				}
			})
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("remove member"))
			}
			return writeOut(cmd, app, map[string]any{
				"data": teamRecords(rt.editor.Collab().Team()),
				"meta": map[string]any{"removed": teamRecords(delta.Removed)},
			})
		},
	}
}

func newTeamWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow team changes pushed by a deckhand server (needs --server)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Server == "" {
				return writeErr(cmd, errors.New("team watch needs --server"))
			}
			feedURL, err := push.TeamFeedURL(app.cfg.Server)
			if err != nil {
				return writeErr(cmd, err)
			}
			rt, err := newRuntime(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.editor.Bus().AddEventListener(events.TeamUpdated, func(p any) {
				u, ok := p.(collab.TeamUpdate)
				if !ok {
					return
				}
				_ = writeOut(cmd, app, map[string]any{
					"data": teamRecords(u.Members),
					"meta": map[string]any{
						"added":   teamRecords(u.Delta.Added),
						"removed": teamRecords(u.Delta.Removed),
					},
				})
			})

			sub := push.NewSubscriber(feedURL, rt.loop, func(team []*model.TeamMember) {
				rt.editor.Collab().ApplyTeam(team)
			}, push.WithLogger(rt.logger.Named("push")))

			errCh := make(chan error, 1)
			go func() {
				errCh <- sub.Run(ctx)
				stop()
			}()
			_ = rt.loop.Run(ctx)
			err = <-errCh
			// Apply snapshots that arrived just before the feed closed.
			_ = rt.settle(context.Background())
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}
