package cli

import (
	"context"

	"deckhand/internal/model"

	"github.com/spf13/cobra"
)

func newShareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "share",
		Aliases: []string{"sharing"},
		Short:   "Presentation sharing commands",
	}
	cmd.AddCommand(newShareShowCmd(app))
	cmd.AddCommand(newShareInviteCmd(app))
	cmd.AddCommand(newShareRevokeCmd(app))
	return cmd
}

func loadSharing(ctx context.Context, rt *runtime, id int64) error {
	ok := false
	rt.editor.Collab().ReloadSharing(ctx, []int64{id}, func(success bool) { ok = success })
	if err := rt.settle(ctx); err != nil {
		return err
	}
	if !ok {
		return rt.failure("load sharing status")
	}
	return nil
}

func sharingOut(rt *runtime, id int64) model.Record {
	if st := rt.editor.Collab().GetStatus(id); st != nil {
		return st.Serialize()
	}
	return (&model.SharingStatus{PresentationID: id, Users: []*model.SharingUser{}}).Serialize()
}

func newShareShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <presentation-id>",
		Short: "Show who a presentation is shared with",
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

			if err := loadSharing(cmd.Context(), rt, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": sharingOut(rt, id)})
		},
	}
}

func newShareInviteCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "invite <presentation-id>",
		Short: "Invite someone by email",
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

			if err := loadSharing(cmd.Context(), rt, id); err != nil {
				return writeErr(cmd, err)
			}
			ok := false
			rt.editor.Collab().Invite(cmd.Context(), id, email, func(success bool) { ok = success })
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("invite"))
			}
			return writeOut(cmd, app, map[string]any{"data": sharingOut(rt, id)})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email to invite")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newShareRevokeCmd(app *App) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "revoke <presentation-id>",
		Short: "Revoke a user's access",
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

			if err := loadSharing(cmd.Context(), rt, id); err != nil {
				return writeErr(cmd, err)
			}
			ok := false
			rt.editor.Collab().Revoke(cmd.Context(), id, userID, func(success bool) { ok = success })
			if err := rt.settle(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, rt.failure("revoke"))
			}
			return writeOut(cmd, app, map[string]any{"data": sharingOut(rt, id)})
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "User id to revoke")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
