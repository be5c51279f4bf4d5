package cli

import (
	"os"
	"path/filepath"

	"deckhand/internal/tui"

	"github.com/spf13/cobra"
)

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <presentation-id>",
		Short: "Open a presentation in the interactive editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("presentation", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			// Logs would draw over the alt screen, so the session logs to a file.
			logFile, err := openEditLog(app.cfg.DataDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer logFile.Close()
			stderr := cmd.ErrOrStderr()
			cmd.SetErr(logFile)
			rt, err := newRuntime(cmd, app)
			cmd.SetErr(stderr)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if err := rt.open(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return tui.Run(cmd.Context(), tui.Options{
				Editor: rt.editor,
				Loop:   rt.loop,
				Busy:   rt.http.Busy,
				Server: app.cfg.Server,
				Logger: rt.logger.Named("tui"),
			})
		},
	}
}

func openEditLog(dataDir string) (*os.File, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dataDir, "edit.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
