package cli

import (
	"fmt"
	"os"
	"strings"

	"deckhand/internal/config"
	"deckhand/internal/format"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Server     string
	UserID     int64
	Email      string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "deckhand",
		Short:        "Deckhand presentation editor (local-first CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a presentation and open it in the editor
  deckhand presentations create --name "Q3 review"
  deckhand edit 1

  # Scriptable commands
  deckhand slides add 1 --name Intro
  deckhand elements add 1 1 --name Title --kind text

  # Serve a data dir to other editors
  deckhand serve --listen 127.0.0.1:7420
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return writeErr(cmd, err)
		}
		flags := cmd.Flags()
		if flags.Changed("dir") || app.Dir != "" {
			cfg.DataDir = app.Dir
		}
		if flags.Changed("server") || app.Server != "" {
			cfg.Server = app.Server
		}
		if flags.Changed("user") {
			cfg.UserID = app.UserID
		}
		if flags.Changed("email") {
			cfg.Email = app.Email
		}
		if app.Verbose {
			cfg.LogLevel = "debug"
		}
		app.cfg = cfg
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("DECKHAND_DIR", ""), "Data dir for local-first mode (default: .deckhand)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("DECKHAND_SERVER", ""), "Base URL of a deckhand server (default: local-first)")
	cmd.PersistentFlags().Int64Var(&app.UserID, "user", 0, "Signed-in user id")
	cmd.PersistentFlags().StringVar(&app.Email, "email", "", "Signed-in user email")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DECKHAND_FORMAT", "json"), "Output format ("+strings.Join(format.Formats, "|")+")")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPresentationsCmd(app))
	cmd.AddCommand(newSlidesCmd(app))
	cmd.AddCommand(newElementsCmd(app))
	cmd.AddCommand(newTeamCmd(app))
	cmd.AddCommand(newShareCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
