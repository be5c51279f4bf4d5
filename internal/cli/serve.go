package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"deckhand/internal/logging"
	"deckhand/internal/server"
	"deckhand/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the data dir to other deckhand editors",
		Long: strings.TrimSpace(`
Serve the local data dir over HTTP so editors started with --server share it.

Team changes are pushed to connected editors over a websocket (GET /ws/team).
`),
		Example: strings.TrimSpace(`
# Serve on localhost
deckhand serve --listen 127.0.0.1:7420

# Point an editor at it
deckhand --server http://127.0.0.1:7420 team watch
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.cfg.Listen
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --listen"))
			}

			logger, err := logging.New(app.cfg.LogLevel)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(ctx, app.cfg.DataDir, logger.Named("store"))
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv := server.New(st, logger.Named("server"))
			defer srv.Close()

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"dir":       st.Dir,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "deckhand serving %s at %s\n", st.Dir, url)

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				// Websocket handlers end when the hub closes; give plain requests a moment.
				srv.Close()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := hs.Shutdown(shutdownCtx); err != nil {
					logger.Warn("shutdown", zap.Error(err))
				}
			}()
			if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "listen", "", "Bind address (host:port or :port; default from config)")
	return cmd
}
