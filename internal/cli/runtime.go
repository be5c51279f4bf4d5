package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"deckhand/internal/api"
	"deckhand/internal/editor"
	"deckhand/internal/logging"
	"deckhand/internal/loop"
	"deckhand/internal/server"
	"deckhand/internal/session"
	"deckhand/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// localBaseURL addresses the in-process server in local-first mode. Requests never leave
// the process.
const localBaseURL = "http://deckhand.local"

// runtime is one editor session for the duration of a command.
type runtime struct {
	loop   *loop.Loop
	http   *api.HTTPClient
	client *recordingClient
	editor *editor.Editor
	logger *zap.Logger

	closers []func()
}

func newRuntime(cmd *cobra.Command, app *App) (*runtime, error) {
	logger, err := logging.NewWriter(cmd.ErrOrStderr(), app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	rt := &runtime{loop: loop.New(), logger: logger}

	opts := []api.Option{
		api.WithLogger(logger.Named("api")),
		api.WithMaxInFlight(app.cfg.MaxInFlight),
		api.WithTimeout(app.cfg.RequestTimeout),
	}
	if base := strings.TrimSpace(app.cfg.Server); base != "" {
		rt.http = api.New(base, &http.Client{}, rt.loop, opts...)
	} else {
		st, err := store.Open(cmd.Context(), app.cfg.DataDir, logger.Named("store"))
		if err != nil {
			return nil, err
		}
		srv := server.New(st, logger.Named("server"))
		rt.closers = append(rt.closers, srv.Close, func() { _ = st.Close() })
		rt.http = api.New(localBaseURL, api.HandlerDoer{Handler: srv.Handler()}, rt.loop, opts...)
	}
	rt.client = &recordingClient{Client: rt.http}
	rt.editor = editor.New(rt.client, session.New(app.cfg.UserID, app.cfg.Email), logger)
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.logger.Sync()
}

// settle runs every pending completion, including the ones they trigger.
func (rt *runtime) settle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return rt.loop.Settle(ctx)
}

// failure turns an unsuccessful outcome into an error, preferring the last error the
// server reported.
func (rt *runtime) failure(what string) error {
	if err := rt.client.LastErr(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return errors.New(what + " failed")
}

// open loads presentation id into the editor.
func (rt *runtime) open(ctx context.Context, id int64) error {
	var openErr error
	opened := false
	rt.editor.Open(ctx, id, func(err error) { opened, openErr = true, err })
	if err := rt.settle(ctx); err != nil {
		return err
	}
	if openErr != nil {
		return openErr
	}
	if !opened {
		return rt.failure("open presentation")
	}
	return nil
}

// recordingClient remembers the error of the most recent failed call so commands can
// report why an optimistic operation did not go through.
type recordingClient struct {
	api.Client

	mu      sync.Mutex
	lastErr error
}

func (c *recordingClient) wrap(cb api.Callback) api.Callback {
	return func(ok bool, data any) {
		if !ok {
			err, _ := data.(error)
			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()
		}
		if cb != nil {
			cb(ok, data)
		}
	}
}

func (c *recordingClient) Get(ctx context.Context, path string, params url.Values, cb api.Callback) {
	c.Client.Get(ctx, path, params, c.wrap(cb))
}

func (c *recordingClient) Post(ctx context.Context, path string, body any, cb api.Callback, opts ...api.CallOption) {
	c.Client.Post(ctx, path, body, c.wrap(cb), opts...)
}

func (c *recordingClient) Put(ctx context.Context, path string, body any, cb api.Callback) {
	c.Client.Put(ctx, path, body, c.wrap(cb))
}

func (c *recordingClient) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, raw)
	}
	return id, nil
}
