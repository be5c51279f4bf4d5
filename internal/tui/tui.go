// Package tui is the interactive slide editor. Loop callbacks are delivered to the
// bubbletea program as messages, so every editor mutation happens inside Update.
package tui

import (
	"context"
	"errors"

	"deckhand/internal/editor"
	"deckhand/internal/loop"
	"deckhand/internal/model"
	"deckhand/internal/push"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

var errNoEditor = errors.New("tui: editor and loop are required")

type Options struct {
	Editor *editor.Editor
	Loop   *loop.Loop
	Busy   func() int
	// Server, when set, is the base URL of a remote server whose team feed is followed.
	Server string
	Logger *zap.Logger
}

func Run(ctx context.Context, opts Options) error {
	if opts.Editor == nil || opts.Loop == nil {
		return errNoEditor
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newAppModel(ctx, opts)
	if opts.Server != "" {
		followTeam(ctx, opts, m.logger)
	}

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func followTeam(ctx context.Context, opts Options, logger *zap.Logger) {
	wsURL, err := push.TeamFeedURL(opts.Server)
	if err != nil {
		logger.Warn("team feed disabled", zap.Error(err))
		return
	}
	sub := push.NewSubscriber(wsURL, opts.Loop, func(team []*model.TeamMember) {
		opts.Editor.Collab().ApplyTeam(team)
	}, push.WithLogger(logger.Named("push")))
	go func() {
		if err := sub.Run(ctx); err != nil {
			logger.Warn("team feed stopped", zap.Error(err))
		}
	}()
}
