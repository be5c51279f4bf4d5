// Package push subscribes to the server's team feed and hands each snapshot to the editor
// loop, where the roster is reconciled.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"deckhand/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Poster queues work on the editor loop. *loop.Loop implements it.
type Poster interface {
	Post(fn func())
}

type Subscriber struct {
	url    string
	loop   Poster
	apply  func([]*model.TeamMember)
	dialer *websocket.Dialer
	logger *zap.Logger
}

type Option func(*Subscriber)

func WithLogger(l *zap.Logger) Option {
	return func(s *Subscriber) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(s *Subscriber) {
		if d != nil {
			s.dialer = d
		}
	}
}

// NewSubscriber returns a subscriber for the team feed at wsURL. apply runs on the loop.
func NewSubscriber(wsURL string, loop Poster, apply func([]*model.TeamMember), opts ...Option) *Subscriber {
	s := &Subscriber{
		url:    wsURL,
		loop:   loop,
		apply:  apply,
		dialer: websocket.DefaultDialer,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TeamFeedURL derives the websocket URL of the team feed from the server's base URL.
func TeamFeedURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/team"
	return u.String(), nil
}

// Run reads snapshots until ctx is done (returning nil) or the connection fails. It does not
// reconnect.
func (s *Subscriber) Run(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial team feed: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read team feed: %w", err)
		}
		team, err := decodeTeam(b)
		if err != nil {
			s.logger.Warn("bad team snapshot", zap.Error(err))
			continue
		}
		s.logger.Debug("team snapshot received", zap.Int("members", len(team)))
		s.loop.Post(func() { s.apply(team) })
	}
}

var errNotList = errors.New("team snapshot is not a list")

func decodeTeam(b []byte) ([]*model.TeamMember, error) {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if _, ok := raw.([]any); !ok {
		return nil, errNotList
	}
	return model.TeamFromRecords(model.AsRecords(raw)), nil
}
