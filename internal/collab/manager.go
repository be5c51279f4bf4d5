// Package collab keeps the collaborator roster and per-presentation sharing status in step
// with the server.
package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deckhand/internal/api"
	"deckhand/internal/events"
	"deckhand/internal/loop"
	"deckhand/internal/model"
	"deckhand/internal/session"

	"go.uber.org/zap"
)

var ErrNoStatus = errors.New("no sharing status")

// TeamUpdate is the payload of events.TeamUpdated.
type TeamUpdate struct {
	Members []*model.TeamMember
	Delta   Delta
}

type Manager struct {
	client  api.Client
	bus     *events.Bus
	session session.Context
	logger  *zap.Logger

	roster *Roster
	cache  *StatusCache

	teamEpoch    loop.Epoch
	sharingEpoch loop.Epoch
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(client api.Client, bus *events.Bus, sess session.Context, opts ...Option) *Manager {
	m := &Manager{
		client:  client,
		bus:     bus,
		session: sess,
		logger:  zap.NewNop(),
		roster:  NewRoster(),
		cache:   NewStatusCache(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Roster() *Roster           { return m.roster }
func (m *Manager) Cache() *StatusCache       { return m.cache }
func (m *Manager) Team() []*model.TeamMember { return m.roster.Members() }

// Others is the roster without the signed-in user. With an anonymous session it is the
// whole roster.
func (m *Manager) Others() []*model.TeamMember {
	out := make([]*model.TeamMember, 0, m.roster.Len())
	for _, member := range m.roster.Members() {
		if m.session.IsSelf(member.ID) {
			continue
		}
		out = append(out, member)
	}
	return out
}

// ApplyTeam reconciles the roster against a snapshot delivered from outside a reload, such
// as a push, and notifies listeners once. The snapshot supersedes any reload in flight.
func (m *Manager) ApplyTeam(incoming []*model.TeamMember) Delta {
	m.teamEpoch.Advance()
	return m.applyTeam(incoming)
}

func (m *Manager) applyTeam(incoming []*model.TeamMember) Delta {
	d := m.roster.Apply(incoming)
	m.logger.Debug("team reconciled",
		zap.Int("members", m.roster.Len()),
		zap.Int("added", len(d.Added)),
		zap.Int("removed", len(d.Removed)))
	m.notifyTeam(d)
	return d
}

func (m *Manager) notifyTeam(d Delta) {
	members := append([]*model.TeamMember(nil), m.roster.Members()...)
	m.bus.DispatchEvent(events.TeamUpdated, TeamUpdate{Members: members, Delta: d})
}

// ReloadTeam fetches the team and reconciles it. A newer reload or an applied snapshot
// supersedes a reload still in flight.
func (m *Manager) ReloadTeam(ctx context.Context, done func(ok bool)) {
	m.teamEpoch.Advance()
	tok := m.teamEpoch.Begin()
	m.client.Get(ctx, "/team", nil, func(ok bool, data any) {
		if !m.teamEpoch.Current(tok) {
			m.logger.Debug("stale team reload dropped")
			return
		}
		if ok {
			m.applyTeam(model.TeamFromRecords(model.AsRecords(data)))
		}
		if done != nil {
			done(ok)
		}
	})
}

// UpdateMember persists profile changes of a member already on the roster and copies the
// confirmed fields onto the roster entry, keeping its identity. Reconciliation never
// touches member fields; this is the path that does.
func (m *Manager) UpdateMember(ctx context.Context, member *model.TeamMember, done func(ok bool)) {
	finish := func(ok bool) {
		if done != nil {
			done(ok)
		}
	}
	if member == nil || member.ID == model.UnsetID {
		finish(false)
		return
	}
	if _, ok := m.roster.Find(member.ID); !ok {
		finish(false)
		return
	}
	m.client.Put(ctx, fmt.Sprintf("/team/%d", member.ID), member.Serialize(), func(ok bool, data any) {
		if !ok {
			m.logger.Warn("member update failed", zap.Int64("member", member.ID), zap.Any("error", data))
			finish(false)
			return
		}
		confirmed := member
		if r, isRecord := model.AsRecord(data); isRecord {
			confirmed = model.TeamMemberFromRecord(r)
			confirmed.ID = member.ID
		}
		if m.roster.Update(confirmed) {
			m.notifyTeam(Delta{})
		}
		finish(true)
	})
}

// AddMember asks the server to add a collaborator and reloads the team on success.
func (m *Manager) AddMember(ctx context.Context, email, firstName, lastName string, done func(ok bool)) {
	email = strings.TrimSpace(email)
	if email == "" {
		if done != nil {
			done(false)
		}
		return
	}
	body := model.Record{"email": email, "firstName": firstName, "lastName": lastName}
	m.client.Post(ctx, "/team", body, func(ok bool, _ any) {
		if !ok {
			if done != nil {
				done(false)
			}
			return
		}
		m.ReloadTeam(ctx, done)
	})
}

func (m *Manager) GetStatus(key int64) *model.SharingStatus {
	return m.cache.Get(key)
}

// LoadSharingStatus fetches the sharing status of one presentation into the cache.
func (m *Manager) LoadSharingStatus(ctx context.Context, key int64, done func(ok bool)) {
	tok := m.sharingEpoch.Begin()
	m.client.Get(ctx, fmt.Sprintf("/sharing/%d", key), nil, func(ok bool, data any) {
		if !m.sharingEpoch.Current(tok) {
			m.logger.Debug("stale sharing load dropped", zap.Int64("presentation", key))
			return
		}
		if ok {
			if r, isRecord := model.AsRecord(data); isRecord {
				status := model.SharingStatusFromRecord(r)
				status.PresentationID = key
				m.bus.DispatchEvent(events.SharingUpdated, m.cache.Merge(key, status))
			}
		}
		if done != nil {
			done(ok)
		}
	})
}

// ReloadSharing drops every cached status and fetches keys again. The cache is cleared
// first so that a reload failing halfway never leaves stale entries behind.
func (m *Manager) ReloadSharing(ctx context.Context, keys []int64, done func(ok bool)) {
	m.sharingEpoch.Advance()
	m.cache.RemoveAll()
	if len(keys) == 0 {
		if done != nil {
			done(true)
		}
		return
	}
	remaining := len(keys)
	allOK := true
	for _, key := range keys {
		m.LoadSharingStatus(ctx, key, func(ok bool) {
			allOK = allOK && ok
			remaining--
			if remaining == 0 && done != nil {
				done(allOK)
			}
		})
	}
}

// UpdateSharingStatus merges override (when given) into the cache and persists the
// resulting status. onComplete is called exactly once; without a resolvable status it is
// called with false immediately and nothing is sent.
func (m *Manager) UpdateSharingStatus(ctx context.Context, key int64, override *model.SharingStatus, onComplete func(ok bool), background bool) {
	finish := func(ok bool) {
		if onComplete != nil {
			onComplete(ok)
		}
	}

	if override != nil {
		override.PresentationID = key
		m.cache.Merge(key, override)
	}

	status := m.cache.Get(key)
	if status == nil {
		m.logger.Debug("sharing update without status", zap.Int64("presentation", key), zap.Error(ErrNoStatus))
		finish(false)
		return
	}

	body := status.Serialize()
	body["presentationId"] = key
	m.client.Post(ctx, "/sharing", body, func(ok bool, _ any) {
		if ok {
			m.bus.DispatchEvent(events.SharingUpdated, status)
		}
		finish(ok)
	}, api.BackgroundIf(background))
}

// Invite adds a pending invitation for email to the presentation's sharing status.
func (m *Manager) Invite(ctx context.Context, key int64, email string, onComplete func(ok bool)) {
	email = strings.TrimSpace(email)
	if email == "" {
		if onComplete != nil {
			onComplete(false)
		}
		return
	}
	override := m.overrideFor(key)
	for _, u := range override.Users {
		if strings.EqualFold(u.InviteEmail, email) {
			m.UpdateSharingStatus(ctx, key, override, onComplete, false)
			return
		}
	}
	override.Users = append(override.Users, &model.SharingUser{InviteEmail: email})
	m.UpdateSharingStatus(ctx, key, override, onComplete, false)
}

// Revoke removes userID from the presentation's sharing status.
func (m *Manager) Revoke(ctx context.Context, key int64, userID int64, onComplete func(ok bool)) {
	override := m.overrideFor(key)
	users := override.Users[:0]
	for _, u := range override.Users {
		if u.UserID != userID {
			users = append(users, u)
		}
	}
	override.Users = users
	m.UpdateSharingStatus(ctx, key, override, onComplete, false)
}

func (m *Manager) overrideFor(key int64) *model.SharingStatus {
	if cached := m.cache.Get(key); cached != nil {
		return cached.Clone()
	}
	return &model.SharingStatus{PresentationID: key}
}
