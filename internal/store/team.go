package store

import (
	"context"
	"errors"
	"strings"

	"deckhand/internal/model"
)

var ErrDuplicateMember = errors.New("team member already exists")

func (s *Store) ListTeam(ctx context.Context) ([]*model.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, first_name, last_name, avatar_url FROM team_members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.TeamMember{}
	for rows.Next() {
		m := &model.TeamMember{}
		if err := rows.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &m.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddMember inserts m and sets its id. Emails are unique, compared case-insensitively.
func (s *Store) AddMember(ctx context.Context, m *model.TeamMember) error {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if m.Email == "" {
		return errors.New("member email is required")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM team_members WHERE email = ?`, m.Email).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateMember
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO team_members(email, first_name, last_name, avatar_url) VALUES(?, ?, ?, ?)`,
		m.Email, m.FirstName, m.LastName, m.AvatarURL)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *Store) RemoveMember(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM team_members WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "team member", id)
}

// UpdateMember replaces the profile fields of member m.ID and refreshes m from the stored
// row. The email identifies the member and is not changed.
func (s *Store) UpdateMember(ctx context.Context, m *model.TeamMember) error {
	res, err := s.db.ExecContext(ctx, `UPDATE team_members SET first_name = ?, last_name = ?, avatar_url = ? WHERE id = ?`,
		strings.TrimSpace(m.FirstName), strings.TrimSpace(m.LastName), strings.TrimSpace(m.AvatarURL), m.ID)
	if err != nil {
		return err
	}
	if err := requireAffected(res, "team member", m.ID); err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx, `SELECT email, first_name, last_name, avatar_url FROM team_members WHERE id = ?`, m.ID).
		Scan(&m.Email, &m.FirstName, &m.LastName, &m.AvatarURL)
}
