package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"deckhand/internal/model"
)

const presentationColumns = `id, name, description, width, height, owner_id`

func scanPresentation(row interface{ Scan(...any) error }) (*model.Presentation, error) {
	p := &model.Presentation{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Width, &p.Height, &p.OwnerID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPresentations(ctx context.Context) ([]*model.Presentation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+presentationColumns+` FROM presentations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Presentation{}
	for rows.Next() {
		p, err := scanPresentation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPresentation(ctx context.Context, id int64) (*model.Presentation, error) {
	p, err := scanPresentation(s.db.QueryRowContext(ctx, `SELECT `+presentationColumns+` FROM presentations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError{Kind: "presentation", ID: id}
	}
	return p, err
}

// CreatePresentation inserts p and sets its id.
func (s *Store) CreatePresentation(ctx context.Context, p *model.Presentation) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("presentation name is required")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO presentations(name, description, width, height, owner_id) VALUES(?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Width, p.Height, p.OwnerID)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdatePresentation(ctx context.Context, p *model.Presentation) error {
	res, err := s.db.ExecContext(ctx, `UPDATE presentations SET name = ?, description = ?, width = ?, height = ?, owner_id = ? WHERE id = ?`,
		p.Name, p.Description, p.Width, p.Height, p.OwnerID, p.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, "presentation", p.ID)
}

func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
