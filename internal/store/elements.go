package store

import (
	"context"
	"database/sql"
	"errors"

	"deckhand/internal/model"
)

const elementColumns = `id, slide_id, name, kind, ord, x, y, width, height, locked, copied, content`

func scanElement(row interface{ Scan(...any) error }) (*model.Element, error) {
	el := &model.Element{}
	var kind string
	var locked, copied int
	if err := row.Scan(&el.ID, &el.SlideID, &el.Name, &kind, &el.Order, &el.X, &el.Y, &el.Width, &el.Height, &locked, &copied, &el.Content); err != nil {
		return nil, err
	}
	el.Kind = model.ElementKind(kind)
	el.Locked = locked != 0
	el.Copied = copied != 0
	return el, nil
}

func (s *Store) GetElement(ctx context.Context, id int64) (*model.Element, error) {
	el, err := scanElement(s.db.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM elements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError{Kind: "element", ID: id}
	}
	return el, err
}

// CreateElement inserts el into its slide and sets its id. The order the client chose is
// stored as is.
func (s *Store) CreateElement(ctx context.Context, el *model.Element) error {
	if _, err := s.GetSlide(ctx, el.SlideID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO elements(slide_id, name, kind, ord, x, y, width, height, locked, copied, content)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		el.SlideID, el.Name, string(el.Kind), el.Order, el.X, el.Y, el.Width, el.Height, boolToInt(el.Locked), boolToInt(el.Copied), el.Content)
	if err != nil {
		return err
	}
	el.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateElement(ctx context.Context, el *model.Element) error {
	if _, err := s.GetSlide(ctx, el.SlideID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE elements SET slide_id = ?, name = ?, kind = ?, ord = ?, x = ?, y = ?, width = ?, height = ?, locked = ?, copied = ?, content = ?
		WHERE id = ?`,
		el.SlideID, el.Name, string(el.Kind), el.Order, el.X, el.Y, el.Width, el.Height, boolToInt(el.Locked), boolToInt(el.Copied), el.Content, el.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, "element", el.ID)
}
