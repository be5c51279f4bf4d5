package store

import (
	"context"
	"database/sql"
	"errors"

	"deckhand/internal/model"
)

// ListSlides returns the slides of a presentation in order, each with its elements in order.
func (s *Store) ListSlides(ctx context.Context, presentationID int64) ([]*model.Slide, error) {
	if _, err := s.GetPresentation(ctx, presentationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, presentation_id, name, ord, notes FROM slides WHERE presentation_id = ? ORDER BY ord, id`, presentationID)
	if err != nil {
		return nil, err
	}
	out := []*model.Slide{}
	byID := map[int64]*model.Slide{}
	for rows.Next() {
		sl := &model.Slide{}
		if err := rows.Scan(&sl.ID, &sl.PresentationID, &sl.Name, &sl.Order, &sl.Notes); err != nil {
			_ = rows.Close()
			return nil, err
		}
		sl.Elements = []*model.Element{}
		out = append(out, sl)
		byID[sl.ID] = sl
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	erows, err := s.db.QueryContext(ctx, `SELECT `+elementColumns+` FROM elements
		WHERE slide_id IN (SELECT id FROM slides WHERE presentation_id = ?)
		ORDER BY slide_id, ord, id`, presentationID)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		el, err := scanElement(erows)
		if err != nil {
			return nil, err
		}
		if sl := byID[el.SlideID]; sl != nil {
			sl.Elements = append(sl.Elements, el)
		}
	}
	return out, erows.Err()
}

func (s *Store) GetSlide(ctx context.Context, id int64) (*model.Slide, error) {
	sl := &model.Slide{}
	err := s.db.QueryRowContext(ctx, `SELECT id, presentation_id, name, ord, notes FROM slides WHERE id = ?`, id).
		Scan(&sl.ID, &sl.PresentationID, &sl.Name, &sl.Order, &sl.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError{Kind: "slide", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return sl, nil
}

// CreateSlide inserts sl (without its elements) and sets its id.
func (s *Store) CreateSlide(ctx context.Context, sl *model.Slide) error {
	if _, err := s.GetPresentation(ctx, sl.PresentationID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO slides(presentation_id, name, ord, notes) VALUES(?, ?, ?, ?)`,
		sl.PresentationID, sl.Name, sl.Order, sl.Notes)
	if err != nil {
		return err
	}
	sl.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateSlideNotes(ctx context.Context, id int64, notes string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE slides SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "slide", id)
}
