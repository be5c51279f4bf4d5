package store

import (
	"context"
	"database/sql"

	"deckhand/internal/model"
)

// GetSharing returns the sharing status of a presentation; a presentation nobody was
// invited to has an empty user list.
func (s *Store) GetSharing(ctx context.Context, presentationID int64) (*model.SharingStatus, error) {
	if _, err := s.GetPresentation(ctx, presentationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, invite_email, accepted FROM sharing_users WHERE presentation_id = ? ORDER BY pos`, presentationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &model.SharingStatus{PresentationID: presentationID, Users: []*model.SharingUser{}}
	for rows.Next() {
		u := &model.SharingUser{}
		var accepted int
		if err := rows.Scan(&u.UserID, &u.InviteEmail, &accepted); err != nil {
			return nil, err
		}
		u.Accepted = accepted != 0
		st.Users = append(st.Users, u)
	}
	return st, rows.Err()
}

// ReplaceSharing stores st as the complete sharing status of its presentation.
func (s *Store) ReplaceSharing(ctx context.Context, st *model.SharingStatus) error {
	if _, err := s.GetPresentation(ctx, st.PresentationID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sharing_users WHERE presentation_id = ?`, st.PresentationID); err != nil {
		return err
	}
	for i, u := range st.Users {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sharing_users(presentation_id, pos, user_id, invite_email, accepted) VALUES(?, ?, ?, ?, ?)`,
			st.PresentationID, i, u.UserID, u.InviteEmail, boolToInt(u.Accepted)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
