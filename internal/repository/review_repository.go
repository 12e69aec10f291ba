package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// ReviewRepo provides access to advocate reviews.
type ReviewRepo struct {
	q querier
}

// NewReviewRepo returns a ReviewRepo bound to db.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{q: db} }

// InsertReview stores rv; a second review of the same appointment by the
// same client yields ErrDuplicate.
func (r *ReviewRepo) InsertReview(ctx context.Context, rv *model.Review) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO reviews (client_id, advocate_id, appointment_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
		rv.ClientID, rv.AdvocateID, rv.AppointmentID, rv.Rating, rv.Comment)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM reviews WHERE id = ?`, id).Scan(&rv.CreatedAt)
}

// ListReviews returns an advocate's reviews, newest first.
func (r *ReviewRepo) ListReviews(ctx context.Context, advocateID uint64) ([]model.Review, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, client_id, advocate_id, appointment_id, rating, comment, created_at
		 FROM reviews WHERE advocate_id = ? ORDER BY created_at DESC, id DESC`, advocateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var (
			rv    model.Review
			appID sql.NullInt64
		)
		if err := rows.Scan(&rv.ID, &rv.ClientID, &rv.AdvocateID, &appID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		if appID.Valid {
			v := uint64(appID.Int64)
			rv.AppointmentID = &v
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
