package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct {
	q querier
}

// NewNotificationRepo returns a NotificationRepo bound to db.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{q: db} }

func (r *NotificationRepo) InsertNotification(ctx context.Context, n *model.Notification) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO notifications (user_id, title, message, kind) VALUES (?, ?, ?, ?)`,
		n.UserID, n.Title, n.Message, string(n.Kind))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListNotifications returns the latest 100 notifications of a user.
func (r *NotificationRepo) ListNotifications(ctx context.Context, userID uint64) ([]model.Notification, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, title, message, kind, is_read, created_at
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 100`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var (
			n    model.Notification
			kind string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = model.NotificationKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks one notification of userID as read.  A
// notification owned by another user is reported as ErrNotFound.
func (r *NotificationRepo) MarkNotificationRead(ctx context.Context, userID, id uint64) error {
	var owner uint64
	err := r.q.QueryRowContext(ctx, `SELECT user_id FROM notifications WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	return err
}
