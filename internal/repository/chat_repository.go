package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// ChatRepo provides access to appointment chat rooms and their messages.
type ChatRepo struct {
	q querier
}

// NewChatRepo returns a ChatRepo bound to db.
func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{q: db} }

// InsertChatRoom stores room; a second room for the same appointment
// yields ErrDuplicate.
func (r *ChatRepo) InsertChatRoom(ctx context.Context, room *model.ChatRoom) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO chat_rooms (appointment_id) VALUES (?)`, room.AppointmentID)
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
	room.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM chat_rooms WHERE id = ?`, id).Scan(&room.CreatedAt)
}

func scanChatRoom(row *sql.Row) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := row.Scan(&room.ID, &room.AppointmentID, &room.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetChatRoom looks a room up by id.
func (r *ChatRepo) GetChatRoom(ctx context.Context, id uint64) (*model.ChatRoom, error) {
	return scanChatRoom(r.q.QueryRowContext(ctx,
		`SELECT id, appointment_id, created_at FROM chat_rooms WHERE id = ?`, id))
}

// GetChatRoomByAppointment returns the room of an appointment, if opened.
func (r *ChatRepo) GetChatRoomByAppointment(ctx context.Context, appointmentID uint64) (*model.ChatRoom, error) {
	return scanChatRoom(r.q.QueryRowContext(ctx,
		`SELECT id, appointment_id, created_at FROM chat_rooms WHERE appointment_id = ?`, appointmentID))
}

// InsertChatMessage appends m to its room.
func (r *ChatRepo) InsertChatMessage(ctx context.Context, m *model.ChatMessage) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO chat_messages (room_id, sender_id, body) VALUES (?, ?, ?)`, m.RoomID, m.SenderID, m.Text)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM chat_messages WHERE id = ?`, id).Scan(&m.CreatedAt)
}

// ListChatMessages returns up to limit messages of a room with an id
// greater than afterID, oldest first.
func (r *ChatRepo) ListChatMessages(ctx context.Context, roomID, afterID uint64, limit int) ([]model.ChatMessage, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, room_id, sender_id, body, created_at
		 FROM chat_messages WHERE room_id = ? AND id > ?
		 ORDER BY id LIMIT ?`, roomID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
