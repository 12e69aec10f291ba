package model

import "time"

// ChatRoom is the message thread between the client and the advocate of
// one appointment.  appointment_id is unique.
type ChatRoom struct {
	ID            uint64    `json:"id"`
	AppointmentID uint64    `json:"appointment_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is one message in a room.  SenderID is a users.id.
type ChatMessage struct {
	ID        uint64    `json:"id"`
	RoomID    uint64    `json:"room_id"`
	SenderID  uint64    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatOpen reports whether participants of an appointment in status s may
// open its room and exchange messages.
func ChatOpen(s AppointmentStatus) bool {
	return s == AppointmentApproved || s == AppointmentCompleted
}
