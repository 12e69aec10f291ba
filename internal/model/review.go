package model

import "time"

// Review is a client's rating of an advocate, optionally tied to one of
// their appointments.  (client_id, appointment_id) is unique.
type Review struct {
	ID            uint64    `json:"id"`
	ClientID      uint64    `json:"client_id"`
	AdvocateID    uint64    `json:"advocate_id"`
	AppointmentID *uint64   `json:"appointment_id,omitempty"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationKind groups in-app notifications.
type NotificationKind string

const (
	NotifyAppointment NotificationKind = "APPOINTMENT"
	NotifyCase        NotificationKind = "CASE"
	NotifyPayment     NotificationKind = "PAYMENT"
	NotifyChat        NotificationKind = "CHAT"
	NotifySystem      NotificationKind = "SYSTEM"
)

// Notification is an in-app message stored for one user.
type Notification struct {
	ID        uint64           `json:"id"`
	UserID    uint64           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
