// Package queue defines the notification payloads exchanged over the
// message broker and the consumer that delivers them.
package queue

import "time"

// NotificationsQueue is the durable queue notification events travel on.
const NotificationsQueue = "notifications"

// NotificationEvent is published after a booking, case or payment change
// commits.  Recipients are named by profile id (client, advocate) or by
// user id; the consumer resolves them to users before delivery.
type NotificationEvent struct {
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	ClientID   uint64    `json:"client_id,omitempty"`
	AdvocateID uint64    `json:"advocate_id,omitempty"`
	UserIDs    []uint64  `json:"user_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
