package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

const (
	maxChatMessage = 4000
	chatPageSize   = 100
)

// chatAccess loads the appointment behind a room and checks that actor is
// one of its two participants.  Callers that cannot see the appointment
// get NotFound, like every other read.
func chatAccess(ctx context.Context, tx repository.Tx, actor model.Actor, appointmentID uint64, lock bool) (*model.Appointment, error) {
	a, err := tx.GetAppointment(ctx, appointmentID, lock)
	if err != nil {
		return nil, missing(err, "appointment")
	}
	if !a.IsActive || !canView(actor, a) {
		return nil, NotFoundError("appointment not found")
	}
	if !actor.IsClient(a.ClientID) && !actor.IsAdvocate(a.AdvocateID) {
		return nil, AuthorizationError("only the client and advocate of this appointment can chat")
	}
	if !model.ChatOpen(a.Status) {
		return nil, ValidationError("chat is available only for approved or completed appointments")
	}
	return a, nil
}

// OpenChatRoom returns the chat room of an APPROVED or COMPLETED
// appointment, creating it on first use.
func (s *Service) OpenChatRoom(ctx context.Context, actor model.Actor, appointmentID uint64) (*model.ChatRoom, error) {
	var room *model.ChatRoom
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		// The appointment row lock serializes concurrent first opens.
		a, err := chatAccess(ctx, tx, actor, appointmentID, true)
		if err != nil {
			return err
		}
		room, err = tx.GetChatRoomByAppointment(ctx, a.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		room = &model.ChatRoom{AppointmentID: a.ID}
		if err := tx.InsertChatRoom(ctx, room); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError("chat room is being opened, retry")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// roomAccess resolves a room id to the room and its appointment for actor.
func roomAccess(ctx context.Context, tx repository.Tx, actor model.Actor, roomID uint64) (*model.ChatRoom, *model.Appointment, error) {
	room, err := tx.GetChatRoom(ctx, roomID)
	if err != nil {
		return nil, nil, missing(err, "chat room")
	}
	a, err := chatAccess(ctx, tx, actor, room.AppointmentID, false)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, nil, NotFoundError("chat room not found")
		}
		return nil, nil, err
	}
	return room, a, nil
}

// SendChatMessage posts text to a room as actor and notifies the other
// participant.
func (s *Service) SendChatMessage(ctx context.Context, actor model.Actor, roomID uint64, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ValidationError("message text is required")
	}
	if utf8.RuneCountInString(text) > maxChatMessage {
		return nil, ValidationError("message exceeds %d characters", maxChatMessage)
	}
	var (
		msg  *model.ChatMessage
		appt *model.Appointment
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		room, a, err := roomAccess(ctx, tx, actor, roomID)
		if err != nil {
			return err
		}
		m := &model.ChatMessage{RoomID: room.ID, SenderID: actor.UserID, Text: text}
		if err := tx.InsertChatMessage(ctx, m); err != nil {
			return err
		}
		msg, appt = m, a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, chatEvent(actor, appt))
	return msg, nil
}

// ListChatMessages returns a page of messages newer than afterID, oldest
// first.
func (s *Service) ListChatMessages(ctx context.Context, actor model.Actor, roomID, afterID uint64) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		room, _, err := roomAccess(ctx, tx, actor, roomID)
		if err != nil {
			return err
		}
		out, err = tx.ListChatMessages(ctx, room.ID, afterID, chatPageSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// chatEvent addresses the participant who did not send the message.
func chatEvent(sender model.Actor, a *model.Appointment) queue.NotificationEvent {
	ev := queue.NotificationEvent{
		Kind:    string(model.NotifyChat),
		Title:   "New message",
		Message: fmt.Sprintf("New message about appointment #%d.", a.ID),
	}
	if sender.IsClient(a.ClientID) {
		ev.AdvocateID = a.AdvocateID
	} else {
		ev.ClientID = a.ClientID
	}
	return ev
}
