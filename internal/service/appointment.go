package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// BookingRequest is a client's request for a consultation slot.  A zero
// DurationMinutes means the default duration.
type BookingRequest struct {
	AdvocateID         uint64
	Date               time.Time
	StartTime          model.TimeOfDay
	DurationMinutes    int
	ProblemDescription string
}

// RescheduleRequest moves an appointment.  A zero DurationMinutes keeps
// the current duration.
type RescheduleRequest struct {
	Date            time.Time
	StartTime       model.TimeOfDay
	DurationMinutes int
}

// CreateAppointment books a PENDING appointment for the acting client.
// The advocate row is locked for the conflict check and the insert, so
// two bookings for one advocate never both pass the check.
func (s *Service) CreateAppointment(ctx context.Context, actor model.Actor, req BookingRequest) (*model.Appointment, error) {
	if actor.Role != model.RoleClient || actor.ClientID == nil {
		return nil, AuthorizationError("only clients can book appointments")
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.defaultDuration
	}
	slot := Slot{Date: model.CivilDate(req.Date), Start: req.StartTime, Duration: req.DurationMinutes}
	if err := s.validateSlot(slot); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(req.ProblemDescription)
	if desc == "" {
		return nil, ValidationError("problem description is required")
	}

	var appt *model.Appointment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		adv, err := tx.LockAdvocate(ctx, req.AdvocateID)
		if err != nil {
			return missing(err, "advocate")
		}
		if !adv.Verified {
			return ValidationError("advocate is not verified")
		}
		if err := checkConflicts(ctx, tx, adv.ID, slot, 0); err != nil {
			return err
		}
		a := &model.Appointment{
			AdvocateID:         adv.ID,
			ClientID:           *actor.ClientID,
			Date:               slot.Date,
			StartTime:          slot.Start,
			DurationMinutes:    slot.Duration,
			ProblemDescription: desc,
			Status:             model.AppointmentPending,
			FeeCents:           adv.ConsultationFeeCents,
			IsActive:           true,
		}
		if err := tx.InsertAppointment(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError(overlapMessage)
			}
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, appointmentEvent(appt, "New appointment request",
		fmt.Sprintf("Appointment requested for %s at %s.", appt.Date.Format(model.DateLayout), appt.StartTime.Short())))
	return appt, nil
}

// RescheduleAppointment moves an appointment owned by the acting client or
// advocate.  The status is preserved; an APPROVED appointment stays
// APPROVED.  The advocate need not be verified.
func (s *Service) RescheduleAppointment(ctx context.Context, actor model.Actor, id uint64, req RescheduleRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetAppointment(ctx, id, false)
		if err != nil {
			return missing(err, "appointment")
		}
		if !actor.IsClient(current.ClientID) && !actor.IsAdvocate(current.AdvocateID) {
			return AuthorizationError("only the client or advocate of this appointment can reschedule it")
		}
		// Advocate first, then the appointment row: the same order
		// CreateAppointment takes.
		if _, err := tx.LockAdvocate(ctx, current.AdvocateID); err != nil {
			return missing(err, "advocate")
		}
		a, err := tx.GetAppointment(ctx, id, true)
		if err != nil {
			return missing(err, "appointment")
		}
		if !a.IsActive {
			return NotFoundError("appointment not found")
		}
		if !a.Status.Blocking() {
			return ValidationError("cannot modify a terminal appointment")
		}
		duration := req.DurationMinutes
		if duration == 0 {
			duration = a.DurationMinutes
		}
		slot := Slot{Date: model.CivilDate(req.Date), Start: req.StartTime, Duration: duration}
		if err := s.validateSlot(slot); err != nil {
			return err
		}
		if err := checkConflicts(ctx, tx, a.AdvocateID, slot, a.ID); err != nil {
			return err
		}
		a.Date, a.StartTime, a.DurationMinutes = slot.Date, slot.Start, slot.Duration
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError(overlapMessage)
			}
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, appointmentEvent(appt, "Appointment rescheduled",
		fmt.Sprintf("Appointment #%d moved to %s at %s.", appt.ID, appt.Date.Format(model.DateLayout), appt.StartTime.Short())))
	return appt, nil
}

var advocateTargets = []model.AppointmentStatus{
	model.AppointmentApproved, model.AppointmentRejected, model.AppointmentCompleted,
}

func parseAdvocateTarget(s string) (model.AppointmentStatus, error) {
	target := model.AppointmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range advocateTargets {
		if t == target {
			return t, nil
		}
	}
	return "", ValidationError("invalid status %q: allowed values are APPROVED, REJECTED, COMPLETED", s)
}

// TransitionAppointmentStatus applies an advocate decision: approve or
// reject a PENDING appointment, or complete a PENDING or APPROVED one.
func (s *Service) TransitionAppointmentStatus(ctx context.Context, actor model.Actor, id uint64, target string) (*model.Appointment, error) {
	to, err := parseAdvocateTarget(target)
	if err != nil {
		return nil, err
	}
	var appt *model.Appointment
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAppointment(ctx, id, true)
		if err != nil {
			return missing(err, "appointment")
		}
		if !actor.IsAdvocate(a.AdvocateID) {
			return AuthorizationError("only the advocate of this appointment can change its status")
		}
		if a.Status.Terminal() {
			return ValidationError("cannot modify a terminal appointment")
		}
		switch to {
		case model.AppointmentApproved, model.AppointmentRejected:
			if a.Status != model.AppointmentPending {
				return ValidationError("only pending appointments can be %s", strings.ToLower(string(to)))
			}
		}
		a.Status = to
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, appointmentEvent(appt, "Appointment "+strings.ToLower(string(appt.Status)),
		fmt.Sprintf("Appointment #%d on %s is now %s.", appt.ID, appt.Date.Format(model.DateLayout), appt.Status)))
	return appt, nil
}

// CancelAppointment cancels a PENDING or APPROVED appointment on behalf of
// its client.  A non-empty reason is stored in the remarks.
func (s *Service) CancelAppointment(ctx context.Context, actor model.Actor, id uint64, reason string) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAppointment(ctx, id, true)
		if err != nil {
			return missing(err, "appointment")
		}
		if !actor.IsClient(a.ClientID) {
			return AuthorizationError("only the client of this appointment can cancel it")
		}
		if a.Status.Terminal() {
			return ValidationError("cannot modify a terminal appointment")
		}
		a.Status = model.AppointmentCancelled
		if r := strings.TrimSpace(reason); r != "" {
			a.Remarks = &r
		}
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, appointmentEvent(appt, "Appointment cancelled",
		fmt.Sprintf("Appointment #%d on %s was cancelled by the client.", appt.ID, appt.Date.Format(model.DateLayout))))
	return appt, nil
}

// canView reports whether actor may read appointment a.
func canView(actor model.Actor, a *model.Appointment) bool {
	return actor.IsAdmin() || actor.IsClient(a.ClientID) || actor.ActsFor(a.AdvocateID)
}

// scopeAppointments narrows f to what actor may see.
func scopeAppointments(actor model.Actor, f model.AppointmentFilter) (model.AppointmentFilter, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return f, nil
	case model.RoleClient:
		if actor.ClientID != nil {
			f.ClientID = *actor.ClientID
			return f, nil
		}
	case model.RoleAdvocate:
		if actor.AdvocateID != nil {
			f.AdvocateID = *actor.AdvocateID
			return f, nil
		}
	case model.RoleAssistant:
		if actor.AssistantOf != nil {
			f.AdvocateID = *actor.AssistantOf
			return f, nil
		}
	}
	return f, AuthorizationError("no profile linked to this account")
}

// ListAppointments returns the appointments visible to actor, newest first.
func (s *Service) ListAppointments(ctx context.Context, actor model.Actor, f model.AppointmentFilter) ([]model.Appointment, error) {
	f, err := scopeAppointments(actor, f)
	if err != nil {
		return nil, err
	}
	var out []model.Appointment
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		out, err = tx.ListAppointments(ctx, f)
		return err
	})
	return out, err
}

// GetAppointment returns one appointment visible to actor.
func (s *Service) GetAppointment(ctx context.Context, actor model.Actor, id uint64) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAppointment(ctx, id, false)
		if err != nil {
			return missing(err, "appointment")
		}
		if !canView(actor, a) {
			return NotFoundError("appointment not found")
		}
		appt = a
		return nil
	})
	return appt, err
}

// RemindTomorrow publishes a reminder for every active APPROVED
// appointment dated tomorrow in the business timezone and returns how
// many were sent.
func (s *Service) RemindTomorrow(ctx context.Context) (int, error) {
	tomorrow := s.today().AddDate(0, 0, 1)
	var due []model.Appointment
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		due, err = tx.ListAppointments(ctx, model.AppointmentFilter{Status: model.AppointmentApproved, Date: &tomorrow})
		return err
	})
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range due {
		a := &due[i]
		if !a.IsActive {
			continue
		}
		s.notify(ctx, appointmentEvent(a, "Appointment reminder",
			fmt.Sprintf("Reminder: appointment #%d tomorrow at %s.", a.ID, a.StartTime.Short())))
		sent++
	}
	return sent, nil
}

func appointmentEvent(a *model.Appointment, title, msg string) queue.NotificationEvent {
	return queue.NotificationEvent{
		Kind:       string(model.NotifyAppointment),
		Title:      title,
		Message:    msg,
		ClientID:   a.ClientID,
		AdvocateID: a.AdvocateID,
	}
}
