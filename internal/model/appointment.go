package model

import "time"

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentApproved  AppointmentStatus = "APPROVED"
	AppointmentRejected  AppointmentStatus = "REJECTED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
)

// DefaultDurationMinutes applies when a booking does not name a duration.
const DefaultDurationMinutes = 30

// Terminal reports whether no further transition is defined from s.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentRejected, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Blocking reports whether an active appointment in status s occupies its
// advocate's time.
func (s AppointmentStatus) Blocking() bool {
	return s == AppointmentPending || s == AppointmentApproved
}

// Appointment is a booking between a client and an advocate.  It mirrors a
// row in the `appointments` table.  Appointments are never hard-deleted;
// IsActive is the soft-delete flag.
//
// Fields:
//
//	Date            – calendar date (midnight UTC, see CivilDate).
//	StartTime       – wall-clock start in the business timezone.
//	DurationMinutes – length of the booking.
//	FeeCents        – advocate consultation fee copied at booking time.
//	Remarks         – advocate remarks or the client's cancellation reason.
//	IsPaid          – set when the linked payment is verified.
type Appointment struct {
	ID                 uint64            `json:"id"`
	AdvocateID         uint64            `json:"advocate_id"`
	ClientID           uint64            `json:"client_id"`
	Date               time.Time         `json:"date"`
	StartTime          TimeOfDay         `json:"start_time"`
	DurationMinutes    int               `json:"duration_minutes"`
	ProblemDescription string            `json:"problem_description"`
	Remarks            *string           `json:"remarks,omitempty"`
	Status             AppointmentStatus `json:"status"`
	FeeCents           int64             `json:"fee_cents"`
	IsPaid             bool              `json:"is_paid"`
	IsActive           bool              `json:"is_active"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// EndTime is StartTime plus the duration.  It is derived, never stored.
func (a *Appointment) EndTime() TimeOfDay { return a.StartTime.Add(a.DurationMinutes) }

// StartsAt is the start instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time { return a.StartTime.On(a.Date, loc) }

// IsPastDue reports whether the start instant lies before now.
func (a *Appointment) IsPastDue(now time.Time, loc *time.Location) bool {
	return now.After(a.StartsAt(loc))
}

// AppointmentView is the API shape of an appointment: the stored row plus
// the derived end time and past-due flag.
type AppointmentView struct {
	*Appointment
	EndTime   TimeOfDay `json:"end_time"`
	IsPastDue bool      `json:"is_past_due"`
}

// View derives the response fields, evaluating the start in loc.
func (a *Appointment) View(now time.Time, loc *time.Location) AppointmentView {
	return AppointmentView{Appointment: a, EndTime: a.EndTime(), IsPastDue: a.IsPastDue(now, loc)}
}

// AppointmentFilter narrows appointment listings.  Zero values mean "any".
type AppointmentFilter struct {
	ClientID   uint64
	AdvocateID uint64
	Status     AppointmentStatus
	Date       *time.Time
}
