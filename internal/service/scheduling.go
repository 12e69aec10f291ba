package service

import (
	"context"
	"time"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// MaxDurationMinutes caps a single booking.
const MaxDurationMinutes = 8 * 60

const overlapMessage = "advocate already has an appointment during this time"

// Slot is a proposed booking interval on one calendar date.
type Slot struct {
	Date     time.Time
	Start    model.TimeOfDay
	Duration int
}

// End is the exclusive end of the slot.
func (sl Slot) End() model.TimeOfDay { return sl.Start.Add(sl.Duration) }

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd model.TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// today is the current calendar date in the business timezone.
func (s *Service) today() time.Time {
	return model.CivilDate(s.now().In(s.loc))
}

// validateSlot checks the slot in isolation: a date that is not in the
// past, a positive bounded duration, and an interval within one day.
func (s *Service) validateSlot(sl Slot) error {
	if sl.Date.IsZero() {
		return ValidationError("date is required")
	}
	if model.CivilDate(sl.Date).Before(s.today()) {
		return ValidationError("appointment date cannot be in the past")
	}
	if sl.Start < 0 || sl.Start >= model.MinutesPerDay {
		return ValidationError("invalid start time")
	}
	if sl.Duration <= 0 || sl.Duration > MaxDurationMinutes {
		return ValidationError("duration must be between 1 and %d minutes", MaxDurationMinutes)
	}
	if sl.End() > model.MinutesPerDay {
		return ValidationError("appointment must end by midnight")
	}
	return nil
}

// checkConflicts runs the overlap query inside tx.  The caller must hold
// the advocate row lock so the result stays valid until commit.
func checkConflicts(ctx context.Context, tx repository.Tx, advocateID uint64, sl Slot, excludeID uint64) error {
	existing, err := tx.BlockingAppointmentsOn(ctx, advocateID, model.CivilDate(sl.Date), excludeID)
	if err != nil {
		return err
	}
	for i := range existing {
		a := &existing[i]
		if a.ID == excludeID || !a.IsActive || !a.Status.Blocking() {
			continue
		}
		if Overlaps(sl.Start, sl.End(), a.StartTime, a.EndTime()) {
			return ConflictError(overlapMessage)
		}
	}
	return nil
}
