package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// ReviewRequest rates an advocate, optionally for one appointment.
type ReviewRequest struct {
	AdvocateID    uint64
	AppointmentID *uint64
	Rating        int
	Comment       string
}

// ListAdvocates returns the public advocate directory.
func (s *Service) ListAdvocates(ctx context.Context, verifiedOnly bool) ([]model.AdvocateSummary, error) {
	var out []model.AdvocateSummary
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListAdvocates(ctx, verifiedOnly)
		return err
	})
	return out, err
}

// GetAdvocate returns one directory entry.
func (s *Service) GetAdvocate(ctx context.Context, id uint64) (*model.AdvocateSummary, error) {
	var out *model.AdvocateSummary
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetAdvocateSummary(ctx, id)
		return missing(err, "advocate")
	})
	return out, err
}

// VerifyAdvocate marks an advocate as verified so they accept bookings.
func (s *Service) VerifyAdvocate(ctx context.Context, actor model.Actor, advocateID uint64) error {
	if !actor.IsAdmin() {
		return AuthorizationError("only administrators can verify advocates")
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return missing(tx.SetAdvocateVerified(ctx, advocateID, true), "advocate")
	})
	if err != nil {
		return err
	}
	s.notify(ctx, queue.NotificationEvent{
		Kind:       string(model.NotifySystem),
		Title:      "Profile verified",
		Message:    "Your advocate profile has been verified. Clients can now book appointments with you.",
		AdvocateID: advocateID,
	})
	return nil
}

// CreateReview records the acting client's rating of an advocate.  When an
// appointment is named it must be the client's own appointment with that
// advocate, and each appointment can be reviewed once.
func (s *Service) CreateReview(ctx context.Context, actor model.Actor, req ReviewRequest) (*model.Review, error) {
	if actor.Role != model.RoleClient || actor.ClientID == nil {
		return nil, AuthorizationError("only clients can review advocates")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ValidationError("rating must be between 1 and 5")
	}
	var rv *model.Review
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetAdvocate(ctx, req.AdvocateID); err != nil {
			return missing(err, "advocate")
		}
		if req.AppointmentID != nil {
			a, err := tx.GetAppointment(ctx, *req.AppointmentID, false)
			if err != nil {
				return missing(err, "appointment")
			}
			if !actor.IsClient(a.ClientID) {
				return AuthorizationError("you can only review your own appointments")
			}
			if a.AdvocateID != req.AdvocateID {
				return ValidationError("appointment does not belong to this advocate")
			}
		}
		r := &model.Review{
			ClientID:      *actor.ClientID,
			AdvocateID:    req.AdvocateID,
			AppointmentID: req.AppointmentID,
			Rating:        req.Rating,
			Comment:       strings.TrimSpace(req.Comment),
		}
		if err := tx.InsertReview(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ConflictError("you have already reviewed this appointment")
			}
			return err
		}
		rv = r
		return nil
	})
	return rv, err
}

// ListReviews returns an advocate's reviews.
func (s *Service) ListReviews(ctx context.Context, advocateID uint64) ([]model.Review, error) {
	var out []model.Review
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListReviews(ctx, advocateID)
		return err
	})
	return out, err
}

// ListNotifications returns the actor's in-app notifications.
func (s *Service) ListNotifications(ctx context.Context, actor model.Actor) ([]model.Notification, error) {
	var out []model.Notification
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, actor.UserID)
		return err
	})
	return out, err
}

// MarkNotificationRead marks one of the actor's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, actor model.Actor, id uint64) error {
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		return missing(tx.MarkNotificationRead(ctx, actor.UserID, id), "notification")
	})
}
