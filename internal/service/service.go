// Package service is the booking and case lifecycle engine.  Every
// operation takes the acting model.Actor explicitly, runs its guards and
// writes in one repository unit of work, and publishes notifications only
// after the unit of work has committed.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/advocate-booking/internal/gateway"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
	"github.com/iliyamo/advocate-booking/internal/storage"
)

// Notifier delivers notification events fire-and-forget.
type Notifier interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Service implements the booking, case and payment operations.
type Service struct {
	store           repository.Store
	gateway         gateway.Gateway
	notifier        Notifier
	blobs           storage.Blobs
	loc             *time.Location
	now             func() time.Time
	defaultDuration int
}

// Option customizes a Service.
type Option func(*Service)

// WithLocation sets the business timezone used for "today" and for
// combining dates with start times.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultDuration sets the duration used when a booking names none.
func WithDefaultDuration(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 {
			s.defaultDuration = minutes
		}
	}
}

// New wires a Service.  notifier may be nil, in which case notifications
// are dropped.
func New(store repository.Store, gw gateway.Gateway, notifier Notifier, blobs storage.Blobs, opts ...Option) *Service {
	s := &Service{
		store:           store,
		gateway:         gw,
		notifier:        notifier,
		blobs:           blobs,
		loc:             time.UTC,
		now:             time.Now,
		defaultDuration: 30,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location is the business timezone.
func (s *Service) Location() *time.Location { return s.loc }

// notify publishes ev after a commit.  Delivery failures are logged and
// never reach the caller.
func (s *Service) notify(ctx context.Context, ev queue.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.Publish(ctx, ev); err != nil {
		log.Printf("notify: publish %q failed: %v", ev.Title, err)
	}
}

// missing translates repository.ErrNotFound into a NotFoundError naming
// what; other errors pass through.
func missing(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return NotFoundError("%s not found", what)
	}
	return err
}
