// Package scheduler runs periodic jobs such as next-day appointment
// reminders.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reminder sends reminders for the next business day and reports how many
// appointments it covered.
type Reminder interface {
	RemindTomorrow(ctx context.Context) (int, error)
}

// Scheduler wraps a cron runner evaluated in the business timezone.
type Scheduler struct {
	cron *cron.Cron
}

// New registers the reminder job on spec (standard five-field cron syntax).
func New(spec string, loc *time.Location, r Reminder) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { runReminders(r) }); err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func runReminders(r Reminder) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	n, err := r.RemindTomorrow(ctx)
	if err != nil {
		log.Printf("scheduler: reminders failed: %v", err)
		return
	}
	log.Printf("scheduler: queued reminders for %d appointments", n)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("scheduler: reminder job started")
}

// Stop halts the runner and waits for a job in flight.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
