package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReminder struct {
	calls int
	err   error
}

func (c *countingReminder) RemindTomorrow(context.Context) (int, error) {
	c.calls++
	return 3, c.err
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every day at nine", time.UTC, &countingReminder{})
	assert.Error(t, err)
}

func TestScheduleUsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	s, err := New("0 9 * * *", ist, &countingReminder{})
	require.NoError(t, err)

	assert.Equal(t, ist, s.cron.Location())
	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	from := time.Date(2025, 2, 20, 10, 0, 0, 0, ist)
	next := entries[0].Schedule.Next(from)
	assert.Equal(t, time.Date(2025, 2, 21, 9, 0, 0, 0, ist), next.In(ist))
}

func TestRunRemindersSwallowsErrors(t *testing.T) {
	r := &countingReminder{err: errors.New("db gone")}
	runReminders(r)
	r.err = nil
	runReminders(r)
	assert.Equal(t, 2, r.calls)
}
