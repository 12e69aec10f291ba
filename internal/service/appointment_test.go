package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/storage"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

type fixture struct {
	t          *testing.T
	svc        *Service
	store      *memStore
	gw         *fakeGateway
	notifier   *fakeNotifier
	advocate   uint64 // verified
	unverified uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{t: t, store: store, gw: &fakeGateway{}, notifier: &fakeNotifier{}}
	store.read(func(s *memState) {
		f.advocate = s.id()
		s.advocates[f.advocate] = model.AdvocateProfile{ID: f.advocate, UserID: 500, Verified: true, ConsultationFeeCents: 150000}
		s.names[f.advocate] = "A. Verified"
		f.unverified = s.id()
		s.advocates[f.unverified] = model.AdvocateProfile{ID: f.unverified, UserID: 501, ConsultationFeeCents: 90000}
		s.names[f.unverified] = "B. Pending"
	})
	blobs, err := storage.NewDisk(t.TempDir(), 1<<20)
	require.NoError(t, err)
	now := time.Date(2025, 2, 20, 10, 0, 0, 0, ist)
	f.svc = New(store, f.gw, f.notifier, blobs, WithLocation(ist), WithClock(func() time.Time { return now }))
	return f
}

func clientActor(id uint64) model.Actor {
	return model.Actor{UserID: 1000 + id, Role: model.RoleClient, ClientID: &id}
}

func advocateActor(id uint64) model.Actor {
	return model.Actor{UserID: 2000 + id, Role: model.RoleAdvocate, AdvocateID: &id}
}

var adminActor = model.Actor{UserID: 1, Role: model.RoleAdmin}

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tod(s string) model.TimeOfDay {
	v, err := model.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (f *fixture) book(client uint64, day, start string, minutes int) (*model.Appointment, error) {
	return f.svc.CreateAppointment(context.Background(), clientActor(client), BookingRequest{
		AdvocateID:         f.advocate,
		Date:               date(day),
		StartTime:          tod(start),
		DurationMinutes:    minutes,
		ProblemDescription: "property dispute",
	})
}

func (f *fixture) mustBook(client uint64, day, start string, minutes int) *model.Appointment {
	f.t.Helper()
	a, err := f.book(client, day, start, minutes)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) approve(a *model.Appointment) *model.Appointment {
	f.t.Helper()
	out, err := f.svc.TransitionAppointmentStatus(context.Background(), advocateActor(a.AdvocateID), a.ID, "APPROVED")
	require.NoError(f.t, err)
	return out
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	nine, nineThirty, ten := tod("09:00"), tod("09:30"), tod("10:00")
	assert.False(t, Overlaps(nine, nineThirty, nineThirty, ten))
	assert.False(t, Overlaps(nineThirty, ten, nine, nineThirty))
	assert.True(t, Overlaps(nine, nineThirty, tod("09:15"), tod("09:45")))
	assert.True(t, Overlaps(nine, ten, tod("09:10"), tod("09:20")))
	assert.True(t, Overlaps(nine, nineThirty, nine, nineThirty))
}

func TestBookingScenarioAroundTen(t *testing.T) {
	f := newFixture(t)

	first, err := f.book(1, "2025-03-01", "10:00", 30)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentPending, first.Status)
	assert.Equal(t, tod("10:30"), first.EndTime())
	assert.Equal(t, int64(150000), first.FeeCents)

	_, err = f.book(2, "2025-03-01", "10:15", 30)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
	assert.Equal(t, "advocate already has an appointment during this time", Message(err))

	_, err = f.book(3, "2025-03-01", "10:30", 30)
	require.NoError(t, err)
}

func TestBackToBackBeforeExisting(t *testing.T) {
	f := newFixture(t)
	f.mustBook(1, "2025-03-01", "09:30", 30)
	_, err := f.book(2, "2025-03-01", "09:00", 30)
	require.NoError(t, err)
}

func TestDefaultDurationApplies(t *testing.T) {
	f := newFixture(t)
	a := f.mustBook(1, "2025-03-01", "09:00", 0)
	assert.Equal(t, 30, a.DurationMinutes)
}

func TestOtherAdvocatesAndDaysDoNotConflict(t *testing.T) {
	f := newFixture(t)
	f.mustBook(1, "2025-03-01", "09:00", 60)
	f.mustBook(2, "2025-03-02", "09:00", 60)

	f.store.read(func(s *memState) {
		a := s.advocates[f.unverified]
		a.Verified = true
		s.advocates[f.unverified] = a
	})
	_, err := f.svc.CreateAppointment(context.Background(), clientActor(3), BookingRequest{
		AdvocateID: f.unverified, Date: date("2025-03-01"), StartTime: tod("09:00"), ProblemDescription: "lease",
	})
	require.NoError(t, err)
}

func TestBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book(1, "2025-02-19", "10:00", 30)
	assert.True(t, IsKind(err, KindValidation), "past date")

	_, err = f.book(1, "2025-02-20", "08:00", 30)
	assert.NoError(t, err, "today is bookable")

	_, err = f.book(1, "2025-03-01", "23:45", 30)
	assert.True(t, IsKind(err, KindValidation), "crosses midnight")

	_, err = f.book(1, "2025-03-01", "10:00", -5)
	assert.True(t, IsKind(err, KindValidation), "negative duration")

	_, err = f.svc.CreateAppointment(ctx, clientActor(1), BookingRequest{
		AdvocateID: f.unverified, Date: date("2025-03-01"), StartTime: tod("10:00"), ProblemDescription: "x",
	})
	assert.True(t, IsKind(err, KindValidation), "unverified advocate")
	assert.Equal(t, "advocate is not verified", Message(err))

	_, err = f.svc.CreateAppointment(ctx, clientActor(1), BookingRequest{
		AdvocateID: 999, Date: date("2025-03-01"), StartTime: tod("10:00"), ProblemDescription: "x",
	})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.svc.CreateAppointment(ctx, advocateActor(f.advocate), BookingRequest{
		AdvocateID: f.advocate, Date: date("2025-03-01"), StartTime: tod("10:00"), ProblemDescription: "x",
	})
	assert.True(t, IsKind(err, KindAuthorization))
}

func TestPastDateUsesBusinessTimezone(t *testing.T) {
	f := newFixture(t)
	// 20:00 UTC on Feb 20 is already Feb 21 in IST.
	late := time.Date(2025, 2, 20, 20, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return late }
	_, err := f.book(1, "2025-02-20", "10:00", 30)
	assert.True(t, IsKind(err, KindValidation))
	_, err = f.book(1, "2025-02-21", "10:00", 30)
	assert.NoError(t, err)
}

func assertNoOverlaps(t *testing.T, store *memStore) {
	t.Helper()
	store.read(func(s *memState) {
		var active []model.Appointment
		for _, a := range s.appointments {
			if a.IsActive && a.Status.Blocking() {
				active = append(active, a)
			}
		}
		for i := range active {
			for j := i + 1; j < len(active); j++ {
				a, b := &active[i], &active[j]
				if a.AdvocateID != b.AdvocateID || !a.Date.Equal(b.Date) {
					continue
				}
				require.False(t, Overlaps(a.StartTime, a.EndTime(), b.StartTime, b.EndTime()),
					"appointments %d and %d overlap", a.ID, b.ID)
			}
		}
	})
}

func TestRandomBookingsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))
	accepted := 0
	for i := 0; i < 400; i++ {
		start := model.TimeOfDay(rng.Intn(17*60) + 6*60)
		minutes := rng.Intn(120) + 1
		_, err := f.book(uint64(i%7+1), "2025-03-01", start.String(), minutes)
		if err == nil {
			accepted++
			continue
		}
		require.True(t, IsKind(err, KindConflict) || IsKind(err, KindValidation), "unexpected error %v", err)
	}
	assert.Greater(t, accepted, 0)
	assertNoOverlaps(t, f.store)
}

func TestConcurrentBookingsForOneSlot(t *testing.T) {
	f := newFixture(t)
	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(client uint64) {
			defer wg.Done()
			start := "11:00"
			if client%2 == 0 {
				start = "11:20"
			}
			if _, err := f.book(client, "2025-03-01", start, 30); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	assertNoOverlaps(t, f.store)
}

func TestRescheduleExcludesItselfAndKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.approve(f.mustBook(1, "2025-03-01", "10:00", 60))

	// The new interval overlaps the old one, which must not count.
	moved, err := f.svc.RescheduleAppointment(ctx, clientActor(1), a.ID, RescheduleRequest{
		Date: date("2025-03-01"), StartTime: tod("10:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentApproved, moved.Status)
	assert.Equal(t, tod("10:30"), moved.StartTime)
	assert.Equal(t, 60, moved.DurationMinutes)

	f.mustBook(2, "2025-03-01", "12:00", 30)
	_, err = f.svc.RescheduleAppointment(ctx, advocateActor(f.advocate), a.ID, RescheduleRequest{
		Date: date("2025-03-01"), StartTime: tod("11:45"), DurationMinutes: 30,
	})
	assert.True(t, IsKind(err, KindConflict))

	_, err = f.svc.RescheduleAppointment(ctx, clientActor(1), a.ID, RescheduleRequest{
		Date: date("2025-02-01"), StartTime: tod("10:00"),
	})
	assert.True(t, IsKind(err, KindValidation))
}

func TestRescheduleGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustBook(1, "2025-03-01", "10:00", 30)

	_, err := f.svc.RescheduleAppointment(ctx, clientActor(2), a.ID, RescheduleRequest{
		Date: date("2025-03-02"), StartTime: tod("10:00"),
	})
	assert.True(t, IsKind(err, KindAuthorization))

	_, err = f.svc.CancelAppointment(ctx, clientActor(1), a.ID, "")
	require.NoError(t, err)
	_, err = f.svc.RescheduleAppointment(ctx, clientActor(1), a.ID, RescheduleRequest{
		Date: date("2025-03-02"), StartTime: tod("10:00"),
	})
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, "cannot modify a terminal appointment", Message(err))
}

func TestRescheduleAllowedForUnverifiedAdvocate(t *testing.T) {
	f := newFixture(t)
	a := f.mustBook(1, "2025-03-01", "10:00", 30)
	f.store.read(func(s *memState) {
		adv := s.advocates[f.advocate]
		adv.Verified = false
		s.advocates[f.advocate] = adv
	})
	_, err := f.svc.RescheduleAppointment(context.Background(), clientActor(1), a.ID, RescheduleRequest{
		Date: date("2025-03-02"), StartTime: tod("10:00"),
	})
	assert.NoError(t, err)
}

func TestTransitionAppointmentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adv := advocateActor(f.advocate)

	a := f.mustBook(1, "2025-03-01", "10:00", 30)
	_, err := f.svc.TransitionAppointmentStatus(ctx, adv, a.ID, "CANCELLED")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Contains(t, Message(err), "APPROVED, REJECTED, COMPLETED")

	_, err = f.svc.TransitionAppointmentStatus(ctx, advocateActor(f.unverified), a.ID, "APPROVED")
	assert.True(t, IsKind(err, KindAuthorization))
	_, err = f.svc.TransitionAppointmentStatus(ctx, clientActor(1), a.ID, "APPROVED")
	assert.True(t, IsKind(err, KindAuthorization))

	approved, err := f.svc.TransitionAppointmentStatus(ctx, adv, a.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentApproved, approved.Status)

	_, err = f.svc.TransitionAppointmentStatus(ctx, adv, a.ID, "REJECTED")
	assert.True(t, IsKind(err, KindValidation), "reject only from pending")

	done, err := f.svc.TransitionAppointmentStatus(ctx, adv, a.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, done.Status)

	for _, target := range []string{"APPROVED", "REJECTED", "COMPLETED"} {
		_, err = f.svc.TransitionAppointmentStatus(ctx, adv, a.ID, target)
		assert.Equal(t, "cannot modify a terminal appointment", Message(err), target)
	}
}

func TestCompleteFromPendingAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adv := advocateActor(f.advocate)

	a := f.mustBook(1, "2025-03-01", "10:00", 30)
	done, err := f.svc.TransitionAppointmentStatus(ctx, adv, a.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, done.Status)

	b := f.mustBook(2, "2025-03-01", "11:00", 30)
	rejected, err := f.svc.TransitionAppointmentStatus(ctx, adv, b.ID, "REJECTED")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentRejected, rejected.Status)

	// A rejected booking frees its slot.
	f.mustBook(3, "2025-03-01", "11:00", 30)
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.approve(f.mustBook(1, "2025-03-01", "10:00", 30))

	_, err := f.svc.CancelAppointment(ctx, clientActor(2), a.ID, "")
	assert.True(t, IsKind(err, KindAuthorization))

	cancelled, err := f.svc.CancelAppointment(ctx, clientActor(1), a.ID, "  settled out of court ")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Remarks)
	assert.Equal(t, "settled out of court", *cancelled.Remarks)

	_, err = f.svc.CancelAppointment(ctx, clientActor(1), a.ID, "")
	assert.Equal(t, "cannot modify a terminal appointment", Message(err))

	f.mustBook(2, "2025-03-01", "10:00", 30)
}

func TestAppointmentVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustBook(1, "2025-03-01", "10:00", 30)
	f.mustBook(2, "2025-03-01", "11:00", 30)

	mine, err := f.svc.ListAppointments(ctx, clientActor(1), model.AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	all, err := f.svc.ListAppointments(ctx, advocateActor(f.advocate), model.AppointmentFilter{ClientID: 0})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assistantOf := f.advocate
	assistant := model.Actor{UserID: 77, Role: model.RoleAssistant, AssistantOf: &assistantOf}
	got, err := f.svc.GetAppointment(ctx, assistant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.svc.GetAppointment(ctx, clientActor(2), a.ID)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.svc.ListAppointments(ctx, model.Actor{UserID: 9, Role: model.RoleClient}, model.AppointmentFilter{})
	assert.True(t, IsKind(err, KindAuthorization))
}

func TestNotificationsFollowCommitAndFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	a := f.mustBook(1, "2025-03-01", "10:00", 30)
	assert.Equal(t, []string{"New appointment request"}, f.notifier.titles())

	_, err := f.book(2, "2025-03-01", "10:00", 30)
	require.Error(t, err)
	assert.Len(t, f.notifier.titles(), 1, "failed booking publishes nothing")

	f.notifier.err = errBroker
	approved, err := f.svc.TransitionAppointmentStatus(context.Background(), advocateActor(f.advocate), a.ID, "APPROVED")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentApproved, approved.Status)
}

func TestRemindTomorrow(t *testing.T) {
	f := newFixture(t)
	f.approve(f.mustBook(1, "2025-02-21", "10:00", 30))
	f.mustBook(2, "2025-02-21", "11:00", 30) // pending, no reminder
	f.approve(f.mustBook(3, "2025-02-22", "10:00", 30))

	n, err := f.svc.RemindTomorrow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
