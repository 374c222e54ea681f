package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	// Sunday noon; the next day is a Monday.
	testNow    = time.Date(2030, 1, 6, 12, 0, 0, 0, time.UTC)
	testMonday = time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	repo     *mockRepo
	notifier *recordingNotifier
	svc      *Service
	doctor   *Doctor
	patient  *Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()
	notifier := &recordingNotifier{}
	f := &fixture{
		repo:     repo,
		notifier: notifier,
		svc:      NewService(repo, passLocker{}, notifier, zap.NewNop(), WithClock(func() time.Time { return testNow })),
		doctor:   repo.addDoctor(window(time.Monday, "09:00", "12:00")),
		patient:  repo.addPatient(),
	}
	return f
}

func (f *fixture) bookReq(at string) BookRequest {
	return BookRequest{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		Date:            testMonday,
		Time:            MustTimeOfDay(at),
		DurationMinutes: 30,
		UrgencyLevel:    1,
	}
}

func (f *fixture) book(t *testing.T, at string) *Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), f.bookReq(at))
	require.NoError(t, err)
	f.notifier.take()
	return a
}

// assertNoActiveOverlap checks the core invariant over every stored appointment.
func assertNoActiveOverlap(t *testing.T, repo *mockRepo) {
	t.Helper()
	appts := repo.all()
	for i := range appts {
		for j := i + 1; j < len(appts); j++ {
			a, b := appts[i], appts[j]
			if a.DoctorID != b.DoctorID || !a.Date.Equal(b.Date) || !a.Status.Active() || !b.Status.Active() {
				continue
			}
			assert.False(t, Overlaps(a.Time, a.End(), b.Time, b.End()), "active appointments %s and %s overlap", a.Time, b.Time)
		}
	}
}

func TestGetAvailableSlots_ExcludesBookedTime(t *testing.T) {
	f := newFixture(t)
	f.repo.seedAppointment(Appointment{
		DoctorID: f.doctor.ID, PatientID: f.patient.ID, Date: testMonday,
		Time: MustTimeOfDay("10:00"), DurationMinutes: 30, Status: StatusConfirmed,
	})

	slots, err := f.svc.GetAvailableSlots(context.Background(), f.doctor.ID, testMonday, 30)

	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, slotTimes(slots))
	assert.Len(t, slots, 5)

	again, err := f.svc.GetAvailableSlots(context.Background(), f.doctor.ID, testMonday, 30)
	require.NoError(t, err)
	assert.Equal(t, slots, again)
}

func TestGetAvailableSlots_CancelledDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.repo.seedAppointment(Appointment{
		DoctorID: f.doctor.ID, PatientID: f.patient.ID, Date: testMonday,
		Time: MustTimeOfDay("10:00"), DurationMinutes: 30, Status: StatusCancelled,
	})

	slots, err := f.svc.GetAvailableSlots(context.Background(), f.doctor.ID, testMonday, 30)

	require.NoError(t, err)
	assert.Len(t, slots, 6)
}

func TestGetAvailableSlots_PastDate(t *testing.T) {
	f := newFixture(t)
	yesterday := testNow.AddDate(0, 0, -1)

	slots, err := f.svc.GetAvailableSlots(context.Background(), f.doctor.ID, DateOf(yesterday), 30)

	assert.ErrorIs(t, err, ErrPastDate)
	assert.Nil(t, slots)
}

func TestGetAvailableSlots_TodayInUTCOnZonedClock(t *testing.T) {
	f := newFixture(t)
	// Monday 19:00 UTC, already Tuesday on a host east of Greenwich.
	zoned := time.Date(2030, 1, 8, 6, 0, 0, 0, time.FixedZone("AEDT", 11*60*60))
	f.svc.now = func() time.Time { return zoned }

	slots, err := f.svc.GetAvailableSlots(context.Background(), f.doctor.ID, testMonday, 30)

	require.NoError(t, err)
	assert.Len(t, slots, 6)
}

func TestGetAvailableSlots_NoWindowsIsEmptySuccess(t *testing.T) {
	f := newFixture(t)
	tuesday := testMonday.AddDate(0, 0, 1)

	slots, err := f.svc.GetAvailableSlots(context.Background(), f.doctor.ID, tuesday, 30)

	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestGetAvailableSlots_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetAvailableSlots(ctx, f.doctor.ID, testMonday, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.GetAvailableSlots(ctx, uuid.Nil, testMonday, 30)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.GetAvailableSlots(ctx, uuid.New(), testMonday, 30)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBook_CreatesPendingAndNotifiesBothParties(t *testing.T) {
	f := newFixture(t)
	req := f.bookReq("09:30")
	req.Notes = "  recurring headache "
	req.UrgencyLevel = 3

	a, err := f.svc.Book(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, 3, a.UrgencyLevel)
	require.NotNil(t, a.Notes)
	assert.Equal(t, "recurring headache", *a.Notes)

	events := f.notifier.take()
	require.Len(t, events, 2)
	assert.Equal(t, f.doctor.UserID, events[0].UserID)
	assert.Equal(t, NotificationRequest, events[0].Type)
	assert.Equal(t, f.patient.UserID, events[1].UserID)
	assert.Contains(t, events[1].Message, "Dr. Ada House")
	for _, ev := range events {
		require.NotNil(t, ev.RelatedAppointmentID)
		assert.Equal(t, a.ID, *ev.RelatedAppointmentID)
	}
}

func TestBook_RejectsOverlap(t *testing.T) {
	f := newFixture(t)
	f.book(t, "10:00")

	_, err := f.svc.Book(context.Background(), f.bookReq("10:00"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	req := f.bookReq("09:45")
	_, err = f.svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// touching intervals are fine
	_, err = f.svc.Book(context.Background(), f.bookReq("10:30"))
	assert.NoError(t, err)
	_, err = f.svc.Book(context.Background(), f.bookReq("09:30"))
	assert.NoError(t, err)

	assertNoActiveOverlap(t, f.repo)
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, "11:00")
	_, err := f.svc.Cancel(context.Background(), f.patient.ID, first.ID, "")
	require.NoError(t, err)

	second, err := f.svc.Book(context.Background(), f.bookReq("11:00"))

	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBook_OutsideAvailability(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.bookReq("11:45"))
	assert.ErrorIs(t, err, ErrSlotUnavailable, "runs past the window end")

	_, err = f.svc.Book(context.Background(), f.bookReq("15:00"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(r *BookRequest){
		"zero duration":     func(r *BookRequest) { r.DurationMinutes = 0 },
		"negative duration": func(r *BookRequest) { r.DurationMinutes = -30 },
		"urgency too high":  func(r *BookRequest) { r.UrgencyLevel = 6 },
		"urgency too low":   func(r *BookRequest) { r.UrgencyLevel = 0 },
		"missing doctor":    func(r *BookRequest) { r.DoctorID = uuid.Nil },
		"missing date":      func(r *BookRequest) { r.Date = time.Time{} },
		"past midnight":     func(r *BookRequest) { r.Time = MustTimeOfDay("23:45") },
	}
	for name, mutate := range cases {
		req := f.bookReq("09:00")
		mutate(&req)
		_, err := f.svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestBook_PastDateAndUnknownParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.bookReq("09:00")
	req.Date = testMonday.AddDate(0, 0, -7)
	_, err := f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrPastDate)

	req = f.bookReq("09:00")
	req.PatientID = uuid.New()
	_, err = f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	req = f.bookReq("09:00")
	req.DoctorID = uuid.New()
	_, err = f.svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	f.repo.mu.Lock()
	f.repo.doctors[f.doctor.ID].Active = false
	f.repo.mu.Unlock()
	_, err = f.svc.Book(ctx, f.bookReq("09:00"))
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBook_ConcurrentSameSlotOnlyOneWins(t *testing.T) {
	f := newFixture(t)

	// Both requests pass the conflict read before either inserts.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.repo.afterListActive = func() {
		arrived.Done()
		arrived.Wait()
	}

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
		created = make([]*Appointment, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], results[i] = f.svc.Book(context.Background(), f.bookReq("10:00"))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for i, err := range results {
		switch {
		case err == nil:
			ok++
			require.NotNil(t, created[i])
		case errors.Is(err, ErrSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, f.repo.all(), 1)
}

func TestBook_ConcurrentWithDoctorLock(t *testing.T) {
	f := newFixture(t)
	f.svc = NewService(f.repo, &mutexLocker{}, f.notifier, zap.NewNop(), WithClock(func() time.Time { return testNow }))

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := []string{"09:00", "09:15", "09:30", "10:00"}[i%4]
			_, err := f.svc.Book(context.Background(), f.bookReq(at))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, successes, 2)
	assertNoActiveOverlap(t, f.repo)
}

func TestLifecycle_BookConfirmComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, f.bookReq("09:00"))
	require.NoError(t, err)
	require.Len(t, f.notifier.take(), 2)

	confirmed, err := f.svc.Confirm(ctx, f.doctor.ID, a.ID, "bring previous results")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.Notes)
	assert.Equal(t, "Doctor notes: bring previous results", *confirmed.Notes)
	events := f.notifier.take()
	require.Len(t, events, 1)
	assert.Equal(t, f.patient.UserID, events[0].UserID)
	assert.Equal(t, NotificationConfirmed, events[0].Type)

	completed, err := f.svc.Complete(ctx, f.doctor.ID, a.ID, "rest", "ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, "Consultation notes: rest; Prescriptions: ibuprofen", *completed.Notes)
	events = f.notifier.take()
	require.Len(t, events, 1)
	assert.Equal(t, f.patient.UserID, events[0].UserID)
	assert.Equal(t, NotificationGeneral, events[0].Type)

	_, err = f.svc.Cancel(ctx, f.patient.ID, a.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, StatusCompleted, f.repo.status(a.ID))
	assert.Empty(t, f.notifier.take())
}

func TestConfirm_OnlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, st := range []AppointmentStatus{StatusConfirmed, StatusCompleted, StatusCancelled} {
		a := f.repo.seedAppointment(Appointment{
			DoctorID: f.doctor.ID, PatientID: f.patient.ID, Date: testMonday,
			Time: MustTimeOfDay("09:00"), DurationMinutes: 30, Status: st,
		})

		_, err := f.svc.Confirm(ctx, f.doctor.ID, a.ID, "")

		assert.ErrorIs(t, err, ErrInvalidStateTransition, st)
		assert.Equal(t, st, f.repo.status(a.ID))
	}
	assert.Empty(t, f.notifier.take())
}

func TestDoctorTransitions_Unauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "09:00")
	other := uuid.New()

	_, err := f.svc.Confirm(ctx, other, a.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Reject(ctx, other, a.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Confirm(ctx, f.patient.ID, a.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized, "the patient cannot confirm")

	_, err = f.svc.Cancel(ctx, f.doctor.ID, a.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized, "the doctor cannot patient-cancel")

	_, err = f.svc.Complete(ctx, other, a.ID, "", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrInvalidStateTransition)

	assert.Equal(t, StatusPending, f.repo.status(a.ID))
}

func TestComplete_RequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "09:00")

	_, err := f.svc.Complete(context.Background(), f.doctor.ID, a.ID, "", "")

	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, StatusPending, f.repo.status(a.ID))
}

func TestReject_FromConfirmedNotifiesPatientWithReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "09:00")
	_, err := f.svc.Confirm(ctx, f.doctor.ID, a.ID, "")
	require.NoError(t, err)
	f.notifier.take()

	rejected, err := f.svc.Reject(ctx, f.doctor.ID, a.ID, "emergency surgery")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, rejected.Status)
	assert.Equal(t, "Cancelled by doctor: emergency surgery", *rejected.Notes)
	events := f.notifier.take()
	require.Len(t, events, 1)
	assert.Equal(t, f.patient.UserID, events[0].UserID)
	assert.Equal(t, NotificationCancelled, events[0].Type)
	assert.Contains(t, events[0].Message, "Reason: emergency surgery")
}

func TestCancel_NotifiesDoctor(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "09:00")

	cancelled, err := f.svc.Cancel(context.Background(), f.patient.ID, a.ID, "")

	require.NoError(t, err)
	assert.Equal(t, "Cancelled by patient", *cancelled.Notes)
	events := f.notifier.take()
	require.Len(t, events, 1)
	assert.Equal(t, f.doctor.UserID, events[0].UserID)
}

func TestTransition_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(context.Background(), f.doctor.ID, uuid.New(), "")

	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("inbox down")
	ctx := context.Background()

	a, err := f.svc.Book(ctx, f.bookReq("09:00"))
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, f.doctor.ID, a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, f.repo.status(a.ID))
}

func TestAvailabilityReplaceAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := false

	windows, err := f.svc.UpdateDoctorAvailability(ctx, f.doctor.ID, []WindowInput{
		{DayOfWeek: 1, Start: MustTimeOfDay("14:00"), End: MustTimeOfDay("16:00")},
		{DayOfWeek: 2, Start: MustTimeOfDay("09:00"), End: MustTimeOfDay("10:00"), Active: &inactive},
	})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.True(t, windows[0].Active)
	assert.False(t, windows[1].Active)

	slots, err := f.svc.GetAvailableSlots(ctx, f.doctor.ID, testMonday, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"14:00", "14:30", "15:00", "15:30"}, slotTimes(slots), "old windows are gone")

	stored, err := f.svc.GetDoctorAvailability(ctx, f.doctor.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = f.svc.UpdateDoctorAvailability(ctx, f.doctor.ID, []WindowInput{
		{DayOfWeek: 7, Start: MustTimeOfDay("09:00"), End: MustTimeOfDay("10:00")},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UpdateDoctorAvailability(ctx, f.doctor.ID, []WindowInput{
		{DayOfWeek: 1, Start: MustTimeOfDay("10:00"), End: MustTimeOfDay("10:00")},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, "09:00")
	f.book(t, "10:00")
	f.book(t, "11:00")
	_, err := f.svc.Confirm(ctx, f.doctor.ID, first.ID, "")
	require.NoError(t, err)

	page, err := f.svc.ListPatientAppointments(ctx, f.patient.ID, ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "11:00", page.Items[0].Time.String(), "patients see newest first")
	require.NotNil(t, page.Items[0].Doctor)

	confirmed := StatusConfirmed
	agenda, err := f.svc.ListDoctorAppointments(ctx, f.doctor.ID, ListQuery{Status: &confirmed, Date: &testMonday})
	require.NoError(t, err)
	require.Len(t, agenda.Items, 1)
	assert.Equal(t, first.ID, agenda.Items[0].ID)
	assert.Equal(t, 1, agenda.Page)
	assert.Equal(t, defaultPageLimit, agenda.Limit)

	bogus := AppointmentStatus("archived")
	_, err = f.svc.ListDoctorAppointments(ctx, f.doctor.ID, ListQuery{Status: &bogus})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetAppointment_OnlyParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "09:00")

	got, err := f.svc.GetAppointment(ctx, f.patient.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.svc.GetAppointment(ctx, f.doctor.ID, a.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetAppointment(ctx, uuid.New(), a.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestInvariantAfterMixedOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	times := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	var booked []*Appointment
	for _, at := range times {
		booked = append(booked, f.book(t, at))
	}
	_, err := f.svc.Reject(ctx, f.doctor.ID, booked[1].ID, "")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.patient.ID, booked[3].ID, "")
	require.NoError(t, err)

	for _, at := range []string{"09:15", "09:30", "10:30", "10:45"} {
		req := f.bookReq(at)
		req.DurationMinutes = 15
		_, _ = f.svc.Book(ctx, req)
	}

	assertNoActiveOverlap(t, f.repo)

	slots, err := f.svc.GetAvailableSlots(ctx, f.doctor.ID, testMonday, 30)
	require.NoError(t, err)
	active, _ := f.repo.ListActiveAppointments(ctx, f.doctor.ID, testMonday)
	for _, s := range slots {
		assert.False(t, IsBlocked(s.Time, 30, active), "offered slot %s is blocked", s.Time)
	}
}
