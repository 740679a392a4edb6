package clinic

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookCancelRebookScenario(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	ctx := context.Background()
	req := BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"}

	first, err := f.svc.BookAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)

	_, err = f.svc.BookAppointment(ctx, req)
	require.ErrorIs(t, err, ErrSlotAlreadyBooked)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "slot already booked", err.Error())
	assert.Equal(t, 1, f.repo.activeCount(req.Slot()))

	_, err = f.svc.SetStatus(ctx, first.ID, StatusCancelled, nil)
	require.NoError(t, err)

	second, err := f.svc.BookAppointment(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, f.repo.activeCount(req.Slot()))
}

func TestBookAppointmentNotifiesPatient(t *testing.T) {
	f := newFixture()
	clinicWith(f)

	appt, err := f.svc.BookAppointment(context.Background(), BookingRequest{PatientID: 1, DoctorID: 2, Date: " 2024-05-01 ", Time: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", appt.Date, "date is trimmed")

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(1), msgs[0].RecipientUserID)
	assert.Equal(t, "Appointment Booked - BookMyCare", msgs[0].Subject)
	assert.Contains(t, msgs[0].HTML, "Dr. house")
	assert.Contains(t, msgs[0].HTML, "2024-05-01")
	assert.Equal(t, []string{EventAppointmentBooked}, f.repo.eventTypes())
}

func TestBookAppointmentSurvivesNotifierAndEventFailures(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	f.notifier.err = errBoom
	f.repo.eventErr = errBoom

	appt, err := f.svc.BookAppointment(context.Background(), BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"})
	require.NoError(t, err)
	require.NotNil(t, appt)
	assert.Len(t, f.notifier.messages(), 1)
}

func TestBookAppointmentValidation(t *testing.T) {
	f := newFixture()
	clinicWith(f)

	cases := []struct {
		name string
		req  BookingRequest
	}{
		{"missing patient", BookingRequest{DoctorID: 2, Date: "2024-05-01", Time: "10:00"}},
		{"missing doctor", BookingRequest{PatientID: 1, Date: "2024-05-01", Time: "10:00"}},
		{"blank date", BookingRequest{PatientID: 1, DoctorID: 2, Date: "  ", Time: "10:00"}},
		{"missing time", BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.BookAppointment(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, f.notifier.messages())
}

func TestBookAppointmentUnknownReferences(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	f.repo.putUser(20, "nurse", RoleAdmin)
	ctx := context.Background()

	_, err := f.svc.BookAppointment(ctx, BookingRequest{PatientID: 1, DoctorID: 99, Date: "2024-05-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.BookAppointment(ctx, BookingRequest{PatientID: 77, DoctorID: 2, Date: "2024-05-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = f.svc.BookAppointment(ctx, BookingRequest{PatientID: 20, DoctorID: 2, Date: "2024-05-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrPatientNotFound, "only patient accounts can book")
}

func TestBookAppointmentUniqueIndexBacksUpTheCheck(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	req := BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"}

	_, err := f.svc.BookAppointment(context.Background(), req)
	require.NoError(t, err)

	// the pre-insert lookup misses; the insert itself must still refuse the slot
	f.repo.hideActiveSlots = true
	_, err = f.svc.BookAppointment(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
	assert.Equal(t, 1, f.repo.activeCount(req.Slot()))
}

func TestBookAppointmentLockContention(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	req := BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"}

	f.locker.held[req.Slot().Key()] = true

	_, err := f.svc.BookAppointment(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestConcurrentBookingsYieldOneActiveAppointment(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	req := BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"}

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.BookAppointment(context.Background(), req)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.repo.activeCount(req.Slot()))
}

func TestDifferentSlotsDoNotConflict(t *testing.T) {
	f := newFixture()
	clinicWith(f)
	ctx := context.Background()

	_, err := f.svc.BookAppointment(ctx, BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"})
	require.NoError(t, err)
	_, err = f.svc.BookAppointment(ctx, BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:30"})
	require.NoError(t, err)
	_, err = f.svc.BookAppointment(ctx, BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-02", Time: "10:00"})
	require.NoError(t, err)
}
