package clinic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookOne(t *testing.T, f *fixture) *Appointment {
	t.Helper()
	clinicWith(f)
	appt, err := f.svc.BookAppointment(context.Background(), BookingRequest{PatientID: 1, DoctorID: 2, Date: "2024-05-01", Time: "10:00"})
	require.NoError(t, err)
	return appt
}

func TestSetStatusFollowsTransitionTable(t *testing.T) {
	f := newFixture()
	appt := bookOne(t, f)
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, appt.ID, StatusCompleted, nil)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.ErrorIs(t, err, ErrConflict)

	updated, err := f.svc.SetStatus(ctx, appt.ID, StatusApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)

	updated, err = f.svc.SetStatus(ctx, appt.ID, StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	_, err = f.svc.SetStatus(ctx, appt.ID, StatusCancelled, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "completed is terminal")
}

func TestSetStatusNotifiesPatient(t *testing.T) {
	f := newFixture()
	appt := bookOne(t, f)
	notes := "bring previous reports"

	updated, err := f.svc.SetStatus(context.Background(), appt.ID, StatusApproved, &notes)
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	last := msgs[1]
	assert.Equal(t, int64(1), last.RecipientUserID)
	assert.Equal(t, "Appointment Approved - BookMyCare", last.Subject)
	assert.Contains(t, last.HTML, "<strong>approved</strong>")
	assert.Contains(t, last.HTML, notes)
	assert.Equal(t, []string{EventAppointmentBooked, EventAppointmentStatusChanged}, f.repo.eventTypes())
}

func TestSetStatusKeepsNotesWhenOmitted(t *testing.T) {
	f := newFixture()
	appt := bookOne(t, f)
	notes := "fasting required"
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, appt.ID, StatusApproved, &notes)
	require.NoError(t, err)

	updated, err := f.svc.SetStatus(ctx, appt.ID, StatusCompleted, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
}

func TestSetStatusNotFoundSendsNothing(t *testing.T) {
	f := newFixture()
	clinicWith(f)

	_, err := f.svc.SetStatus(context.Background(), 404, StatusApproved, nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.notifier.messages())
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	appt := bookOne(t, f)

	_, err := f.svc.SetStatus(context.Background(), appt.ID, AppointmentStatus("archived"), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetStatusLostRace(t *testing.T) {
	f := newFixture()
	appt := bookOne(t, f)

	// simulate another writer between the read and the guarded update
	racing := &racingRepo{fakeRepo: f.repo}
	svc := NewService(racing, f.locker, f.notifier, f.svc.logger, f.svc.bcryptCost)

	_, err := svc.SetStatus(context.Background(), appt.ID, StatusApproved, nil)
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.ErrorIs(t, err, ErrConflict)
}

type racingRepo struct {
	*fakeRepo
}

func (r *racingRepo) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := r.fakeRepo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.fakeRepo.UpdateAppointmentStatus(ctx, id, a.Status, StatusCancelled, nil); err != nil {
		return nil, err
	}
	return a, nil
}

func TestTransitionTable(t *testing.T) {
	legal := map[AppointmentStatus][]AppointmentStatus{
		StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
		StatusApproved: {StatusCompleted, StatusCancelled},
	}
	all := []AppointmentStatus{StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range legal[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	for _, s := range []AppointmentStatus{StatusRejected, StatusCompleted, StatusCancelled} {
		assert.True(t, IsTerminal(s), s)
	}
	assert.False(t, IsTerminal(StatusPending))
}
