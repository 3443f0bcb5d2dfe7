package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func appointmentRows(a Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "hospital_id", "scheduled_at",
		"type", "reason", "notes", "status", "follow_up_sent", "follow_up_of",
		"created_at", "updated_at",
	}).AddRow(
		a.ID, a.PatientID, a.DoctorID, a.HospitalID, a.ScheduledAt,
		a.Type, a.Reason, a.Notes, string(a.Status), a.FollowUpSent, a.FollowUpOf,
		a.CreatedAt, a.UpdatedAt,
	)
}

func sampleAppointment() Appointment {
	return Appointment{
		ID:          uuid.New(),
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		HospitalID:  uuid.New(),
		ScheduledAt: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
		Type:        "consultation",
		Reason:      "annual checkup",
		Status:      StatusScheduled,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func TestFindByID(t *testing.T) {
	store, mock := newMockStore(t)
	appt := sampleAppointment()

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(appt.ID).
		WillReturnRows(appointmentRows(appt))

	got, err := store.FindByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, StatusScheduled, got.Status)
}

func TestFindByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := store.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCompletedNeedingFollowUp(t *testing.T) {
	store, mock := newMockStore(t)
	appt := sampleAppointment()
	appt.Status = StatusCompleted
	since := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(since).
		WillReturnRows(appointmentRows(appt))

	got, err := store.ListCompletedNeedingFollowUp(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusCompleted, got[0].Status)
}

func TestFindFollowUpForNone(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	got, err := store.FindFollowUpFor(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMarkFollowUpSent(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkFollowUpSent(context.Background(), id))
}

func TestMarkFollowUpSentAlreadySet(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.Error(t, store.MarkFollowUpSent(context.Background(), id))
}

func TestUpdateStatusGuarded(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs("confirmed", pgxmock.AnyArg(), id, []string{"scheduled"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateStatus(context.Background(), id, StatusConfirmed))
}

func TestUpdateStatusRejected(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs("completed", pgxmock.AnyArg(), id, []string{"confirmed"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateStatus(context.Background(), id, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusNoPath(t *testing.T) {
	store, _ := newMockStore(t)
	err := store.UpdateStatus(context.Background(), uuid.New(), StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
