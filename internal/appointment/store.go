package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no appointment matches the query.
var ErrNotFound = errors.New("appointment not found")

// ErrInvalidTransition is returned when a status update is not permitted by
// the state machine (no row matched the guarded UPDATE).
var ErrInvalidTransition = errors.New("appointment status transition not allowed")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const appointmentColumns = `id, patient_id, doctor_id, hospital_id, scheduled_at, type, reason, notes, status, follow_up_sent, follow_up_of, created_at, updated_at`

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates a new appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// FindByID returns one appointment or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointment: find by id: %w", err)
	}
	return appt, nil
}

// ListCompletedNeedingFollowUp returns completed appointments on or after the
// given date whose follow-up has not been sent, oldest first so overdue
// follow-ups are not starved by newer ones.
func (s *Store) ListCompletedNeedingFollowUp(ctx context.Context, since time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'completed' AND scheduled_at >= $1 AND follow_up_sent = FALSE
		ORDER BY scheduled_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("appointment: list completed needing follow-up: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// FindFollowUpFor returns the earliest appointment booked as a follow-up to
// the given appointment, or nil when none exists.
func (s *Store) FindFollowUpFor(ctx context.Context, originalID uuid.UUID) (*Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE follow_up_of = $1 AND status NOT IN ('cancelled')
		ORDER BY scheduled_at ASC LIMIT 1`, originalID)
	if err != nil {
		return nil, fmt.Errorf("appointment: find follow-up for: %w", err)
	}
	defer rows.Close()
	appts, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, nil
	}
	return &appts[0], nil
}

// MarkFollowUpSent flips the follow-up flag. The guard keeps the flag
// one-way so an appointment is never followed up twice.
func (s *Store) MarkFollowUpSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET follow_up_sent = TRUE, updated_at = $1
		WHERE id = $2 AND follow_up_sent = FALSE`, now, id)
	if err != nil {
		return fmt.Errorf("appointment: mark follow-up sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment: mark follow-up sent: no pending appointment with id %s", id)
	}
	return nil
}

// UpdateStatus advances an appointment to the target status. The UPDATE is
// guarded by the statuses the machine allows as predecessors, so concurrent
// or repeated transitions cannot move a row backwards.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) error {
	prior := PriorStatuses(to)
	if len(prior) == 0 {
		return fmt.Errorf("appointment: update status: %w: no path to %s", ErrInvalidTransition, to)
	}
	allowed := make([]string, len(prior))
	for i, p := range prior {
		allowed[i] = string(p)
	}
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)`, string(to), now, id, allowed)
	if err != nil {
		return fmt.Errorf("appointment: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment: update status to %s for %s: %w", to, id, ErrInvalidTransition)
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.HospitalID, &a.ScheduledAt,
		&a.Type, &a.Reason, &a.Notes, &status, &a.FollowUpSent, &a.FollowUpOf,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointment: scan: %w", err)
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}
