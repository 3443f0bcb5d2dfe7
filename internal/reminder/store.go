package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/afyalink/reminder-service/internal/directory"
	"github.com/afyalink/reminder-service/internal/messaging"
)

// ErrInvalidTransition is returned when a guarded status update finds the
// reminder outside the expected prior status.
var ErrInvalidTransition = errors.New("reminder status transition not permitted")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const reminderColumns = `id, appointment_id, recipient_id, recipient_role, channel, address, purpose, send_at, status, message, sent_at, response, responded_at, pref_sms, pref_whatsapp, pref_email, created_at, updated_at`

// Store provides persistence for reminders.
type Store struct {
	db DB
}

// NewStore creates a new reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a new reminder. send_at is set once here and never mutated.
func (s *Store) Create(ctx context.Context, r *Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Purpose == "" {
		r.Purpose = PurposeReminder
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO reminders (id, appointment_id, recipient_id, recipient_role, channel, address, purpose, send_at, status, message, pref_sms, pref_whatsapp, pref_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.AppointmentID, r.RecipientID, string(r.RecipientRole), string(r.Channel),
		r.Address, string(r.Purpose), r.SendAt, string(r.Status), r.Message,
		r.PrefSMS, r.PrefWhatsApp, r.PrefEmail, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reminder: create: %w", err)
	}
	return nil
}

// ListDue returns all pending reminders whose send_at is on or before the
// given time, oldest first.
func (s *Store) ListDue(ctx context.Context, asOf time.Time) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = 'pending' AND send_at <= $1
		ORDER BY send_at ASC`, asOf)
	if err != nil {
		return nil, fmt.Errorf("reminder: list due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListByAppointment returns every reminder tied to an appointment.
func (s *Store) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE appointment_id = $1
		ORDER BY send_at ASC`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("reminder: list by appointment: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// FindSentByAddress returns the most recently sent reminder for a contact
// address, or nil when none exists. Used to attribute inbound replies.
func (s *Store) FindSentByAddress(ctx context.Context, address string) (*Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE address = $1 AND status = 'sent'
		ORDER BY sent_at DESC LIMIT 1`, address)
	if err != nil {
		return nil, fmt.Errorf("reminder: find sent by address: %w", err)
	}
	defer rows.Close()
	reminders, err := scanReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(reminders) == 0 {
		return nil, nil
	}
	return &reminders[0], nil
}

// MarkSent transitions a reminder from pending to sent, recording the message
// that actually went out.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID, at time.Time, message string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $1, message = $2, updated_at = $1
		WHERE id = $3 AND status = 'pending'`, at, message, id)
	if err != nil {
		return fmt.Errorf("reminder: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder: mark sent %s: %w", id, ErrInvalidTransition)
	}
	return nil
}

// MarkFailed transitions a reminder from pending to failed. A failed reminder
// is terminal; the retry mechanism is a fresh reminder at a later interval.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'failed', updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("reminder: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder: mark failed %s: %w", id, ErrInvalidTransition)
	}
	return nil
}

// RecordResponse applies a recipient reply to a sent reminder. Only the three
// post-sent statuses are accepted; the guard keeps terminal rows untouched.
func (s *Store) RecordResponse(ctx context.Context, id uuid.UUID, to Status, response string) error {
	if !CanTransition(StatusSent, to) {
		return fmt.Errorf("reminder: record response: %s: %w", to, ErrInvalidTransition)
	}
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = $1, response = $2, responded_at = $3, updated_at = $3
		WHERE id = $4 AND status = 'sent'`, string(to), response, now, id)
	if err != nil {
		return fmt.Errorf("reminder: record response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder: record response %s: %w", id, ErrInvalidTransition)
	}
	return nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var role, channel, purpose, status string
		err := rows.Scan(
			&r.ID, &r.AppointmentID, &r.RecipientID, &role, &channel,
			&r.Address, &purpose, &r.SendAt, &status, &r.Message,
			&r.SentAt, &r.Response, &r.RespondedAt,
			&r.PrefSMS, &r.PrefWhatsApp, &r.PrefEmail,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminder: scan: %w", err)
		}
		r.RecipientRole = directory.Role(role)
		r.Channel = messaging.Channel(channel)
		r.Purpose = Purpose(purpose)
		r.Status = Status(status)
		result = append(result, r)
	}
	return result, rows.Err()
}
