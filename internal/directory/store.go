// Package directory resolves the people and places a notification references:
// patient and doctor contact records and hospital details. Doctor profiles are
// only reachable through their owning user account, so a doctor's name and
// contact details always come from a real user row.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("directory record not found")

// Role distinguishes patient accounts from doctor accounts.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Person is a resolvable notification recipient or counter-party.
type Person struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`

	// Notification channel preferences on file for this person.
	PrefSMS      bool `json:"pref_sms"`
	PrefWhatsApp bool `json:"pref_whatsapp"`
	PrefEmail    bool `json:"pref_email"`
}

// Hospital is the facility an appointment takes place at.
type Hospital struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides lookups over users, doctors and hospitals.
type Store struct {
	db DB
}

// NewStore creates a directory store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// FindUser returns a user account by id.
func (s *Store) FindUser(ctx context.Context, id uuid.UUID) (*Person, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, full_name, phone, email, role, pref_sms, pref_whatsapp, pref_email
		FROM users
		WHERE id = $1`, id)
	return scanPerson(row, "find user")
}

// FindDoctor resolves a doctor profile through its owning user account.
// The join means an orphaned profile simply does not resolve; the schema's
// NOT NULL foreign key prevents creating one in the first place.
func (s *Store) FindDoctor(ctx context.Context, doctorID uuid.UUID) (*Person, error) {
	row := s.db.QueryRow(ctx, `
		SELECT u.id, u.full_name, u.phone, u.email, u.role, u.pref_sms, u.pref_whatsapp, u.pref_email
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = $1`, doctorID)
	return scanPerson(row, "find doctor")
}

// FindHospital returns a hospital by id.
func (s *Store) FindHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, address
		FROM hospitals
		WHERE id = $1`, id)
	var h Hospital
	if err := row.Scan(&h.ID, &h.Name, &h.Address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory: find hospital: %w", err)
	}
	return &h, nil
}

func scanPerson(row pgx.Row, op string) (*Person, error) {
	var p Person
	var role string
	err := row.Scan(&p.ID, &p.FullName, &p.Phone, &p.Email, &role, &p.PrefSMS, &p.PrefWhatsApp, &p.PrefEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory: %s: %w", op, err)
	}
	p.Role = Role(role)
	return &p, nil
}
