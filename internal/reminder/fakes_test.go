package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/reminder-service/internal/appointment"
	"github.com/afyalink/reminder-service/internal/directory"
	"github.com/afyalink/reminder-service/internal/messaging"
)

// fakeReminderStore is an in-memory stand-in for the pgx store.
type fakeReminderStore struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*Reminder
	listErr   error
	markErr   error
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{reminders: make(map[uuid.UUID]*Reminder)}
}

func (f *fakeReminderStore) Create(ctx context.Context, r *Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	cp := *r
	f.reminders[r.ID] = &cp
	return nil
}

func (f *fakeReminderStore) ListDue(ctx context.Context, asOf time.Time) ([]Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var due []Reminder
	for _, r := range f.reminders {
		if r.Status == StatusPending && !r.SendAt.After(asOf) {
			due = append(due, *r)
		}
	}
	return due, nil
}

func (f *fakeReminderStore) MarkSent(ctx context.Context, id uuid.UUID, at time.Time, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	r := f.reminders[id]
	if r == nil || r.Status != StatusPending {
		return errNotPending
	}
	r.Status = StatusSent
	r.SentAt = &at
	r.Message = message
	return nil
}

func (f *fakeReminderStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	r := f.reminders[id]
	if r == nil || r.Status != StatusPending {
		return errNotPending
	}
	r.Status = StatusFailed
	return nil
}

func (f *fakeReminderStore) get(id uuid.UUID) Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.reminders[id]
}

func (f *fakeReminderStore) all() []Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Reminder, 0, len(f.reminders))
	for _, r := range f.reminders {
		out = append(out, *r)
	}
	return out
}

// fakeDirectory resolves people and hospitals from fixed maps.
type fakeDirectory struct {
	users     map[uuid.UUID]*directory.Person
	doctors   map[uuid.UUID]*directory.Person
	hospitals map[uuid.UUID]*directory.Hospital
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:     make(map[uuid.UUID]*directory.Person),
		doctors:   make(map[uuid.UUID]*directory.Person),
		hospitals: make(map[uuid.UUID]*directory.Hospital),
	}
}

func (f *fakeDirectory) FindUser(ctx context.Context, id uuid.UUID) (*directory.Person, error) {
	if p, ok := f.users[id]; ok {
		return p, nil
	}
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) FindDoctor(ctx context.Context, doctorID uuid.UUID) (*directory.Person, error) {
	if p, ok := f.doctors[doctorID]; ok {
		return p, nil
	}
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) FindHospital(ctx context.Context, id uuid.UUID) (*directory.Hospital, error) {
	if h, ok := f.hospitals[id]; ok {
		return h, nil
	}
	return nil, directory.ErrNotFound
}

// fakeAppointments resolves appointments from a fixed map.
type fakeAppointments struct {
	appts map[uuid.UUID]*appointment.Appointment
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{appts: make(map[uuid.UUID]*appointment.Appointment)}
}

func (f *fakeAppointments) FindByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		return a, nil
	}
	return nil, appointment.ErrNotFound
}

// recordingSender captures every send and optionally fails.
type recordingSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	delay time.Duration
}

type sentMessage struct {
	To   string
	Body string
}

func (s *recordingSender) Send(ctx context.Context, to, body string) (messaging.Result, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return messaging.Result{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return messaging.Result{}, s.err
	}
	s.sent = append(s.sent, sentMessage{To: to, Body: body})
	return messaging.Result{ProviderMessageID: "prov-1"}, nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

var errNotPending = errors.New("reminder is not pending")
