package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/reminder-service/internal/appointment"
	"github.com/afyalink/reminder-service/internal/directory"
	"github.com/afyalink/reminder-service/internal/messaging"
	"github.com/afyalink/reminder-service/internal/observability/metrics"
	"github.com/afyalink/reminder-service/pkg/logging"
)

// dispatchStore is the slice of the reminder store the worker needs.
type dispatchStore interface {
	ListDue(ctx context.Context, asOf time.Time) ([]Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time, message string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// appointmentFinder resolves the parent appointment of a due reminder.
type appointmentFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// personResolver resolves recipients, counter-parties and hospitals.
type personResolver interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.Person, error)
	FindDoctor(ctx context.Context, doctorID uuid.UUID) (*directory.Person, error)
	FindHospital(ctx context.Context, id uuid.UUID) (*directory.Hospital, error)
}

// senderRegistry resolves the sender for a reminder's channel.
type senderRegistry interface {
	For(ch messaging.Channel) (messaging.ChannelSender, bool)
}

// Worker processes due reminders on a fixed tick and dispatches each exactly once.
type Worker struct {
	reminders    dispatchStore
	appointments appointmentFinder
	contacts     personResolver
	senders      senderRegistry
	metrics      *metrics.SchedulerMetrics
	logger       *logging.Logger
	interval     time.Duration
	sendTimeout  time.Duration
	now          func() time.Time
}

// NewWorker creates a dispatch worker with default cadence.
func NewWorker(reminders dispatchStore, appointments appointmentFinder, contacts personResolver, senders senderRegistry, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		reminders:    reminders,
		appointments: appointments,
		contacts:     contacts,
		senders:      senders,
		logger:       logger,
		interval:     time.Minute,
		sendTimeout:  15 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithSendTimeout(d time.Duration) *Worker {
	if d > 0 {
		w.sendTimeout = d
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.SchedulerMetrics) *Worker {
	w.metrics = m
	return w
}

// WithNow overrides the clock. Tests only.
func (w *Worker) WithNow(now func() time.Time) *Worker {
	if now != nil {
		w.now = now
	}
	return w
}

// Run executes a dispatch pass immediately and then on every tick until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.runPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *Worker) runPass(ctx context.Context) {
	if _, err := w.ProcessDue(ctx); err != nil {
		w.logger.Error("reminder worker: pass aborted", "error", err)
	}
}

// ProcessDue finds all due pending reminders and dispatches each one.
// Per-reminder failures (missing entities, channel errors) are absorbed by
// marking the reminder failed; repository errors abort the pass and are
// retried wholesale on the next tick. Returns the number of reminders that
// left pending state.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.reminders.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("reminder worker: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Info("reminder worker: processing due reminders", "count", len(due))

	processed := 0
	for i := range due {
		r := &due[i]
		if err := w.processOne(ctx, r); err != nil {
			// Repository failure: stop here, partial progress is already persisted.
			return processed, fmt.Errorf("reminder worker: reminder %s: %w", r.ID, err)
		}
		processed++
	}
	return processed, nil
}

// processOne dispatches a single reminder. The returned error is non-nil only
// for persistence failures; dispatch and resolution failures end with the
// reminder marked failed and a nil return.
func (w *Worker) processOne(ctx context.Context, r *Reminder) error {
	msg, err := w.prepareMessage(ctx, r)
	if err != nil {
		// A missing entity makes this reminder undeliverable; anything else
		// is a persistence problem and aborts the pass.
		if !errors.Is(err, appointment.ErrNotFound) && !errors.Is(err, directory.ErrNotFound) {
			return err
		}
		w.logger.Error("reminder worker: cannot prepare reminder",
			"id", r.ID, "appointment_id", r.AppointmentID, "error", err)
		return w.fail(ctx, r)
	}

	sender, ok := w.senders.For(r.Channel)
	if !ok {
		w.logger.Error("reminder worker: no sender for channel", "id", r.ID, "channel", r.Channel)
		return w.fail(ctx, r)
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	res, err := sender.Send(sendCtx, r.Address, msg)
	cancel()
	if err != nil {
		w.logger.Error("reminder worker: dispatch failed",
			"id", r.ID, "channel", r.Channel, "error", err)
		return w.fail(ctx, r)
	}

	if err := w.reminders.MarkSent(ctx, r.ID, w.now(), msg); err != nil {
		return err
	}
	w.metrics.ObserveDispatch(string(r.Channel), "sent")
	w.logger.Info("reminder worker: reminder sent",
		"id", r.ID, "channel", r.Channel, "provider_message_id", res.ProviderMessageID)
	return nil
}

func (w *Worker) fail(ctx context.Context, r *Reminder) error {
	if err := w.reminders.MarkFailed(ctx, r.ID); err != nil {
		return err
	}
	w.metrics.ObserveDispatch(string(r.Channel), "failed")
	return nil
}

// prepareMessage resolves the entities a reminder references and renders its
// text. Any missing required entity is an error; a missing hospital is
// tolerated since the message works without it.
func (w *Worker) prepareMessage(ctx context.Context, r *Reminder) (string, error) {
	appt, err := w.appointments.FindByID(ctx, r.AppointmentID)
	if err != nil {
		return "", fmt.Errorf("resolve appointment: %w", err)
	}

	recipient, err := w.contacts.FindUser(ctx, r.RecipientID)
	if err != nil {
		return "", fmt.Errorf("resolve recipient: %w", err)
	}

	var counterParty *directory.Person
	if r.RecipientRole == directory.RoleDoctor {
		counterParty, err = w.contacts.FindUser(ctx, appt.PatientID)
	} else {
		counterParty, err = w.contacts.FindDoctor(ctx, appt.DoctorID)
	}
	if err != nil {
		return "", fmt.Errorf("resolve counter-party: %w", err)
	}

	in := TemplateInput{
		RecipientName:    recipient.FullName,
		CounterPartyName: counterParty.FullName,
		When:             FormatWhen(appt.ScheduledAt),
	}
	if hospital, err := w.contacts.FindHospital(ctx, appt.HospitalID); err == nil {
		in.HospitalName = hospital.Name
		in.HospitalAddress = hospital.Address
	} else if !errors.Is(err, directory.ErrNotFound) {
		return "", fmt.Errorf("resolve hospital: %w", err)
	}

	return RenderMessage(r.Purpose, r.RecipientRole, in), nil
}
