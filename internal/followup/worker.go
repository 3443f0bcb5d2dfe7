package followup

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

type appointmentStore interface {
	ListCompletedNeedingFollowUp(ctx context.Context, since time.Time) ([]appointment.Appointment, error)
	FindFollowUpFor(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkFollowUpSent(ctx context.Context, id uuid.UUID) error
}

type personResolver interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.Person, error)
	FindDoctor(ctx context.Context, id uuid.UUID) (*directory.Person, error)
}

type senderRegistry interface {
	For(channel messaging.Channel) (messaging.ChannelSender, bool)
}

// Worker periodically messages patients whose recent visits completed without
// a follow-up, and marks each visit so it is messaged at most once.
type Worker struct {
	appointments appointmentStore
	people       personResolver
	senders      senderRegistry
	tips         TipSource
	logger       *logging.Logger
	metrics      *metrics.SchedulerMetrics

	interval    time.Duration
	window      time.Duration
	sendTimeout time.Duration
	now         func() time.Time
}

// NewWorker creates a follow-up worker with a 15 minute pass interval and a
// 7 day completed-visit window.
func NewWorker(appointments appointmentStore, people personResolver, senders senderRegistry, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		appointments: appointments,
		people:       people,
		senders:      senders,
		logger:       logger,
		interval:     15 * time.Minute,
		window:       7 * 24 * time.Hour,
		sendTimeout:  15 * time.Second,
		now:          time.Now,
	}
}

// WithInterval overrides the pass interval.
func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// WithWindow overrides how far back completed visits are considered.
func (w *Worker) WithWindow(d time.Duration) *Worker {
	if d > 0 {
		w.window = d
	}
	return w
}

// WithTips attaches a wellness-tip source. Tips are optional and failures
// never block a follow-up.
func (w *Worker) WithTips(tips TipSource) *Worker {
	w.tips = tips
	return w
}

// WithMetrics attaches pass metrics.
func (w *Worker) WithMetrics(m *metrics.SchedulerMetrics) *Worker {
	w.metrics = m
	return w
}

// WithNow overrides the clock.
func (w *Worker) WithNow(now func() time.Time) *Worker {
	if now != nil {
		w.now = now
	}
	return w
}

// Run executes passes until the context is cancelled. The first pass runs
// immediately.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("follow-up worker started", "interval", w.interval.String(), "window", w.window.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if n, err := w.ProcessCompleted(ctx); err != nil {
			w.logger.Error("follow-up pass failed", "error", err)
		} else if n > 0 {
			w.logger.Info("follow-up pass finished", "processed", n)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("follow-up worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessCompleted runs a single pass over completed visits inside the window,
// oldest first, and returns how many were processed. Repository errors abort
// the pass; per-visit resolution and send failures are absorbed, with the
// visit still marked so it is not retried.
func (w *Worker) ProcessCompleted(ctx context.Context) (int, error) {
	since := w.now().Add(-w.window)
	visits, err := w.appointments.ListCompletedNeedingFollowUp(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("followup: list completed visits: %w", err)
	}

	processed := 0
	for i := range visits {
		if err := w.processOne(ctx, &visits[i]); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (w *Worker) processOne(ctx context.Context, visit *appointment.Appointment) error {
	patient, err := w.people.FindUser(ctx, visit.PatientID)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("followup: resolve patient %s: %w", visit.PatientID, err)
		}
		w.logger.Warn("follow-up skipped, patient not found", "appointment_id", visit.ID, "patient_id", visit.PatientID)
		w.observe("skipped")
		return w.mark(ctx, visit)
	}

	doctor, err := w.people.FindDoctor(ctx, visit.DoctorID)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("followup: resolve doctor %s: %w", visit.DoctorID, err)
		}
		w.logger.Warn("follow-up skipped, doctor not found", "appointment_id", visit.ID, "doctor_id", visit.DoctorID)
		w.observe("skipped")
		return w.mark(ctx, visit)
	}

	in := Input{
		PatientName: patient.FullName,
		DoctorName:  doctor.FullName,
		VisitDate:   visit.ScheduledAt,
		Notes:       visit.Notes,
	}

	next, err := w.appointments.FindFollowUpFor(ctx, visit.ID)
	if err != nil {
		return fmt.Errorf("followup: find booked follow-up for %s: %w", visit.ID, err)
	}
	if next != nil {
		t := next.ScheduledAt
		in.FollowUpDate = &t
	}

	if w.tips != nil {
		if tip, err := w.tips.WellnessTip(ctx, visit.Reason); err != nil {
			w.logger.Warn("wellness tip unavailable", "appointment_id", visit.ID, "error", err)
		} else {
			in.WellnessTip = tip
		}
	}

	channel, address := w.pickChannel(patient)
	if channel == "" {
		w.logger.Warn("follow-up skipped, patient has no reachable channel", "appointment_id", visit.ID, "patient_id", patient.ID)
		w.observe("skipped")
		return w.mark(ctx, visit)
	}

	outcome := "sent"
	if err := w.send(ctx, channel, address, PatientMessage(in)); err != nil {
		w.logger.Error("follow-up send failed", "appointment_id", visit.ID, "channel", string(channel), "error", err)
		outcome = "failed"
	}
	w.observe(outcome)

	// The visit is marked even when the send fails, so a flaky provider
	// cannot turn one follow-up into many.
	if err := w.mark(ctx, visit); err != nil {
		return err
	}

	if outcome == "sent" && doctor.Phone != "" {
		if err := w.send(ctx, messaging.ChannelSMS, doctor.Phone, DoctorNotice(in)); err != nil {
			w.logger.Warn("doctor notice failed", "appointment_id", visit.ID, "error", err)
		}
	}
	return nil
}

func (w *Worker) mark(ctx context.Context, visit *appointment.Appointment) error {
	if err := w.appointments.MarkFollowUpSent(ctx, visit.ID); err != nil {
		return fmt.Errorf("followup: mark visit %s: %w", visit.ID, err)
	}
	return nil
}

// pickChannel selects the patient's preferred reachable channel, preferring
// WhatsApp, then SMS, then email.
func (w *Worker) pickChannel(p *directory.Person) (messaging.Channel, string) {
	if p.PrefWhatsApp && p.Phone != "" {
		return messaging.ChannelWhatsApp, p.Phone
	}
	if p.PrefSMS && p.Phone != "" {
		return messaging.ChannelSMS, p.Phone
	}
	if p.PrefEmail && p.Email != "" {
		return messaging.ChannelEmail, p.Email
	}
	if p.Phone != "" {
		return messaging.ChannelSMS, p.Phone
	}
	if p.Email != "" {
		return messaging.ChannelEmail, p.Email
	}
	return "", ""
}

func (w *Worker) send(ctx context.Context, channel messaging.Channel, to, body string) error {
	sender, ok := w.senders.For(channel)
	if !ok {
		return fmt.Errorf("followup: no sender configured for channel %q", channel)
	}
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	if _, err := sender.Send(sendCtx, to, body); err != nil {
		return err
	}
	return nil
}

func (w *Worker) observe(outcome string) {
	if w.metrics != nil {
		w.metrics.ObserveFollowUp(outcome)
	}
}
