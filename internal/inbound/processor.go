package inbound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/afyalink/reminder-service/internal/appointment"
	"github.com/afyalink/reminder-service/internal/messaging"
	"github.com/afyalink/reminder-service/internal/reminder"
	"github.com/afyalink/reminder-service/pkg/logging"
)

// Outcomes recorded per processed reply.
const (
	OutcomeApplied        = "applied"
	OutcomeUnknownReply   = "unknown_reply"
	OutcomeNoMatch        = "no_match"
	OutcomeAlreadyHandled = "already_handled"
)

// Reply is one inbound message from a recipient, already normalized to the
// address format reminders are stored under.
type Reply struct {
	From string
	Body string
}

type replyStore interface {
	FindSentByAddress(ctx context.Context, address string) (*reminder.Reminder, error)
	RecordResponse(ctx context.Context, id uuid.UUID, to reminder.Status, response string) error
}

type appointmentUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, to appointment.Status) error
}

type senderRegistry interface {
	For(channel messaging.Channel) (messaging.ChannelSender, bool)
}

// Processor applies recipient replies to the reminder and appointment they
// answer, and composes the acknowledgement sent back.
type Processor struct {
	reminders    replyStore
	appointments appointmentUpdater
	senders      senderRegistry
	logger       *logging.Logger
}

// NewProcessor creates a reply processor.
func NewProcessor(reminders replyStore, appointments appointmentUpdater, senders senderRegistry, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{reminders: reminders, appointments: appointments, senders: senders, logger: logger}
}

// Process handles one reply. The sender address is matched to its most
// recently sent reminder; replies with no match are dropped without a
// response. Repository errors are returned; everything else is absorbed.
func (p *Processor) Process(ctx context.Context, in Reply) (string, error) {
	rem, err := p.reminders.FindSentByAddress(ctx, in.From)
	if err != nil {
		return "", fmt.Errorf("inbound: match reply from %s: %w", in.From, err)
	}
	if rem == nil {
		p.logger.Info("inbound reply had no awaiting reminder", "from", in.From)
		return OutcomeNoMatch, nil
	}

	reminderStatus, apptStatus, ok := interpret(in.Body)
	if !ok {
		p.ack(ctx, rem, unknownReplyAck)
		return OutcomeUnknownReply, nil
	}

	if err := p.reminders.RecordResponse(ctx, rem.ID, reminderStatus, strings.TrimSpace(in.Body)); err != nil {
		if !errors.Is(err, reminder.ErrInvalidTransition) {
			return "", fmt.Errorf("inbound: record response on %s: %w", rem.ID, err)
		}
		// The sent-status guard fails when a second reply races the first.
		p.logger.Warn("reply not applied to reminder", "reminder_id", rem.ID, "error", err)
		p.ack(ctx, rem, ackFor(reminderStatus))
		return OutcomeAlreadyHandled, nil
	}

	if err := p.appointments.UpdateStatus(ctx, rem.AppointmentID, apptStatus); err != nil {
		if !errors.Is(err, appointment.ErrInvalidTransition) && !errors.Is(err, appointment.ErrNotFound) {
			return "", fmt.Errorf("inbound: update appointment %s: %w", rem.AppointmentID, err)
		}
		p.logger.Warn("appointment did not accept reply transition",
			"appointment_id", rem.AppointmentID, "to", string(apptStatus), "error", err)
	}

	p.ack(ctx, rem, ackFor(reminderStatus))
	return OutcomeApplied, nil
}

// interpret maps a reply body onto the reminder and appointment transitions
// it requests. Matching is case-insensitive on the trimmed body.
func interpret(body string) (reminder.Status, appointment.Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(body)) {
	case "YES":
		return reminder.StatusConfirmed, appointment.StatusConfirmed, true
	case "NO":
		return reminder.StatusCancelled, appointment.StatusCancelled, true
	case "RESCHEDULE":
		return reminder.StatusRescheduleRequested, appointment.StatusRescheduleRequested, true
	default:
		return "", "", false
	}
}

const unknownReplyAck = "Sorry, we didn't understand that. Reply YES to confirm, NO to cancel, or RESCHEDULE to pick a new time."

func ackFor(s reminder.Status) string {
	switch s {
	case reminder.StatusConfirmed:
		return "Thank you! Your appointment is confirmed."
	case reminder.StatusCancelled:
		return "Your appointment has been cancelled. We hope to see you again soon."
	case reminder.StatusRescheduleRequested:
		return "We've noted your reschedule request. Our staff will contact you shortly with new times."
	default:
		return unknownReplyAck
	}
}

// ack sends the acknowledgement over the same channel the reminder went out
// on. Failures are logged and dropped; the state change already happened.
func (p *Processor) ack(ctx context.Context, rem *reminder.Reminder, body string) {
	sender, ok := p.senders.For(rem.Channel)
	if !ok {
		p.logger.Warn("no sender for ack channel", "channel", string(rem.Channel))
		return
	}
	if _, err := sender.Send(ctx, rem.Address, body); err != nil {
		p.logger.Warn("ack send failed", "to", rem.Address, "error", err)
	}
}
