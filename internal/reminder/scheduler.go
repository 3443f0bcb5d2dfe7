package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/reminder-service/internal/appointment"
	"github.com/afyalink/reminder-service/internal/directory"
	"github.com/afyalink/reminder-service/internal/messaging"
	"github.com/afyalink/reminder-service/pkg/logging"
)

// creatorStore is the slice of the reminder store the scheduler needs.
type creatorStore interface {
	Create(ctx context.Context, r *Reminder) error
}

// contactResolver resolves the people a reminder set addresses.
type contactResolver interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.Person, error)
	FindDoctor(ctx context.Context, doctorID uuid.UUID) (*directory.Person, error)
}

// Scheduler creates the reminder set for a freshly booked appointment.
type Scheduler struct {
	store    creatorStore
	contacts contactResolver
	logger   *logging.Logger
}

// NewScheduler creates a reminder-set scheduler.
func NewScheduler(store creatorStore, contacts contactResolver, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, contacts: contacts, logger: logger}
}

// ScheduleForAppointment creates one pending reminder per enabled channel per
// requested offset, with send_at = appointment time minus the offset. The
// earliest interval is the confirmation reminder; the rest are plain
// reminders. Called once at booking time, not on every tick.
func (s *Scheduler) ScheduleForAppointment(ctx context.Context, appt *appointment.Appointment, prefs Preferences) ([]Reminder, error) {
	patient, err := s.contacts.FindUser(ctx, appt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("reminder: schedule: resolve patient: %w", err)
	}

	offsets := prefs.Offsets()
	smallest := offsets[0]
	for _, o := range offsets {
		if o < smallest {
			smallest = o
		}
	}

	var created []Reminder
	for _, offset := range offsets {
		purpose := PurposeReminder
		if offset == smallest {
			purpose = PurposeConfirmation
		}
		sendAt := appt.ScheduledAt.Add(-time.Duration(offset) * time.Hour)

		for _, ch := range prefs.Channels() {
			address := addressFor(patient, ch)
			if address == "" {
				s.logger.Warn("reminder: no contact on file for channel",
					"channel", ch, "recipient_id", patient.ID)
				continue
			}
			r := Reminder{
				AppointmentID: appt.ID,
				RecipientID:   patient.ID,
				RecipientRole: directory.RolePatient,
				Channel:       ch,
				Address:       address,
				Purpose:       purpose,
				SendAt:        sendAt,
				Status:        StatusPending,
				PrefSMS:       prefs.SMS,
				PrefWhatsApp:  prefs.WhatsApp,
				PrefEmail:     prefs.Email,
			}
			if err := s.store.Create(ctx, &r); err != nil {
				return created, fmt.Errorf("reminder: schedule: %w", err)
			}
			created = append(created, r)
		}
	}

	if prefs.DoctorCopy {
		doctorReminders, err := s.scheduleDoctorCopy(ctx, appt, prefs, smallest)
		if err != nil {
			return created, err
		}
		created = append(created, doctorReminders...)
	}

	s.logger.Info("reminder set scheduled",
		"appointment_id", appt.ID,
		"count", len(created),
		"offsets", offsets,
	)
	return created, nil
}

// scheduleDoctorCopy schedules an SMS heads-up for the doctor at the earliest
// interval only.
func (s *Scheduler) scheduleDoctorCopy(ctx context.Context, appt *appointment.Appointment, prefs Preferences, offset int) ([]Reminder, error) {
	doctor, err := s.contacts.FindDoctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("reminder: schedule: resolve doctor: %w", err)
	}
	address := addressFor(doctor, messaging.ChannelSMS)
	if address == "" {
		s.logger.Warn("reminder: doctor has no phone on file", "doctor_user_id", doctor.ID)
		return nil, nil
	}
	r := Reminder{
		AppointmentID: appt.ID,
		RecipientID:   doctor.ID,
		RecipientRole: directory.RoleDoctor,
		Channel:       messaging.ChannelSMS,
		Address:       address,
		Purpose:       PurposeReminder,
		SendAt:        appt.ScheduledAt.Add(-time.Duration(offset) * time.Hour),
		Status:        StatusPending,
		PrefSMS:       prefs.SMS,
		PrefWhatsApp:  prefs.WhatsApp,
		PrefEmail:     prefs.Email,
	}
	if err := s.store.Create(ctx, &r); err != nil {
		return nil, fmt.Errorf("reminder: schedule doctor copy: %w", err)
	}
	return []Reminder{r}, nil
}

// addressFor returns the stored address for a channel. Phone numbers are
// canonicalized to E.164 so inbound replies, normalized the same way, match
// the reminder they answer.
func addressFor(p *directory.Person, ch messaging.Channel) string {
	switch ch {
	case messaging.ChannelSMS, messaging.ChannelWhatsApp:
		if p.Phone == "" {
			return ""
		}
		return messaging.NormalizeE164(p.Phone)
	case messaging.ChannelEmail:
		return p.Email
	}
	return ""
}
