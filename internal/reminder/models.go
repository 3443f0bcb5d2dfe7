// Package reminder implements the appointment reminder core: the reminder
// record and its status machine, the reminder-set scheduler that runs at
// booking time, and the dispatch worker that sends due reminders.
package reminder

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/reminder-service/internal/directory"
	"github.com/afyalink/reminder-service/internal/messaging"
)

// Status tracks the lifecycle of a reminder. A reminder gets exactly one
// outbound attempt; later intervals for the same appointment are separate rows.
type Status string

const (
	StatusPending             Status = "pending"
	StatusSent                Status = "sent"
	StatusConfirmed           Status = "confirmed"
	StatusCancelled           Status = "cancelled"
	StatusRescheduleRequested Status = "reschedule_requested"
	StatusFailed              Status = "failed"
)

// Terminal reports whether the status can never advance again.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusRescheduleRequested, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a reminder may move between two statuses.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusSent || to == StatusFailed
	case StatusSent:
		return to == StatusConfirmed || to == StatusCancelled || to == StatusRescheduleRequested
	}
	return false
}

// Purpose distinguishes the message rendered for a reminder.
type Purpose string

const (
	// PurposeConfirmation asks the recipient to reply YES/NO/RESCHEDULE.
	PurposeConfirmation Purpose = "confirmation"
	// PurposeReminder is a plain heads-up at a later interval.
	PurposeReminder Purpose = "reminder"
)

// Reminder is one scheduled outbound notification: one appointment, one
// recipient, one channel, one point in time.
type Reminder struct {
	ID            uuid.UUID         `json:"id"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	RecipientID   uuid.UUID         `json:"recipient_id"`
	RecipientRole directory.Role    `json:"recipient_role"`
	Channel       messaging.Channel `json:"channel"`
	Address       string            `json:"address"`
	Purpose       Purpose           `json:"purpose"`
	SendAt        time.Time         `json:"send_at"`
	Status        Status            `json:"status"`
	Message       string            `json:"message,omitempty"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	Response      *string           `json:"response,omitempty"`
	RespondedAt   *time.Time        `json:"responded_at,omitempty"`

	// Preference snapshot captured at creation time; later preference
	// changes never alter an already-scheduled reminder.
	PrefSMS      bool `json:"pref_sms"`
	PrefWhatsApp bool `json:"pref_whatsapp"`
	PrefEmail    bool `json:"pref_email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preferences is the notification policy captured at booking time.
type Preferences struct {
	SMS      bool
	WhatsApp bool
	Email    bool

	// OffsetHours lists the hour offsets before the appointment at which
	// reminders fire. Empty means DefaultOffsetHours.
	OffsetHours []int

	// DoctorCopy also schedules reminders for the doctor.
	DoctorCopy bool
}

// DefaultOffsetHours is used when a booking carries no explicit offsets.
var DefaultOffsetHours = []int{24, 1}

// Channels returns the enabled delivery channels, most preferred first.
func (p Preferences) Channels() []messaging.Channel {
	var out []messaging.Channel
	if p.WhatsApp {
		out = append(out, messaging.ChannelWhatsApp)
	}
	if p.SMS {
		out = append(out, messaging.ChannelSMS)
	}
	if p.Email {
		out = append(out, messaging.ChannelEmail)
	}
	return out
}

// Offsets returns the configured offsets, defaulting when unset.
func (p Preferences) Offsets() []int {
	if len(p.OffsetHours) == 0 {
		return DefaultOffsetHours
	}
	return p.OffsetHours
}
