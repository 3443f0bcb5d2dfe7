// Package appointment holds the appointment model and its status machine.
// Appointments are created by the booking flow; this core only advances their
// status and follow-up flag.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of an appointment.
type Status string

const (
	StatusPending             Status = "pending"
	StatusScheduled           Status = "scheduled"
	StatusConfirmed           Status = "confirmed"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
	StatusRescheduleRequested Status = "reschedule_requested"
)

// transitions lists the states each status may advance to. Transitions are
// monotonic: completed, cancelled and reschedule_requested never move again
// through this core (rebooking re-enters via the external booking flow).
var transitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusRescheduleRequested},
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PriorStatuses returns the statuses from which `to` is reachable.
func PriorStatuses(to Status) []Status {
	var out []Status
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// Appointment represents a booked visit between a patient and a doctor.
type Appointment struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	HospitalID   uuid.UUID  `json:"hospital_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Type         string     `json:"type"`
	Reason       string     `json:"reason"`
	Notes        string     `json:"notes"`
	Status       Status     `json:"status"`
	FollowUpSent bool       `json:"follow_up_sent"`
	FollowUpOf   *uuid.UUID `json:"follow_up_of,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
