package reminder

import (
	"fmt"
	"time"

	"github.com/afyalink/reminder-service/internal/directory"
)

// TemplateInput carries the resolved context a reminder message needs.
type TemplateInput struct {
	RecipientName    string
	CounterPartyName string
	HospitalName     string
	HospitalAddress  string
	When             string // pre-formatted date+time
}

// replyInstructions is appended to confirmation reminders so recipients know
// how to answer.
const replyInstructions = "Reply YES to confirm, NO to cancel, or RESCHEDULE to pick a new time."

// RenderMessage produces the deterministic reminder text for a purpose and
// recipient role. Patients see the doctor's name; doctors see the patient's.
func RenderMessage(purpose Purpose, role directory.Role, in TemplateInput) string {
	name := in.RecipientName
	if name == "" {
		name = "there"
	}

	location := ""
	if in.HospitalName != "" {
		location = " at " + in.HospitalName
		if in.HospitalAddress != "" {
			location += " (" + in.HospitalAddress + ")"
		}
	}

	if role == directory.RoleDoctor {
		if purpose == PurposeConfirmation {
			return fmt.Sprintf(
				"Hello Dr. %s, you have an appointment with %s on %s%s. %s",
				name, in.CounterPartyName, in.When, location, replyInstructions,
			)
		}
		return fmt.Sprintf(
			"Hello Dr. %s, reminder: your appointment with %s is on %s%s.",
			name, in.CounterPartyName, in.When, location,
		)
	}

	if purpose == PurposeConfirmation {
		return fmt.Sprintf(
			"Hi %s! This is a reminder of your appointment with Dr. %s on %s%s. %s",
			name, in.CounterPartyName, in.When, location, replyInstructions,
		)
	}
	return fmt.Sprintf(
		"Hi %s! Your appointment with Dr. %s is coming up on %s%s. See you soon!",
		name, in.CounterPartyName, in.When, location,
	)
}

// FormatWhen renders an appointment time the way messages present it.
func FormatWhen(t time.Time) string {
	return t.Format("Monday, January 2 at 3:04 PM")
}
