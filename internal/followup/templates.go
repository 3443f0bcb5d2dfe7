package followup

import (
	"fmt"
	"strings"
	"time"
)

// noteExcerptLimit bounds how much of the doctor's visit notes a follow-up
// message quotes.
const noteExcerptLimit = 100

// Input carries the resolved context a follow-up message needs.
type Input struct {
	PatientName  string
	DoctorName   string
	VisitDate    time.Time
	Notes        string
	FollowUpDate *time.Time
	WellnessTip  string
}

// PatientMessage composes the follow-up text sent to the patient.
func PatientMessage(in Input) string {
	name := in.PatientName
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! We hope you are feeling well after your visit with Dr. %s on %s.",
		name, in.DoctorName, in.VisitDate.Format("Monday, January 2"))

	if excerpt := ExcerptNotes(in.Notes, noteExcerptLimit); excerpt != "" {
		fmt.Fprintf(&b, " Notes from your doctor: %s", excerpt)
	}

	if in.FollowUpDate != nil {
		fmt.Fprintf(&b, " Your next follow-up is on %s.", in.FollowUpDate.Format("Monday, January 2 at 3:04 PM"))
	} else {
		b.WriteString(" If you'd like a follow-up visit, just reply or book anytime.")
	}

	if in.WellnessTip != "" {
		fmt.Fprintf(&b, " %s", in.WellnessTip)
	}
	return b.String()
}

// DoctorNotice composes the short courtesy note sent to the doctor.
func DoctorNotice(in Input) string {
	return fmt.Sprintf("Follow-up message sent to %s regarding their %s visit.",
		in.PatientName, in.VisitDate.Format("January 2"))
}

// ExcerptNotes truncates free-text visit notes to a bounded length, appending
// an ellipsis marker when truncated.
func ExcerptNotes(notes string, limit int) string {
	notes = strings.TrimSpace(notes)
	if notes == "" || limit <= 0 {
		return ""
	}
	runes := []rune(notes)
	if len(runes) <= limit {
		return notes
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
