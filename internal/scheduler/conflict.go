package scheduler

import "time"

// Assignment is the minimal view of a persisted assignment needed for
// conflict detection.
type Assignment struct {
	ID            string
	AttendantID   string
	AttendantName string
	EventID       string
	EventName     string
	EventDate     time.Time
}

// Conflict details an existing assignment that collides with a candidate on
// the same calendar date. Callers present it to users or wrap it in a typed
// error.
type Conflict struct {
	AssignmentID  string
	AttendantName string
	EventID       string
	EventName     string
	Date          time.Time
}

// DetectConflicts identifies conflicts for the candidate assignment against
// existing ones. Two assignments conflict when they belong to the same
// attendant and their events fall on the same calendar date; the candidate's
// own event is never a conflict with itself. Results preserve the order of
// the existing slice.
func DetectConflicts(existing []Assignment, candidate Assignment) []Conflict {
	if candidate.AttendantID == "" {
		return nil
	}

	var conflicts []Conflict
	for _, assignment := range existing {
		if assignment.AttendantID != candidate.AttendantID {
			continue
		}
		if assignment.EventID == candidate.EventID {
			continue
		}
		if !SameCalendarDay(assignment.EventDate, candidate.EventDate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			AssignmentID:  assignment.ID,
			AttendantName: assignment.AttendantName,
			EventID:       assignment.EventID,
			EventName:     assignment.EventName,
			Date:          DateOnly(assignment.EventDate),
		})
	}
	return conflicts
}

// SameCalendarDay reports whether two instants fall on the same calendar
// date, ignoring time of day. The comparison happens in each value's own
// location after normalising to UTC-free date components, so two events on
// the same day with different times still collide.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates an instant to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
