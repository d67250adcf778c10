package scheduling

import "time"

// Status is the lifecycle state of an inspection appointment.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Appointment is the booking snapshot the engine reasons about.
type Appointment struct {
	ID              string
	StationID       string
	Start           time.Time
	DurationMinutes int
	Status          Status
	VehicleID       string
	ClientID        string
}

// End returns Start + DurationMinutes.
func (a Appointment) End() time.Time {
	return a.Start.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Interval returns the closed-open interval the appointment occupies.
func (a Appointment) Interval() Interval {
	return Interval{Start: a.Start, End: a.End()}
}

// Blocks reports whether the appointment occupies its station's calendar.
func (a Appointment) Blocks() bool {
	return a.Status == StatusScheduled
}

// Interval is a closed-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether [a.Start,a.End) and [b.Start,b.End) share an instant.
// Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// overlapAmount returns how long a and b overlap; zero when they do not.
func overlapAmount(a, b Interval) time.Duration {
	start, end := a.Start, a.End
	if b.Start.After(start) {
		start = b.Start
	}
	if b.End.Before(end) {
		end = b.End
	}
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}
