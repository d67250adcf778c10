package scheduling

import (
	"fmt"
	"time"
)

// RejectionKind classifies a refused scheduling request.
type RejectionKind string

const (
	RejectClosedDay    RejectionKind = "closed_day"
	RejectOverlap      RejectionKind = "overlap"
	RejectBelowMinimum RejectionKind = "below_minimum_duration"
	RejectAboveMaximum RejectionKind = "above_maximum_duration"
	RejectOffGrid      RejectionKind = "not_a_slot"
	RejectBeforeWindow RejectionKind = "before_window"
	RejectAfterWindow  RejectionKind = "after_window"
)

const dateLayout = "2006-01-02"

// Rejection is a user-correctable scheduling outcome. It carries enough data for the
// caller to tell the user what to change. Only the fields relevant to Kind are set.
type Rejection struct {
	Kind RejectionKind

	// Date is the calendar day of the refused request. For not_a_slot it is the
	// requested start in the station time zone.
	Date time.Time

	ConflictID       string
	ConflictInterval *Interval
	OverlapBy        time.Duration

	MinDuration time.Duration
	MaxDuration time.Duration
	Requested   time.Duration

	Earliest time.Time
	Expiry   time.Time
}

// Message renders the rejection as a sentence suitable for end users.
func (r *Rejection) Message() string {
	switch r.Kind {
	case RejectClosedDay:
		return fmt.Sprintf("The station is closed on %s (%s).", r.Date.Weekday(), r.Date.Format(dateLayout))
	case RejectOverlap:
		if r.ConflictInterval == nil {
			return "The appointment overlaps an existing booking."
		}
		return fmt.Sprintf("The appointment overlaps the booking from %s to %s by %d minutes.",
			r.ConflictInterval.Start.Format("2006-01-02 15:04"),
			r.ConflictInterval.End.Format("15:04"),
			int(r.OverlapBy/time.Minute))
	case RejectBelowMinimum:
		return fmt.Sprintf("The appointment must last at least %d minutes, got %d.",
			int(r.MinDuration/time.Minute), int(r.Requested/time.Minute))
	case RejectAboveMaximum:
		return fmt.Sprintf("The appointment must not last longer than %d minutes, got %d.",
			int(r.MaxDuration/time.Minute), int(r.Requested/time.Minute))
	case RejectOffGrid:
		return fmt.Sprintf("%s on %s is not a bookable slot start.",
			r.Date.Format("15:04"), r.Date.Format(dateLayout))
	case RejectBeforeWindow:
		return fmt.Sprintf("The next inspection cannot be booked before %s. The current certificate expires on %s.",
			r.Earliest.Format(dateLayout), r.Expiry.Format(dateLayout))
	case RejectAfterWindow:
		return fmt.Sprintf("The next inspection cannot be booked after the certificate expiry date (%s).",
			r.Expiry.Format(dateLayout))
	default:
		return "The request was rejected."
	}
}

// Error makes a Rejection usable as an error by callers that propagate it.
func (r *Rejection) Error() string {
	return string(r.Kind) + ": " + r.Message()
}
