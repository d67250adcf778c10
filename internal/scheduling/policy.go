package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// Policy holds the business rules of a station calendar.
type Policy struct {
	OpenAt      TimeOfDay
	CloseAt     TimeOfDay
	SlotLength  time.Duration
	MinDuration time.Duration
	// MaxDuration bounds a single appointment. Storage lookups rely on it to find every
	// appointment that may still be running at a given instant.
	MaxDuration time.Duration
	ClosedDays  []time.Weekday
	// RebookLeadDays is how many days before the certificate expiry a successor may be booked.
	RebookLeadDays      int
	DefaultPeriodMonths int
	// CountScheduled makes a future scheduled inspection count as a valid certificate.
	CountScheduled bool
	Location       *time.Location
}

// DefaultPolicy returns the rules used by ITP stations: Monday to Saturday, 09:00-19:00,
// 45 minute slots.
func DefaultPolicy() Policy {
	return Policy{
		OpenAt:              Clock(9, 0),
		CloseAt:             Clock(19, 0),
		SlotLength:          45 * time.Minute,
		MinDuration:         15 * time.Minute,
		MaxDuration:         10 * time.Hour,
		ClosedDays:          []time.Weekday{time.Sunday},
		RebookLeadDays:      30,
		DefaultPeriodMonths: 12,
		CountScheduled:      true,
		Location:            time.UTC,
	}
}

// Validate reports malformed rules.
func (p Policy) Validate() error {
	if !p.OpenAt.Valid() || !p.CloseAt.Valid() {
		return errors.New("business hours must be within one day")
	}
	if p.CloseAt <= p.OpenAt {
		return fmt.Errorf("closing time %s must be after opening time %s", p.CloseAt, p.OpenAt)
	}
	if p.SlotLength <= 0 || p.SlotLength%time.Minute != 0 {
		return fmt.Errorf("slot length must be a positive number of minutes, got %s", p.SlotLength)
	}
	if p.MinDuration <= 0 {
		return fmt.Errorf("minimum duration must be positive, got %s", p.MinDuration)
	}
	if p.MaxDuration < p.MinDuration {
		return fmt.Errorf("maximum duration %s must not be below the minimum %s", p.MaxDuration, p.MinDuration)
	}
	if p.RebookLeadDays < 0 {
		return fmt.Errorf("rebook lead days must not be negative, got %d", p.RebookLeadDays)
	}
	if p.DefaultPeriodMonths <= 0 {
		return fmt.Errorf("default period must be positive, got %d months", p.DefaultPeriodMonths)
	}
	return nil
}

// IsClosed reports whether the station is closed on the calendar day of t.
func (p Policy) IsClosed(t time.Time) bool {
	day := t.In(p.location()).Weekday()
	for _, d := range p.ClosedDays {
		if d == day {
			return true
		}
	}
	return false
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Zone returns the station time zone, UTC when unset.
func (p Policy) Zone() *time.Location {
	return p.location()
}

// Day truncates t to midnight of its calendar day in the station time zone.
func (p Policy) Day(t time.Time) time.Time {
	t = t.In(p.location())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.location())
}
