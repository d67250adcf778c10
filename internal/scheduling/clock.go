package scheduling

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall clock time expressed in minutes after midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from hours and minutes.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

// Valid reports whether the value fits in a single day, midnight of the next day included.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= minutesPerDay
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add shifts the time of day by d, truncated to whole minutes.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// On places the time of day on the calendar day of date, in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	date = date.In(loc)
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText encodes the value as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
