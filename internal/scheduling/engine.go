// Package scheduling decides whether inspection appointments fit a station calendar.
//
// Everything in this package is a pure computation over the snapshot passed in. Callers
// own storage and must re-validate under their own lock right before committing a write.
package scheduling

import (
	"fmt"
	"time"
)

// Engine evaluates scheduling requests against a fixed Policy.
type Engine struct {
	policy Policy
}

// New returns an Engine for p.
func New(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduling policy: %w", err)
	}
	p.ClosedDays = append([]time.Weekday(nil), p.ClosedDays...)
	return &Engine{policy: p}, nil
}

// Policy returns a copy of the rules the engine applies.
func (e *Engine) Policy() Policy {
	p := e.policy
	p.ClosedDays = append([]time.Weekday(nil), p.ClosedDays...)
	return p
}

// IsIntervalAvailable reports whether [start, start+durationMinutes) can be booked at the
// station. See CheckInterval.
func (e *Engine) IsIntervalAvailable(stationID string, start time.Time, durationMinutes int, existing []Appointment, excludeID string) bool {
	return e.CheckInterval(stationID, start, durationMinutes, existing, excludeID) == nil
}

// CheckInterval returns nil when [start, start+durationMinutes) is free at the station,
// or the reason it is not. Appointments of other stations, appointments that do not block
// the calendar and the appointment identified by excludeID are ignored.
//
// It panics if stationID is empty or durationMinutes is not positive.
func (e *Engine) CheckInterval(stationID string, start time.Time, durationMinutes int, existing []Appointment, excludeID string) *Rejection {
	if stationID == "" {
		panic("scheduling: CheckInterval called without a station id")
	}
	if durationMinutes <= 0 {
		panic(fmt.Sprintf("scheduling: CheckInterval called with non-positive duration %d", durationMinutes))
	}
	if e.policy.IsClosed(start) {
		return &Rejection{Kind: RejectClosedDay, Date: e.policy.Day(start)}
	}
	candidate := Interval{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
	return e.firstConflict(stationID, candidate, existing, excludeID)
}

// AvailableSlots returns the slots of date that are free at the station, in order.
// An empty result means the day is closed or fully booked.
func (e *Engine) AvailableSlots(stationID string, date time.Time, existing []Appointment) []TimeOfDay {
	if stationID == "" {
		panic("scheduling: AvailableSlots called without a station id")
	}
	minutes := int(e.policy.SlotLength / time.Minute)
	loc := e.policy.location()

	var free []TimeOfDay
	for slot := range e.policy.Slots() {
		if e.CheckInterval(stationID, slot.On(date, loc), minutes, existing, "") == nil {
			free = append(free, slot)
		}
	}
	return free
}

// ValidateManipulation checks a drag or resize of the appointment appointmentID to
// [newStart, newEnd). The new interval need not be slot aligned. The appointment never
// conflicts with its own previous interval. Nothing is mutated: on rejection the caller
// restores the previous state.
func (e *Engine) ValidateManipulation(appointmentID, stationID string, newStart, newEnd time.Time, existing []Appointment) (bool, *Rejection) {
	if appointmentID == "" || stationID == "" {
		panic("scheduling: ValidateManipulation called without appointment or station id")
	}
	candidate := Interval{Start: newStart, End: newEnd}
	if r := e.CheckDuration(newStart, candidate.Duration()); r != nil {
		return false, r
	}
	if e.policy.IsClosed(newStart) {
		return false, &Rejection{Kind: RejectClosedDay, Date: e.policy.Day(newStart)}
	}
	if r := e.firstConflict(stationID, candidate, existing, appointmentID); r != nil {
		return false, r
	}
	return true, nil
}

// CheckDuration returns nil when an appointment starting at start may last d, or a
// below_minimum_duration or above_maximum_duration rejection.
func (e *Engine) CheckDuration(start time.Time, d time.Duration) *Rejection {
	switch {
	case d < e.policy.MinDuration:
		return &Rejection{
			Kind:        RejectBelowMinimum,
			Date:        e.policy.Day(start),
			MinDuration: e.policy.MinDuration,
			Requested:   d,
		}
	case d > e.policy.MaxDuration:
		return &Rejection{
			Kind:        RejectAboveMaximum,
			Date:        e.policy.Day(start),
			MaxDuration: e.policy.MaxDuration,
			Requested:   d,
		}
	}
	return nil
}

// CheckSlotStart returns nil when start is one of the generated slots of its day in the
// station time zone, or a not_a_slot rejection.
func (e *Engine) CheckSlotStart(start time.Time) *Rejection {
	local := start.In(e.policy.location())
	if local.Second() == 0 && local.Nanosecond() == 0 {
		tod := Clock(local.Hour(), local.Minute())
		for slot := range e.policy.Slots() {
			if slot == tod {
				return nil
			}
		}
	}
	return &Rejection{Kind: RejectOffGrid, Date: local}
}

func (e *Engine) firstConflict(stationID string, candidate Interval, existing []Appointment, excludeID string) *Rejection {
	for _, a := range existing {
		if a.StationID != stationID || !a.Blocks() {
			continue
		}
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		booked := a.Interval()
		if Overlaps(candidate, booked) {
			return &Rejection{
				Kind:             RejectOverlap,
				Date:             e.policy.Day(candidate.Start),
				ConflictID:       a.ID,
				ConflictInterval: &booked,
				OverlapBy:        overlapAmount(candidate, booked),
			}
		}
	}
	return nil
}
