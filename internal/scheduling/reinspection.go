package scheduling

import "time"

// InspectionRecord is one entry of a vehicle's inspection history, at any station.
type InspectionRecord struct {
	VehicleID          string
	Status             Status
	ScheduledStart     time.Time
	CompletedDate      time.Time
	PeriodMonths       int
	NextInspectionDate time.Time
}

// Window is the range of days in which a vehicle's next inspection may be booked.
// An Unrestricted window accepts any date.
type Window struct {
	Unrestricted bool
	Earliest     time.Time
	Expiry       time.Time
}

// ReinspectionWindow derives the booking window of vehicleID from its history as seen on
// today. When several records hold a valid certificate the latest expiry wins.
func (e *Engine) ReinspectionWindow(vehicleID string, history []InspectionRecord, today time.Time) Window {
	today = e.policy.Day(today)

	var expiry time.Time
	found := false
	for _, rec := range history {
		if vehicleID != "" && rec.VehicleID != vehicleID {
			continue
		}
		exp, ok := e.certificateExpiry(rec)
		if !ok || exp.Before(today) {
			continue
		}
		if !found || exp.After(expiry) {
			expiry, found = exp, true
		}
	}
	if !found {
		return Window{Unrestricted: true}
	}
	return Window{
		Earliest: expiry.AddDate(0, 0, -e.policy.RebookLeadDays),
		Expiry:   expiry,
	}
}

// certificateExpiry returns the day a record's certificate stops being valid.
func (e *Engine) certificateExpiry(rec InspectionRecord) (time.Time, bool) {
	switch rec.Status {
	case StatusPassed:
		if rec.NextInspectionDate.IsZero() {
			return time.Time{}, false
		}
		return e.policy.Day(rec.NextInspectionDate), true
	case StatusScheduled:
		if !e.policy.CountScheduled || rec.ScheduledStart.IsZero() {
			return time.Time{}, false
		}
		months := rec.PeriodMonths
		if months <= 0 {
			months = e.policy.DefaultPeriodMonths
		}
		return e.policy.Day(rec.ScheduledStart).AddDate(0, months, 0), true
	}
	return time.Time{}, false
}

// Validate reports whether proposed falls inside the window. Only the calendar day of
// proposed, in the window's time zone, is compared.
func (w Window) Validate(proposed time.Time) (bool, *Rejection) {
	if w.Unrestricted {
		return true, nil
	}
	loc := w.Expiry.Location()
	p := proposed.In(loc)
	y, m, d := p.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	if day.Before(w.Earliest) {
		return false, &Rejection{Kind: RejectBeforeWindow, Date: day, Earliest: w.Earliest, Expiry: w.Expiry}
	}
	if day.After(w.Expiry) {
		return false, &Rejection{Kind: RejectAfterWindow, Date: day, Earliest: w.Earliest, Expiry: w.Expiry}
	}
	return true, nil
}
