package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/itp-scheduling/internal/booking"
	"github.com/ukydev/itp-scheduling/internal/models"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
)

type slotsResponse struct {
	Date  string                 `json:"date"`
	Slots []scheduling.TimeOfDay `json:"slots"`
}

// AvailableSlots handles GET /api/stations/{stationID}/slots?date=YYYY-MM-DD.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	stationID := mux.Vars(r)["stationID"]
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", "date is required")
		return
	}
	date, err := h.parseDay(raw)
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", "date must be YYYY-MM-DD")
		return
	}
	slots, err := h.svc.AvailableSlots(r.Context(), stationID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if slots == nil {
		slots = []scheduling.TimeOfDay{}
	}
	writeJSON(w, http.StatusOK, slotsResponse{Date: raw, Slots: slots})
}

// ListCalendar handles GET /api/stations/{stationID}/inspections?from=&to=.
// Without bounds it returns the current day.
func (h *Handler) ListCalendar(w http.ResponseWriter, r *http.Request) {
	stationID := mux.Vars(r)["stationID"]
	q := r.URL.Query()

	from := h.svc.Policy().Day(h.svc.Today())
	if v := q.Get("from"); v != "" {
		t, err := h.parseInstant(v)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "invalid_input", "from must be RFC 3339 or YYYY-MM-DD")
			return
		}
		from = t
	}
	to := from.AddDate(0, 0, 1)
	if v := q.Get("to"); v != "" {
		t, err := h.parseInstant(v)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "invalid_input", "to must be RFC 3339 or YYYY-MM-DD")
			return
		}
		to = t
	}

	list, err := h.svc.ListCalendar(r.Context(), stationID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Inspection{}
	}
	writeJSON(w, http.StatusOK, list)
}

type bookRequest struct {
	VehicleID       string     `json:"vehicle_id"`
	ClientID        string     `json:"client_id"`
	Date            string     `json:"date,omitempty"`
	Time            string     `json:"time,omitempty"`
	Start           *time.Time `json:"start,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	PeriodMonths    int        `json:"period_months,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// Book handles POST /api/stations/{stationID}/inspections. The start is either a
// slot ("date" + "time") or an arbitrary instant ("start").
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var body bookRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req := booking.BookRequest{
		StationID:       mux.Vars(r)["stationID"],
		VehicleID:       body.VehicleID,
		ClientID:        body.ClientID,
		DurationMinutes: body.DurationMinutes,
		PeriodMonths:    body.PeriodMonths,
		Notes:           body.Notes,
		Actor:           actor(r),
	}
	switch {
	case body.Date != "" && body.Time != "":
		day, err := h.parseDay(body.Date)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "invalid_input", "date must be YYYY-MM-DD")
			return
		}
		tod, err := scheduling.ParseTimeOfDay(body.Time)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "invalid_input", "time must be HH:MM")
			return
		}
		req.Start = tod.On(day, h.zone)
		req.SlotBooking = true
	case body.Start != nil:
		req.Start = *body.Start
	default:
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", "either date and time or start is required")
		return
	}

	inspection, err := h.svc.Book(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inspection)
}

type walkInRequest struct {
	VehicleID         string  `json:"vehicle_id"`
	ClientID          string  `json:"client_id"`
	Result            string  `json:"result"`
	PeriodMonths      int     `json:"period_months,omitempty"`
	Mileage           float64 `json:"mileage,omitempty"`
	CertificateNumber string  `json:"certificate_number,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

// RecordWalkIn handles POST /api/stations/{stationID}/inspections/completed.
func (h *Handler) RecordWalkIn(w http.ResponseWriter, r *http.Request) {
	var body walkInRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	passed, ok := parseResult(body.Result)
	if !ok {
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", `result must be "passed" or "failed"`)
		return
	}
	inspection, err := h.svc.RecordWalkIn(r.Context(), booking.WalkInRequest{
		StationID:         mux.Vars(r)["stationID"],
		VehicleID:         body.VehicleID,
		ClientID:          body.ClientID,
		Passed:            passed,
		PeriodMonths:      body.PeriodMonths,
		Mileage:           body.Mileage,
		CertificateNumber: body.CertificateNumber,
		Notes:             body.Notes,
		Actor:             actor(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inspection)
}

type rescheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Reschedule handles PATCH /api/inspections/{inspectionID}/schedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var body rescheduleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	inspection, err := h.svc.Reschedule(r.Context(), mux.Vars(r)["inspectionID"], body.Start, body.End, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

// Start handles POST /api/inspections/{inspectionID}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	inspection, err := h.svc.Start(r.Context(), mux.Vars(r)["inspectionID"], actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

// Cancel handles POST /api/inspections/{inspectionID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	inspection, err := h.svc.Cancel(r.Context(), mux.Vars(r)["inspectionID"], actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

type completeRequest struct {
	Result            string  `json:"result"`
	Mileage           float64 `json:"mileage,omitempty"`
	CertificateNumber string  `json:"certificate_number,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

// Complete handles POST /api/inspections/{inspectionID}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var body completeRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	passed, ok := parseResult(body.Result)
	if !ok {
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", `result must be "passed" or "failed"`)
		return
	}
	inspection, err := h.svc.Complete(r.Context(), mux.Vars(r)["inspectionID"], booking.CompleteRequest{
		Passed:            passed,
		Mileage:           body.Mileage,
		CertificateNumber: body.CertificateNumber,
		Notes:             body.Notes,
		Actor:             actor(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

func parseResult(v string) (passed, ok bool) {
	switch v {
	case string(models.StatusPassed):
		return true, true
	case string(models.StatusFailed):
		return false, true
	}
	return false, false
}

type windowResponse struct {
	VehicleID    string `json:"vehicle_id"`
	Unrestricted bool   `json:"unrestricted"`
	Earliest     string `json:"earliest,omitempty"`
	Expiry       string `json:"expiry,omitempty"`

	Date      string       `json:"date,omitempty"`
	Valid     *bool        `json:"valid,omitempty"`
	Rejection *errorDetail `json:"rejection,omitempty"`
}

// ReinspectionWindow handles GET /api/vehicles/{vehicleID}/reinspection-window[?date=].
// With a date it also reports whether that day may be booked.
func (h *Handler) ReinspectionWindow(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicleID"]
	window, err := h.svc.ReinspectionWindow(r.Context(), vehicleID, h.svc.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := windowResponse{VehicleID: vehicleID, Unrestricted: window.Unrestricted}
	if !window.Unrestricted {
		resp.Earliest = window.Earliest.Format(dateLayout)
		resp.Expiry = window.Expiry.Format(dateLayout)
	}

	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := h.parseDay(raw)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "invalid_input", "date must be YYYY-MM-DD")
			return
		}
		ok, rej := window.Validate(date)
		resp.Date = raw
		resp.Valid = &ok
		if rej != nil {
			d := rejectionDetail(rej)
			resp.Rejection = &d
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
