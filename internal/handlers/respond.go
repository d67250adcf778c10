package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/itp-scheduling/internal/booking"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
)

const dateLayout = "2006-01-02"

// errorBody is the JSON error envelope: {"error": {...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	Date               string     `json:"date,omitempty"`
	ConflictID         string     `json:"conflict_id,omitempty"`
	ConflictStart      *time.Time `json:"conflict_start,omitempty"`
	ConflictEnd        *time.Time `json:"conflict_end,omitempty"`
	OverlapMinutes     int        `json:"overlap_minutes,omitempty"`
	MinDurationMinutes int        `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes int        `json:"max_duration_minutes,omitempty"`
	RequestedMinutes   int        `json:"requested_minutes,omitempty"`
	Earliest           string     `json:"earliest,omitempty"`
	Expiry             string     `json:"expiry,omitempty"`
}

func rejectionDetail(r *scheduling.Rejection) errorDetail {
	d := errorDetail{
		Kind:               string(r.Kind),
		Message:            r.Message(),
		ConflictID:         r.ConflictID,
		OverlapMinutes:     int(r.OverlapBy / time.Minute),
		MinDurationMinutes: int(r.MinDuration / time.Minute),
		MaxDurationMinutes: int(r.MaxDuration / time.Minute),
		RequestedMinutes:   int(r.Requested / time.Minute),
	}
	if !r.Date.IsZero() {
		d.Date = r.Date.Format(dateLayout)
	}
	if r.ConflictInterval != nil {
		start, end := r.ConflictInterval.Start, r.ConflictInterval.End
		d.ConflictStart, d.ConflictEnd = &start, &end
	}
	if !r.Earliest.IsZero() {
		d.Earliest = r.Earliest.Format(dateLayout)
	}
	if !r.Expiry.IsZero() {
		d.Expiry = r.Expiry.Format(dateLayout)
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeErrorKind(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rej *scheduling.Rejection
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: rejectionDetail(rej)})
	case errors.Is(err, booking.ErrNotFound):
		writeErrorKind(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidInput):
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeErrorKind(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrVehicleHasValidCertificate):
		writeErrorKind(w, http.StatusConflict, "valid_certificate", err.Error())
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		writeErrorKind(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "invalid_json", "Invalid JSON: "+err.Error())
		return false
	}
	return true
}
