// Package handlers exposes the booking service over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/itp-scheduling/internal/booking"
	"github.com/ukydev/itp-scheduling/internal/models"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
)

// ActorHeader names the user performing a request, recorded in the activity log.
const ActorHeader = "X-Actor"

// Service is the subset of *booking.Service the handlers need.
type Service interface {
	Policy() scheduling.Policy
	Today() time.Time

	AvailableSlots(ctx context.Context, stationID string, date time.Time) ([]scheduling.TimeOfDay, error)
	ListCalendar(ctx context.Context, stationID string, from, to time.Time) ([]models.Inspection, error)
	Book(ctx context.Context, req booking.BookRequest) (*models.Inspection, error)
	Reschedule(ctx context.Context, id string, newStart, newEnd time.Time, actor string) (*models.Inspection, error)
	Start(ctx context.Context, id, actor string) (*models.Inspection, error)
	Complete(ctx context.Context, id string, req booking.CompleteRequest) (*models.Inspection, error)
	Cancel(ctx context.Context, id, actor string) (*models.Inspection, error)
	RecordWalkIn(ctx context.Context, req booking.WalkInRequest) (*models.Inspection, error)
	ReinspectionWindow(ctx context.Context, vehicleID string, today time.Time) (scheduling.Window, error)

	CreateStation(ctx context.Context, station models.Station, actor string) (*models.Station, error)
	GetStation(ctx context.Context, id string) (*models.Station, error)
	CreateClient(ctx context.Context, client models.Client, actor string) (*models.Client, error)
	CreateVehicle(ctx context.Context, vehicle models.Vehicle, actor string) (*models.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListActivity(ctx context.Context, stationID string, limit int) ([]models.ActivityLog, error)
}

// Handler serves the scheduling API.
type Handler struct {
	svc  Service
	zone *time.Location
}

// NewHandler creates a handler. Dates without a time are read in the station time zone.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc, zone: svc.Policy().Zone()}
}

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(h *Handler, middlewares ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", h.CreateStation).Methods(http.MethodPost)
	api.HandleFunc("/stations/{stationID}", h.GetStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{stationID}/slots", h.AvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/stations/{stationID}/inspections", h.ListCalendar).Methods(http.MethodGet)
	api.HandleFunc("/stations/{stationID}/inspections", h.Book).Methods(http.MethodPost)
	api.HandleFunc("/stations/{stationID}/inspections/completed", h.RecordWalkIn).Methods(http.MethodPost)
	api.HandleFunc("/stations/{stationID}/activity", h.ListActivity).Methods(http.MethodGet)

	api.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	api.HandleFunc("/vehicles", h.CreateVehicle).Methods(http.MethodPost)
	api.HandleFunc("/vehicles/{vehicleID}", h.GetVehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{vehicleID}/reinspection-window", h.ReinspectionWindow).Methods(http.MethodGet)

	api.HandleFunc("/inspections/{inspectionID}/schedule", h.Reschedule).Methods(http.MethodPatch)
	api.HandleFunc("/inspections/{inspectionID}/start", h.Start).Methods(http.MethodPost)
	api.HandleFunc("/inspections/{inspectionID}/complete", h.Complete).Methods(http.MethodPost)
	api.HandleFunc("/inspections/{inspectionID}/cancel", h.Cancel).Methods(http.MethodPost)

	for _, mw := range middlewares {
		r.Use(mw)
	}
	return r
}

// Health reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func actor(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}

// parseDay reads YYYY-MM-DD as midnight in the station zone.
func (h *Handler) parseDay(v string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, v, h.zone)
}

// parseInstant accepts RFC 3339 or a bare date.
func (h *Handler) parseInstant(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return h.parseDay(v)
}

// queryInt returns zero when key is absent.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
