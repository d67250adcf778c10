// Package booking runs the inspection booking flows on top of the scheduling engine.
// Each write locks the affected station (and vehicle), re-reads the stored calendar,
// asks the engine, then commits.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/itp-scheduling/internal/db"
	"github.com/ukydev/itp-scheduling/internal/events"
	"github.com/ukydev/itp-scheduling/internal/lock"
	"github.com/ukydev/itp-scheduling/internal/models"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
)

var (
	ErrNotFound                   = errors.New("not found")
	ErrInvalidInput               = errors.New("invalid input")
	ErrInvalidTransition          = errors.New("invalid status transition")
	ErrVehicleHasValidCertificate = errors.New("vehicle already holds a valid inspection certificate")
)

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 1000
)

// Store groups the collections the service reads and writes.
type Store struct {
	Inspections db.InspectionCollection
	Vehicles    db.VehicleCollection
	Stations    db.StationCollection
	Clients     db.ClientCollection
	Activity    db.ActivityCollection
}

// Service implements station calendars, bookings and the inspection lifecycle.
type Service struct {
	engine          *scheduling.Engine
	store           Store
	locker          lock.Locker
	publisher       events.Publisher
	defaultDuration time.Duration
	now             func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLocker sets the locker guarding check-then-write sequences. Defaults to an in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithPublisher sets the event publisher. Defaults to dropping events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithDefaultDuration sets the length of calendar bookings made without a duration.
func WithDefaultDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultDuration = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a booking service.
func NewService(engine *scheduling.Engine, store Store, opts ...Option) *Service {
	s := &Service{
		engine:          engine,
		store:           store,
		locker:          lock.NewLocal(),
		publisher:       events.NoopPublisher{},
		defaultDuration: 30 * time.Minute,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the scheduling rules in force.
func (s *Service) Policy() scheduling.Policy {
	return s.engine.Policy()
}

func stationKey(id string) string { return "station:" + id }
func vehicleKey(id string) string { return "vehicle:" + id }

// lockAll acquires keys in the given order. Callers always pass vehicle keys before
// station keys.
func (s *Service) lockAll(ctx context.Context, keys ...string) (func(), error) {
	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func lookupError(what, id string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

// toAppointment converts a stored inspection into the engine's view. Records stored
// without a duration occupy one slot.
func (s *Service) toAppointment(in models.Inspection) scheduling.Appointment {
	d := in.Duration(s.engine.Policy().SlotLength)
	return scheduling.Appointment{
		ID:              in.ID.Hex(),
		StationID:       in.StationID,
		Start:           in.ScheduledStart,
		DurationMinutes: int(d / time.Minute),
		Status:          scheduling.Status(in.Status),
		VehicleID:       in.VehicleID,
		ClientID:        in.ClientID,
	}
}

func toRecord(in models.Inspection) scheduling.InspectionRecord {
	rec := scheduling.InspectionRecord{
		VehicleID:      in.VehicleID,
		Status:         scheduling.Status(in.Status),
		ScheduledStart: in.ScheduledStart,
		PeriodMonths:   in.PeriodMonths,
	}
	if in.CompletedDate != nil {
		rec.CompletedDate = *in.CompletedDate
	}
	if in.NextInspectionDate != nil {
		rec.NextInspectionDate = *in.NextInspectionDate
	}
	return rec
}

// calendar returns the station's blocking appointments starting in [from, to).
func (s *Service) calendar(ctx context.Context, stationID string, from, to time.Time) ([]scheduling.Appointment, error) {
	stored, err := s.store.Inspections.FindStationInspections(ctx, stationID, from, to, models.StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar of station %s: %w", stationID, err)
	}
	out := make([]scheduling.Appointment, 0, len(stored))
	for _, in := range stored {
		out = append(out, s.toAppointment(in))
	}
	return out, nil
}

// calendarAround loads every appointment that could overlap [start, end). No stored
// appointment lasts longer than the policy maximum, so the query starts that much earlier.
func (s *Service) calendarAround(ctx context.Context, stationID string, start, end time.Time) ([]scheduling.Appointment, error) {
	return s.calendar(ctx, stationID, start.Add(-s.engine.Policy().MaxDuration), end)
}

func (s *Service) history(ctx context.Context, vehicleID string) ([]scheduling.InspectionRecord, error) {
	stored, err := s.store.Inspections.FindVehicleInspections(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of vehicle %s: %w", vehicleID, err)
	}
	out := make([]scheduling.InspectionRecord, 0, len(stored))
	for _, in := range stored {
		out = append(out, toRecord(in))
	}
	return out, nil
}

func (s *Service) publish(eventType string, in *models.Inspection) {
	if err := s.publisher.PublishInspection(eventType, in); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":         eventType,
			"inspection_id": in.ID.Hex(),
		}).Warn("Failed to publish inspection event")
	}
}
