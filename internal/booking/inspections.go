package booking

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/itp-scheduling/internal/events"
	"github.com/ukydev/itp-scheduling/internal/models"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookRequest describes a new appointment.
type BookRequest struct {
	StationID string
	VehicleID string
	ClientID  string
	Start     time.Time
	// DurationMinutes of zero selects the default: one slot for slot bookings,
	// the configured calendar default otherwise.
	DurationMinutes int
	SlotBooking     bool
	// PeriodMonths of zero selects the policy default.
	PeriodMonths int
	Notes        string
	Actor        string
}

// CompleteRequest carries the outcome of a performed inspection.
type CompleteRequest struct {
	Passed            bool
	Mileage           float64
	CertificateNumber string
	Notes             string
	Actor             string
}

// WalkInRequest records an inspection performed without an appointment.
type WalkInRequest struct {
	StationID         string
	VehicleID         string
	ClientID          string
	Passed            bool
	PeriodMonths      int
	Mileage           float64
	CertificateNumber string
	Notes             string
	Actor             string
}

// AvailableSlots lists the free slot starts of a station on the calendar day of date.
func (s *Service) AvailableSlots(ctx context.Context, stationID string, date time.Time) ([]scheduling.TimeOfDay, error) {
	if _, err := s.GetStation(ctx, stationID); err != nil {
		return nil, err
	}
	day := s.engine.Policy().Day(date)
	existing, err := s.calendarAround(ctx, stationID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return s.engine.AvailableSlots(stationID, day, existing), nil
}

// ListCalendar returns the station's scheduled inspections starting in [from, to).
func (s *Service) ListCalendar(ctx context.Context, stationID string, from, to time.Time) ([]models.Inspection, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("calendar range must not be empty: %w", ErrInvalidInput)
	}
	if _, err := s.GetStation(ctx, stationID); err != nil {
		return nil, err
	}
	list, err := s.store.Inspections.FindStationInspections(ctx, stationID, from, to, models.StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar of station %s: %w", stationID, err)
	}
	return list, nil
}

// Book validates and stores a new appointment. A refused request returns a
// *scheduling.Rejection.
func (s *Service) Book(ctx context.Context, req BookRequest) (*models.Inspection, error) {
	policy := s.engine.Policy()
	if req.StationID == "" || req.VehicleID == "" || req.ClientID == "" {
		return nil, fmt.Errorf("station, vehicle and client are required: %w", ErrInvalidInput)
	}
	if req.Start.IsZero() {
		return nil, fmt.Errorf("start is required: %w", ErrInvalidInput)
	}
	if req.DurationMinutes < 0 {
		return nil, fmt.Errorf("duration must not be negative: %w", ErrInvalidInput)
	}
	if req.DurationMinutes == 0 {
		if req.SlotBooking {
			req.DurationMinutes = int(policy.SlotLength / time.Minute)
		} else {
			req.DurationMinutes = int(s.defaultDuration / time.Minute)
		}
	}
	if req.PeriodMonths == 0 {
		req.PeriodMonths = policy.DefaultPeriodMonths
	}
	if !models.IsValidPeriod(req.PeriodMonths) {
		return nil, fmt.Errorf("period of %d months is not issuable: %w", req.PeriodMonths, ErrInvalidInput)
	}

	if _, err := s.GetStation(ctx, req.StationID); err != nil {
		return nil, err
	}
	vehicle, err := s.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	client, err := s.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockAll(ctx, vehicleKey(req.VehicleID), stationKey(req.StationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	history, err := s.history(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	window := s.engine.ReinspectionWindow(req.VehicleID, history, s.now())
	if ok, rej := window.Validate(req.Start); !ok {
		return nil, s.rejected(rej, req.StationID, req.VehicleID)
	}

	requested := time.Duration(req.DurationMinutes) * time.Minute
	if rej := s.engine.CheckDuration(req.Start, requested); rej != nil {
		return nil, s.rejected(rej, req.StationID, req.VehicleID)
	}
	if req.SlotBooking {
		if rej := s.engine.CheckSlotStart(req.Start); rej != nil {
			return nil, s.rejected(rej, req.StationID, req.VehicleID)
		}
	}

	end := req.Start.Add(requested)
	existing, err := s.calendarAround(ctx, req.StationID, req.Start, end)
	if err != nil {
		return nil, err
	}
	if rej := s.engine.CheckInterval(req.StationID, req.Start, req.DurationMinutes, existing, ""); rej != nil {
		return nil, s.rejected(rej, req.StationID, req.VehicleID)
	}

	now := s.now().UTC()
	inspection := models.Inspection{
		ID:              primitive.NewObjectID(),
		StationID:       req.StationID,
		VehicleID:       req.VehicleID,
		ClientID:        req.ClientID,
		ScheduledStart:  req.Start.UTC(),
		DurationMinutes: req.DurationMinutes,
		PeriodMonths:    req.PeriodMonths,
		Status:          models.StatusScheduled,
		Notes:           req.Notes,
		LicensePlate:    vehicle.LicensePlate,
		ClientName:      client.DisplayName(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Inspections.InsertInspection(ctx, inspection); err != nil {
		return nil, fmt.Errorf("failed to store inspection: %w", err)
	}

	log.WithFields(log.Fields{
		"inspection_id": inspection.ID.Hex(),
		"station_id":    inspection.StationID,
		"vehicle_id":    inspection.VehicleID,
		"start":         inspection.ScheduledStart,
		"duration":      inspection.DurationMinutes,
	}).Info("Inspection booked")
	s.record(ctx, models.ActivityLog{
		Actor:      req.Actor,
		Action:     models.ActionSchedule,
		EntityType: "inspection",
		EntityID:   inspection.ID.Hex(),
		EntityName: "ITP " + inspection.LicensePlate,
		Details:    "scheduled for " + inspection.ScheduledStart.In(policy.Zone()).Format("2006-01-02 15:04"),
		StationID:  inspection.StationID,
	})
	s.publish(events.InspectionBooked, &inspection)
	return &inspection, nil
}

// Reschedule moves or resizes a scheduled inspection to [newStart, newEnd).
func (s *Service) Reschedule(ctx context.Context, id string, newStart, newEnd time.Time, actor string) (*models.Inspection, error) {
	if newStart.IsZero() || newEnd.IsZero() {
		return nil, fmt.Errorf("start and end are required: %w", ErrInvalidInput)
	}
	current, err := s.getInspection(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockAll(ctx, stationKey(current.StationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// re-read under the lock
	inspection, err := s.getInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	if inspection.Status != models.StatusScheduled {
		return nil, fmt.Errorf("cannot reschedule a %s inspection: %w", inspection.Status, ErrInvalidTransition)
	}
	// callers may spell the id in any case the store accepts
	id = inspection.ID.Hex()

	existing, err := s.calendarAround(ctx, inspection.StationID, newStart, newEnd)
	if err != nil {
		return nil, err
	}
	if ok, rej := s.engine.ValidateManipulation(id, inspection.StationID, newStart, newEnd, existing); !ok {
		return nil, s.rejected(rej, inspection.StationID, inspection.VehicleID)
	}

	previous := inspection.ScheduledStart
	inspection.ScheduledStart = newStart.UTC()
	inspection.DurationMinutes = int(newEnd.Sub(newStart) / time.Minute)
	if err := s.store.Inspections.UpdateInspection(ctx, id, *inspection); err != nil {
		return nil, fmt.Errorf("failed to update inspection %s: %w", id, err)
	}

	log.WithFields(log.Fields{
		"inspection_id": id,
		"station_id":    inspection.StationID,
		"from":          previous,
		"to":            inspection.ScheduledStart,
		"duration":      inspection.DurationMinutes,
	}).Info("Inspection rescheduled")
	s.record(ctx, models.ActivityLog{
		Actor:      actor,
		Action:     models.ActionUpdate,
		EntityType: "appointment",
		EntityID:   id,
		EntityName: "ITP " + inspection.LicensePlate,
		Details:    "moved to " + inspection.ScheduledStart.In(s.engine.Policy().Zone()).Format("2006-01-02 15:04"),
		StationID:  inspection.StationID,
	})
	s.publish(events.InspectionRescheduled, inspection)
	return inspection, nil
}

// Start marks a scheduled inspection as in progress.
func (s *Service) Start(ctx context.Context, id, actor string) (*models.Inspection, error) {
	return s.transition(ctx, id, models.StatusInProgress, actor, events.InspectionStarted, nil)
}

// Cancel cancels a scheduled or in-progress inspection, freeing its slot.
func (s *Service) Cancel(ctx context.Context, id, actor string) (*models.Inspection, error) {
	return s.transition(ctx, id, models.StatusCancelled, actor, events.InspectionCancelled, nil)
}

// Complete records the outcome of an in-progress inspection. A pass issues a certificate
// valid for the inspection's period.
func (s *Service) Complete(ctx context.Context, id string, req CompleteRequest) (*models.Inspection, error) {
	if req.Mileage < 0 {
		return nil, fmt.Errorf("mileage must not be negative: %w", ErrInvalidInput)
	}
	to := models.StatusFailed
	if req.Passed {
		to = models.StatusPassed
	}
	return s.transition(ctx, id, to, req.Actor, events.InspectionCompleted, func(in *models.Inspection) {
		completed := s.now().UTC()
		in.CompletedDate = &completed
		if req.Passed {
			next := completed.AddDate(0, s.periodOf(in), 0)
			in.NextInspectionDate = &next
		}
		in.Mileage = req.Mileage
		in.CertificateNumber = req.CertificateNumber
		if req.Notes != "" {
			in.Notes = req.Notes
		}
	})
}

func (s *Service) periodOf(in *models.Inspection) int {
	if in.PeriodMonths > 0 {
		return in.PeriodMonths
	}
	return s.engine.Policy().DefaultPeriodMonths
}

func (s *Service) transition(ctx context.Context, id string, to models.InspectionStatus, actor, eventType string, apply func(*models.Inspection)) (*models.Inspection, error) {
	current, err := s.getInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lockAll(ctx, vehicleKey(current.VehicleID), stationKey(current.StationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	inspection, err := s.getInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(inspection.Status, to) {
		return nil, fmt.Errorf("cannot move inspection from %s to %s: %w", inspection.Status, to, ErrInvalidTransition)
	}
	id = inspection.ID.Hex()
	from := inspection.Status
	inspection.Status = to
	if apply != nil {
		apply(inspection)
	}
	if err := s.store.Inspections.UpdateInspection(ctx, id, *inspection); err != nil {
		return nil, fmt.Errorf("failed to update inspection %s: %w", id, err)
	}

	log.WithFields(log.Fields{
		"inspection_id": id,
		"from":          from,
		"to":            to,
	}).Info("Inspection status changed")
	action := models.ActionUpdate
	if to == models.StatusPassed || to == models.StatusFailed {
		action = models.ActionComplete
	}
	s.record(ctx, models.ActivityLog{
		Actor:      actor,
		Action:     action,
		EntityType: "inspection",
		EntityID:   id,
		EntityName: "ITP " + inspection.LicensePlate,
		Details:    fmt.Sprintf("%s -> %s", from, to),
		StationID:  inspection.StationID,
	})
	s.publish(eventType, inspection)
	return inspection, nil
}

// RecordWalkIn stores an inspection performed now without an appointment. It is refused
// while the vehicle still holds a valid certificate.
func (s *Service) RecordWalkIn(ctx context.Context, req WalkInRequest) (*models.Inspection, error) {
	if req.StationID == "" || req.VehicleID == "" || req.ClientID == "" {
		return nil, fmt.Errorf("station, vehicle and client are required: %w", ErrInvalidInput)
	}
	if req.PeriodMonths == 0 {
		req.PeriodMonths = s.engine.Policy().DefaultPeriodMonths
	}
	if !models.IsValidPeriod(req.PeriodMonths) {
		return nil, fmt.Errorf("period of %d months is not issuable: %w", req.PeriodMonths, ErrInvalidInput)
	}
	if req.Mileage < 0 {
		return nil, fmt.Errorf("mileage must not be negative: %w", ErrInvalidInput)
	}
	if _, err := s.GetStation(ctx, req.StationID); err != nil {
		return nil, err
	}
	vehicle, err := s.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	client, err := s.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockAll(ctx, vehicleKey(req.VehicleID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now().UTC()
	history, err := s.history(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if w := s.engine.ReinspectionWindow(req.VehicleID, history, now); !w.Unrestricted {
		return nil, fmt.Errorf("vehicle %s is certified until %s: %w", vehicle.LicensePlate, w.Expiry.Format("2006-01-02"), ErrVehicleHasValidCertificate)
	}

	status := models.StatusFailed
	if req.Passed {
		status = models.StatusPassed
	}
	inspection := models.Inspection{
		ID:                primitive.NewObjectID(),
		StationID:         req.StationID,
		VehicleID:         req.VehicleID,
		ClientID:          req.ClientID,
		ScheduledStart:    now,
		DurationMinutes:   int(s.engine.Policy().SlotLength / time.Minute),
		PeriodMonths:      req.PeriodMonths,
		Status:            status,
		CompletedDate:     &now,
		Mileage:           req.Mileage,
		CertificateNumber: req.CertificateNumber,
		Notes:             req.Notes,
		LicensePlate:      vehicle.LicensePlate,
		ClientName:        client.DisplayName(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Passed {
		next := now.AddDate(0, req.PeriodMonths, 0)
		inspection.NextInspectionDate = &next
	}
	if err := s.store.Inspections.InsertInspection(ctx, inspection); err != nil {
		return nil, fmt.Errorf("failed to store inspection: %w", err)
	}

	log.WithFields(log.Fields{
		"inspection_id": inspection.ID.Hex(),
		"vehicle_id":    inspection.VehicleID,
		"status":        inspection.Status,
	}).Info("Walk-in inspection recorded")
	s.record(ctx, models.ActivityLog{
		Actor:      req.Actor,
		Action:     models.ActionComplete,
		EntityType: "inspection",
		EntityID:   inspection.ID.Hex(),
		EntityName: "ITP " + inspection.LicensePlate,
		Details:    fmt.Sprintf("walk-in %s", inspection.Status),
		StationID:  inspection.StationID,
	})
	s.publish(events.InspectionRecorded, &inspection)
	return &inspection, nil
}

// ReinspectionWindow returns the booking window of a vehicle as seen on today.
func (s *Service) ReinspectionWindow(ctx context.Context, vehicleID string, today time.Time) (scheduling.Window, error) {
	if _, err := s.GetVehicle(ctx, vehicleID); err != nil {
		return scheduling.Window{}, err
	}
	history, err := s.history(ctx, vehicleID)
	if err != nil {
		return scheduling.Window{}, err
	}
	return s.engine.ReinspectionWindow(vehicleID, history, today), nil
}

// Today returns the current time according to the service clock.
func (s *Service) Today() time.Time {
	return s.now()
}

func (s *Service) getInspection(ctx context.Context, id string) (*models.Inspection, error) {
	in, err := s.store.Inspections.FindInspectionByID(ctx, id)
	if err != nil {
		return nil, lookupError("inspection", id, err)
	}
	return in, nil
}

func (s *Service) rejected(rej *scheduling.Rejection, stationID, vehicleID string) error {
	log.WithFields(log.Fields{
		"station_id": stationID,
		"vehicle_id": vehicleID,
		"kind":       rej.Kind,
	}).Debug("Scheduling request rejected")
	return rej
}
