package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/itp-scheduling/internal/models"
)

// ErrNotFound is returned when a lookup by ID matches no document.
var ErrNotFound = errors.New("document not found")

// InspectionCollection defines the interface for inspection data operations.
type InspectionCollection interface {
	InsertInspection(ctx context.Context, inspection models.Inspection) error
	FindInspectionByID(ctx context.Context, id string) (*models.Inspection, error)
	// FindStationInspections returns the station's inspections starting in [from, to)
	// with one of the given statuses, ordered by start. No statuses means any status.
	FindStationInspections(ctx context.Context, stationID string, from, to time.Time, statuses ...models.InspectionStatus) ([]models.Inspection, error)
	FindVehicleInspections(ctx context.Context, vehicleID string) ([]models.Inspection, error)
	UpdateInspection(ctx context.Context, id string, inspection models.Inspection) error
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
}

// StationCollection defines the interface for station data operations.
type StationCollection interface {
	InsertStation(ctx context.Context, station models.Station) error
	FindStationByID(ctx context.Context, id string) (*models.Station, error)
}

// ClientCollection defines the interface for client data operations.
type ClientCollection interface {
	InsertClient(ctx context.Context, client models.Client) error
	FindClientByID(ctx context.Context, id string) (*models.Client, error)
}

// ActivityCollection defines the interface for activity log operations.
type ActivityCollection interface {
	InsertActivity(ctx context.Context, entry models.ActivityLog) error
	FindActivity(ctx context.Context, stationID string, limit int64) ([]models.ActivityLog, error)
}
