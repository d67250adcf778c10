package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/ukydev/itp-scheduling/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateStation registers a new inspection station.
func (s *Service) CreateStation(ctx context.Context, station models.Station, actor string) (*models.Station, error) {
	station.Name = strings.TrimSpace(station.Name)
	if station.Name == "" {
		return nil, fmt.Errorf("station name is required: %w", ErrInvalidInput)
	}
	if station.Location != nil {
		if err := station.Location.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	now := s.now().UTC()
	station.ID = primitive.NewObjectID()
	station.IsActive = true
	station.CreatedAt, station.UpdatedAt = now, now

	if err := s.store.Stations.InsertStation(ctx, station); err != nil {
		return nil, fmt.Errorf("failed to create station: %w", err)
	}
	s.record(ctx, models.ActivityLog{
		Actor:      actor,
		Action:     models.ActionCreate,
		EntityType: "station",
		EntityID:   station.ID.Hex(),
		EntityName: station.Name,
		StationID:  station.ID.Hex(),
	})
	return &station, nil
}

// GetStation returns a station by ID.
func (s *Service) GetStation(ctx context.Context, id string) (*models.Station, error) {
	station, err := s.store.Stations.FindStationByID(ctx, id)
	if err != nil {
		return nil, lookupError("station", id, err)
	}
	return station, nil
}

// CreateClient registers a vehicle owner.
func (s *Service) CreateClient(ctx context.Context, client models.Client, actor string) (*models.Client, error) {
	if err := client.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	now := s.now().UTC()
	client.ID = primitive.NewObjectID()
	client.CreatedAt, client.UpdatedAt = now, now

	if err := s.store.Clients.InsertClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s.record(ctx, models.ActivityLog{
		Actor:      actor,
		Action:     models.ActionCreate,
		EntityType: "client",
		EntityID:   client.ID.Hex(),
		EntityName: client.DisplayName(),
	})
	return &client, nil
}

// GetClient returns a client by ID.
func (s *Service) GetClient(ctx context.Context, id string) (*models.Client, error) {
	client, err := s.store.Clients.FindClientByID(ctx, id)
	if err != nil {
		return nil, lookupError("client", id, err)
	}
	return client, nil
}

// CreateVehicle registers a vehicle for an existing client.
func (s *Service) CreateVehicle(ctx context.Context, vehicle models.Vehicle, actor string) (*models.Vehicle, error) {
	vehicle.LicensePlate = normalizePlate(vehicle.LicensePlate)
	if vehicle.LicensePlate == "" {
		return nil, fmt.Errorf("license plate is required: %w", ErrInvalidInput)
	}
	if vehicle.ClientID == "" {
		return nil, fmt.Errorf("client_id is required: %w", ErrInvalidInput)
	}
	if _, err := s.GetClient(ctx, vehicle.ClientID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	vehicle.ID = primitive.NewObjectID()
	vehicle.CreatedAt, vehicle.UpdatedAt = now, now

	if err := s.store.Vehicles.InsertVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	s.record(ctx, models.ActivityLog{
		Actor:      actor,
		Action:     models.ActionCreate,
		EntityType: "vehicle",
		EntityID:   vehicle.ID.Hex(),
		EntityName: vehicle.LicensePlate,
	})
	return &vehicle, nil
}

// GetVehicle returns a vehicle by ID.
func (s *Service) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, lookupError("vehicle", id, err)
	}
	return vehicle, nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
