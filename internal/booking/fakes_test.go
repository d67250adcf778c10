package booking

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/itp-scheduling/internal/db"
	"github.com/ukydev/itp-scheduling/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory implementation of every collection the service uses.
type memStore struct {
	mu          sync.Mutex
	inspections map[string]models.Inspection
	vehicles    map[string]models.Vehicle
	stations    map[string]models.Station
	clients     map[string]models.Client
	activity    []models.ActivityLog
}

func newMemStore() *memStore {
	return &memStore{
		inspections: map[string]models.Inspection{},
		vehicles:    map[string]models.Vehicle{},
		stations:    map[string]models.Station{},
		clients:     map[string]models.Client{},
	}
}

func (m *memStore) Store() Store {
	return Store{Inspections: m, Vehicles: m, Stations: m, Clients: m, Activity: m}
}

func (m *memStore) InsertInspection(_ context.Context, in models.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.ID.IsZero() {
		in.ID = primitive.NewObjectID()
	}
	m.inspections[in.ID.Hex()] = in
	return nil
}

func (m *memStore) FindInspectionByID(_ context.Context, id string) (*models.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inspections[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &in, nil
}

func (m *memStore) FindStationInspections(_ context.Context, stationID string, from, to time.Time, statuses ...models.InspectionStatus) ([]models.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Inspection
	for _, in := range m.inspections {
		if in.StationID != stationID || in.ScheduledStart.Before(from) || !in.ScheduledStart.Before(to) {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, in.Status) {
			continue
		}
		out = append(out, in)
	}
	slices.SortFunc(out, func(a, b models.Inspection) int { return a.ScheduledStart.Compare(b.ScheduledStart) })
	return out, nil
}

func (m *memStore) FindVehicleInspections(_ context.Context, vehicleID string) ([]models.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Inspection
	for _, in := range m.inspections {
		if in.VehicleID == vehicleID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memStore) UpdateInspection(_ context.Context, id string, in models.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inspections[id]; !ok {
		return db.ErrNotFound
	}
	m.inspections[id] = in
	return nil
}

func (m *memStore) InsertVehicle(_ context.Context, v models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID.Hex()] = v
	return nil
}

func (m *memStore) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

func (m *memStore) InsertStation(_ context.Context, st models.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[st.ID.Hex()] = st
	return nil
}

func (m *memStore) FindStationByID(_ context.Context, id string) (*models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &st, nil
}

func (m *memStore) InsertClient(_ context.Context, c models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID.Hex()] = c
	return nil
}

func (m *memStore) FindClientByID(_ context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) InsertActivity(_ context.Context, entry models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, entry)
	return nil
}

func (m *memStore) FindActivity(_ context.Context, stationID string, limit int64) ([]models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityLog
	for i := len(m.activity) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if stationID == "" || m.activity[i].StationID == stationID {
			out = append(out, m.activity[i])
		}
	}
	return out, nil
}

// MockActivityCollection is a mock implementation of db.ActivityCollection.
type MockActivityCollection struct {
	mock.Mock
}

func (m *MockActivityCollection) InsertActivity(ctx context.Context, entry models.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityCollection) FindActivity(ctx context.Context, stationID string, limit int64) ([]models.ActivityLog, error) {
	args := m.Called(ctx, stationID, limit)
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

// MockInspectionCollection is a mock implementation of db.InspectionCollection.
type MockInspectionCollection struct {
	mock.Mock
}

func (m *MockInspectionCollection) InsertInspection(ctx context.Context, in models.Inspection) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockInspectionCollection) FindInspectionByID(ctx context.Context, id string) (*models.Inspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inspection), args.Error(1)
}

func (m *MockInspectionCollection) FindStationInspections(ctx context.Context, stationID string, from, to time.Time, statuses ...models.InspectionStatus) ([]models.Inspection, error) {
	args := m.Called(ctx, stationID, from, to, statuses)
	return args.Get(0).([]models.Inspection), args.Error(1)
}

func (m *MockInspectionCollection) FindVehicleInspections(ctx context.Context, vehicleID string) ([]models.Inspection, error) {
	args := m.Called(ctx, vehicleID)
	return args.Get(0).([]models.Inspection), args.Error(1)
}

func (m *MockInspectionCollection) UpdateInspection(ctx context.Context, id string, in models.Inspection) error {
	args := m.Called(ctx, id, in)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishInspection(eventType string, _ *models.Inspection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Close() {}
