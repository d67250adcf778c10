package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/itp-scheduling/internal/booking"
	"github.com/ukydev/itp-scheduling/internal/models"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockService is a mock implementation of Service.
type MockService struct {
	mock.Mock
}

func (m *MockService) Policy() scheduling.Policy { return scheduling.DefaultPolicy() }

func (m *MockService) Today() time.Time { return time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC) }

func (m *MockService) AvailableSlots(ctx context.Context, stationID string, date time.Time) ([]scheduling.TimeOfDay, error) {
	args := m.Called(ctx, stationID, date)
	return args.Get(0).([]scheduling.TimeOfDay), args.Error(1)
}

func (m *MockService) ListCalendar(ctx context.Context, stationID string, from, to time.Time) ([]models.Inspection, error) {
	args := m.Called(ctx, stationID, from, to)
	return args.Get(0).([]models.Inspection), args.Error(1)
}

func (m *MockService) inspection(args mock.Arguments) (*models.Inspection, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inspection), args.Error(1)
}

func (m *MockService) Book(ctx context.Context, req booking.BookRequest) (*models.Inspection, error) {
	return m.inspection(m.Called(ctx, req))
}

func (m *MockService) Reschedule(ctx context.Context, id string, newStart, newEnd time.Time, actor string) (*models.Inspection, error) {
	return m.inspection(m.Called(ctx, id, newStart, newEnd, actor))
}

func (m *MockService) Start(ctx context.Context, id, actor string) (*models.Inspection, error) {
	return m.inspection(m.Called(ctx, id, actor))
}

func (m *MockService) Complete(ctx context.Context, id string, req booking.CompleteRequest) (*models.Inspection, error) {
	return m.inspection(m.Called(ctx, id, req))
}

func (m *MockService) Cancel(ctx context.Context, id, actor string) (*models.Inspection, error) {
	return m.inspection(m.Called(ctx, id, actor))
}

func (m *MockService) RecordWalkIn(ctx context.Context, req booking.WalkInRequest) (*models.Inspection, error) {
	return m.inspection(m.Called(ctx, req))
}

func (m *MockService) ReinspectionWindow(ctx context.Context, vehicleID string, today time.Time) (scheduling.Window, error) {
	args := m.Called(ctx, vehicleID, today)
	return args.Get(0).(scheduling.Window), args.Error(1)
}

func (m *MockService) CreateStation(ctx context.Context, station models.Station, actor string) (*models.Station, error) {
	args := m.Called(ctx, station, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Station), args.Error(1)
}

func (m *MockService) GetStation(ctx context.Context, id string) (*models.Station, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Station), args.Error(1)
}

func (m *MockService) CreateClient(ctx context.Context, client models.Client, actor string) (*models.Client, error) {
	args := m.Called(ctx, client, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockService) CreateVehicle(ctx context.Context, vehicle models.Vehicle, actor string) (*models.Vehicle, error) {
	args := m.Called(ctx, vehicle, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockService) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockService) ListActivity(ctx context.Context, stationID string, limit int) ([]models.ActivityLog, error) {
	args := m.Called(ctx, stationID, limit)
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

func serve(t *testing.T, svc *MockService, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(ActorHeader, "engineer@itp.ro")
	w := httptest.NewRecorder()
	NewRouter(NewHandler(svc)).ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	w := serve(t, &MockService{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAvailableSlots(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	t.Run("ok", func(t *testing.T) {
		svc := &MockService{}
		svc.On("AvailableSlots", mock.Anything, "st1", day).
			Return([]scheduling.TimeOfDay{scheduling.Clock(9, 0), scheduling.Clock(18, 0)}, nil)

		w := serve(t, svc, http.MethodGet, "/api/stations/st1/slots?date=2025-06-02", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"date":"2025-06-02","slots":["09:00","18:00"]}`, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("fully booked", func(t *testing.T) {
		svc := &MockService{}
		svc.On("AvailableSlots", mock.Anything, "st1", day).Return([]scheduling.TimeOfDay(nil), nil)
		w := serve(t, svc, http.MethodGet, "/api/stations/st1/slots?date=2025-06-02", nil)
		assert.JSONEq(t, `{"date":"2025-06-02","slots":[]}`, w.Body.String())
	})

	t.Run("unknown station", func(t *testing.T) {
		svc := &MockService{}
		svc.On("AvailableSlots", mock.Anything, "nope", day).
			Return([]scheduling.TimeOfDay(nil), fmt.Errorf("station nope: %w", booking.ErrNotFound))
		w := serve(t, svc, http.MethodGet, "/api/stations/nope/slots?date=2025-06-02", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Kind)
	})

	for _, q := range []string{"", "?date=02.06.2025"} {
		w := serve(t, &MockService{}, http.MethodGet, "/api/stations/st1/slots"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListCalendar(t *testing.T) {
	svc := &MockService{}
	today := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	svc.On("ListCalendar", mock.Anything, "st1", today, today.AddDate(0, 0, 1)).Return([]models.Inspection(nil), nil)
	from := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc.On("ListCalendar", mock.Anything, "st1", from, from.AddDate(0, 0, 7)).Return([]models.Inspection{{StationID: "st1"}}, nil)

	w := serve(t, svc, http.MethodGet, "/api/stations/st1/inspections", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(t, svc, http.MethodGet, "/api/stations/st1/inspections?from=2025-06-02&to=2025-06-09", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.Inspection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = serve(t, svc, http.MethodGet, "/api/stations/st1/inspections?from=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestBook(t *testing.T) {
	created := &models.Inspection{ID: primitive.NewObjectID(), StationID: "st1", Status: models.StatusScheduled}

	t.Run("slot booking", func(t *testing.T) {
		svc := &MockService{}
		want := booking.BookRequest{
			StationID:    "st1",
			VehicleID:    "v1",
			ClientID:     "c1",
			Start:        time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
			SlotBooking:  true,
			PeriodMonths: 24,
			Actor:        "engineer@itp.ro",
		}
		svc.On("Book", mock.Anything, want).Return(created, nil)

		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			map[string]interface{}{"vehicle_id": "v1", "client_id": "c1", "date": "2025-06-02", "time": "10:30", "period_months": 24})
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("calendar booking", func(t *testing.T) {
		svc := &MockService{}
		start := time.Date(2025, 6, 2, 10, 10, 0, 0, time.UTC)
		svc.On("Book", mock.Anything, mock.MatchedBy(func(r booking.BookRequest) bool {
			return r.Start.Equal(start) && !r.SlotBooking && r.DurationMinutes == 20
		})).Return(created, nil)

		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			`{"vehicle_id":"v1","client_id":"c1","start":"2025-06-02T10:10:00Z","duration_minutes":20}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("overlap", func(t *testing.T) {
		svc := &MockService{}
		rej := &scheduling.Rejection{
			Kind:       scheduling.RejectOverlap,
			Date:       time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			ConflictID: "a1",
			ConflictInterval: &scheduling.Interval{
				Start: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 2, 10, 45, 0, 0, time.UTC),
			},
			OverlapBy: 15 * time.Minute,
		}
		svc.On("Book", mock.Anything, mock.Anything).Return(nil, rej)

		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			`{"vehicle_id":"v1","client_id":"c1","start":"2025-06-02T10:30:00Z"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, "overlap", detail.Kind)
		assert.Equal(t, "a1", detail.ConflictID)
		assert.Equal(t, 15, detail.OverlapMinutes)
		assert.Equal(t, "2025-06-02", detail.Date)
		assert.Equal(t, rej.Message(), detail.Message)
	})

	t.Run("before window", func(t *testing.T) {
		svc := &MockService{}
		rej := &scheduling.Rejection{
			Kind:     scheduling.RejectBeforeWindow,
			Date:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			Earliest: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			Expiry:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		}
		svc.On("Book", mock.Anything, mock.Anything).Return(nil, rej)

		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			`{"vehicle_id":"v1","client_id":"c1","date":"2025-06-02","time":"09:00"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, "before_window", detail.Kind)
		assert.Equal(t, "2025-12-01", detail.Earliest)
		assert.Equal(t, "2025-12-31", detail.Expiry)
	})

	t.Run("above maximum", func(t *testing.T) {
		svc := &MockService{}
		rej := &scheduling.Rejection{
			Kind:        scheduling.RejectAboveMaximum,
			Date:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			MaxDuration: 10 * time.Hour,
			Requested:   72 * time.Hour,
		}
		svc.On("Book", mock.Anything, mock.Anything).Return(nil, rej)

		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			`{"vehicle_id":"v1","client_id":"c1","start":"2025-06-02T09:00:00Z","duration_minutes":4320}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, "above_maximum_duration", detail.Kind)
		assert.Equal(t, 600, detail.MaxDurationMinutes)
		assert.Equal(t, 4320, detail.RequestedMinutes)
	})

	tests := []struct {
		name string
		body string
	}{
		{"no start",`{"vehicle_id":"v1","client_id":"c1"}`},
		{"bad time", `{"vehicle_id":"v1","client_id":"c1","date":"2025-06-02","time":"25:00"}`},
		{"bad date", `{"vehicle_id":"v1","client_id":"c1","date":"June 2","time":"10:00"}`},
		{"unknown field", `{"vehicle_id":"v1","slot":"x"}`},
		{"not json", `vehicle=v1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockService{}
			w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
		})
	}

	t.Run("service validation", func(t *testing.T) {
		svc := &MockService{}
		svc.On("Book", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("period: %w", booking.ErrInvalidInput))
		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			`{"vehicle_id":"v1","client_id":"c1","start":"2025-06-02T10:30:00Z","period_months":7}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := &MockService{}
		svc.On("Book", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
		w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections",
			`{"vehicle_id":"v1","client_id":"c1","start":"2025-06-02T10:30:00Z"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestReschedule(t *testing.T) {
	start := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	svc := &MockService{}
	svc.On("Reschedule", mock.Anything, "i1", start, end, "engineer@itp.ro").Return(&models.Inspection{}, nil)
	svc.On("Reschedule", mock.Anything, "i2", start, end, "engineer@itp.ro").
		Return(nil, fmt.Errorf("cannot reschedule: %w", booking.ErrInvalidTransition))

	body := `{"start":"2025-06-02T14:00:00Z","end":"2025-06-02T15:00:00Z"}`
	w := serve(t, svc, http.MethodPatch, "/api/inspections/i1/schedule", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, svc, http.MethodPatch, "/api/inspections/i2/schedule", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, w).Kind)

	w = serve(t, svc, http.MethodPost, "/api/inspections/i1/schedule", body)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	svc.AssertExpectations(t)
}

func TestLifecycleRoutes(t *testing.T) {
	svc := &MockService{}
	svc.On("Start", mock.Anything, "i1", "engineer@itp.ro").Return(&models.Inspection{Status: models.StatusInProgress}, nil)
	svc.On("Cancel", mock.Anything, "i1", "engineer@itp.ro").Return(&models.Inspection{Status: models.StatusCancelled}, nil)
	svc.On("Complete", mock.Anything, "i1", booking.CompleteRequest{Passed: true, Mileage: 1200, Actor: "engineer@itp.ro"}).
		Return(&models.Inspection{Status: models.StatusPassed}, nil)

	for _, action := range []string{"start", "cancel"} {
		w := serve(t, svc, http.MethodPost, "/api/inspections/i1/"+action, nil)
		assert.Equal(t, http.StatusOK, w.Code, action)
	}

	w := serve(t, svc, http.MethodPost, "/api/inspections/i1/complete", `{"result":"passed","mileage":1200}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, svc, http.MethodPost, "/api/inspections/i1/complete", `{"result":"ok"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestRecordWalkIn(t *testing.T) {
	svc := &MockService{}
	svc.On("RecordWalkIn", mock.Anything, mock.MatchedBy(func(r booking.WalkInRequest) bool { return r.VehicleID == "v1" })).
		Return(&models.Inspection{Status: models.StatusPassed}, nil)
	svc.On("RecordWalkIn", mock.Anything, mock.MatchedBy(func(r booking.WalkInRequest) bool { return r.VehicleID == "v2" })).
		Return(nil, fmt.Errorf("certified: %w", booking.ErrVehicleHasValidCertificate))

	w := serve(t, svc, http.MethodPost, "/api/stations/st1/inspections/completed", `{"vehicle_id":"v1","client_id":"c1","result":"passed"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(t, svc, http.MethodPost, "/api/stations/st1/inspections/completed", `{"vehicle_id":"v2","client_id":"c1","result":"failed"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "valid_certificate", decodeError(t, w).Kind)
}

func TestReinspectionWindow(t *testing.T) {
	svc := &MockService{}
	today := svc.Today()
	window := scheduling.Window{
		Earliest: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Expiry:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	svc.On("ReinspectionWindow", mock.Anything, "v1", today).Return(window, nil)
	svc.On("ReinspectionWindow", mock.Anything, "v2", today).Return(scheduling.Window{Unrestricted: true}, nil)

	w := serve(t, svc, http.MethodGet, "/api/vehicles/v1/reinspection-window", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"vehicle_id":"v1","unrestricted":false,"earliest":"2025-12-01","expiry":"2025-12-31"}`, w.Body.String())

	w = serve(t, svc, http.MethodGet, "/api/vehicles/v1/reinspection-window?date=2025-11-30", nil)
	var resp windowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Valid)
	assert.False(t, *resp.Valid)
	require.NotNil(t, resp.Rejection)
	assert.Equal(t, "before_window", resp.Rejection.Kind)

	w = serve(t, svc, http.MethodGet, "/api/vehicles/v1/reinspection-window?date=2025-12-15", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, *resp.Valid)

	w = serve(t, svc, http.MethodGet, "/api/vehicles/v2/reinspection-window?date=2030-01-01", nil)
	assert.JSONEq(t, `{"vehicle_id":"v2","unrestricted":true,"date":"2030-01-01","valid":true}`, w.Body.String())
}

func TestRegistryRoutes(t *testing.T) {
	svc := &MockService{}
	svc.On("CreateStation", mock.Anything, mock.MatchedBy(func(s models.Station) bool { return s.Name == "ITP Nord" }), "engineer@itp.ro").
		Return(&models.Station{Name: "ITP Nord"}, nil)
	svc.On("GetStation", mock.Anything, "missing").Return(nil, fmt.Errorf("station missing: %w", booking.ErrNotFound))
	svc.On("CreateClient", mock.Anything, mock.Anything, "engineer@itp.ro").
		Return(nil, fmt.Errorf("%w: missing name", booking.ErrInvalidInput))
	svc.On("CreateVehicle", mock.Anything, mock.MatchedBy(func(v models.Vehicle) bool { return v.LicensePlate == "B 123 ABC" }), "engineer@itp.ro").
		Return(&models.Vehicle{LicensePlate: "B123ABC"}, nil)
	svc.On("GetVehicle", mock.Anything, "v1").Return(&models.Vehicle{LicensePlate: "B123ABC"}, nil)

	w := serve(t, svc, http.MethodPost, "/api/stations", `{"name":"ITP Nord"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = serve(t, svc, http.MethodGet, "/api/stations/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(t, svc, http.MethodPost, "/api/clients", `{"type":"fleet","phone":"0700"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = serve(t, svc, http.MethodPost, "/api/vehicles", `{"client_id":"c1","license_plate":"B 123 ABC"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = serve(t, svc, http.MethodGet, "/api/vehicles/v1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "B123ABC")
	svc.AssertExpectations(t)
}

func TestListActivity(t *testing.T) {
	svc := &MockService{}
	svc.On("ListActivity", mock.Anything, "st1", 10).Return([]models.ActivityLog{{Action: models.ActionSchedule}}, nil)
	svc.On("ListActivity", mock.Anything, "st1", 0).Return([]models.ActivityLog(nil), nil)

	w := serve(t, svc, http.MethodGet, "/api/stations/st1/activity?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"schedule"`)

	w = serve(t, svc, http.MethodGet, "/api/stations/st1/activity", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(t, svc, http.MethodGet, "/api/stations/st1/activity?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}
