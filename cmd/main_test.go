package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ukydev/itp-scheduling/internal/booking"
	"github.com/ukydev/itp-scheduling/internal/config"
	"github.com/ukydev/itp-scheduling/internal/events"
	"github.com/ukydev/itp-scheduling/internal/lock"
	"github.com/ukydev/itp-scheduling/internal/middleware"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	cfg.RedisAddr = ""
	cfg.MQTTBroker = ""
	return cfg
}

func TestNewLocker_Local(t *testing.T) {
	locker, closeLocker, err := newLocker(testConfig(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer closeLocker()
	if _, ok := locker.(*lock.Local); !ok {
		t.Errorf("expected *lock.Local, got %T", locker)
	}
}

func TestNewLocker_UnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"
	if _, _, err := newLocker(cfg); err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestNewPublisher_NoBroker(t *testing.T) {
	publisher, err := newPublisher(testConfig(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := publisher.(events.NoopPublisher); !ok {
		t.Errorf("expected NoopPublisher, got %T", publisher)
	}
}

func TestHTTPHandler_Health(t *testing.T) {
	cfg := testConfig(t)
	engine, err := scheduling.New(cfg.Policy)
	if err != nil {
		t.Fatalf("scheduling.New: %v", err)
	}
	handler := newHTTPHandler(cfg, booking.NewService(engine, booking.Store{}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
