package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/itp-scheduling/internal/booking"
	"github.com/ukydev/itp-scheduling/internal/config"
	"github.com/ukydev/itp-scheduling/internal/db"
	"github.com/ukydev/itp-scheduling/internal/events"
	"github.com/ukydev/itp-scheduling/internal/handlers"
	"github.com/ukydev/itp-scheduling/internal/lock"
	"github.com/ukydev/itp-scheduling/internal/middleware"
	"github.com/ukydev/itp-scheduling/internal/scheduling"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(database); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up locking")
	}
	defer closeLocker()

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up event publishing")
	}
	defer publisher.Close()

	engine, err := scheduling.New(cfg.Policy)
	if err != nil {
		log.WithError(err).Fatal("Invalid scheduling policy")
	}
	svc := booking.NewService(engine, mongoStore(database),
		booking.WithLocker(locker),
		booking.WithPublisher(publisher),
		booking.WithDefaultDuration(cfg.DefaultDuration),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newHTTPHandler(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func mongoStore(database *mongo.Database) booking.Store {
	collection := func(name string) *db.MongoCollection {
		return &db.MongoCollection{Collection: database.Collection(name)}
	}
	return booking.Store{
		Inspections: collection(db.InspectionsCollection),
		Vehicles:    collection(db.VehiclesCollection),
		Stations:    collection(db.StationsCollection),
		Clients:     collection(db.ClientsCollection),
		Activity:    collection(db.ActivityCollectionName),
	}
}

// newLocker uses Redis when REDIS_ADDR is set so several instances share station locks.
func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-process locks")
		return lock.NewLocal(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	log.WithField("addr", cfg.RedisAddr).Info("Using Redis locks")
	return lock.NewRedis(rdb, cfg.LockTTL), func() { _ = rdb.Close() }, nil
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.MQTTBroker == "" {
		log.Info("MQTT_BROKER not set, inspection events are not published")
		return events.NoopPublisher{}, nil
	}
	return events.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
}

func newHTTPHandler(cfg *config.Config, svc handlers.Service) http.Handler {
	limiter := middleware.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxies)
	return handlers.NewRouter(handlers.NewHandler(svc),
		middleware.RequestLogger,
		middleware.Recover,
		limiter.Handler,
	)
}
