package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the service.
const (
	InspectionsCollection  = "inspections"
	VehiclesCollection     = "vehicles"
	StationsCollection     = "stations"
	ClientsCollection      = "clients"
	ActivityCollectionName = "activity_logs"
)

// EnsureIndexes creates the indexes backing the calendar and history queries.
func EnsureIndexes(database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		InspectionsCollection: {
			{
				Keys:    bson.D{{Key: "station_id", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduled_start", Value: 1}},
				Options: options.Index().SetName("station_status_start_idx"),
			},
			{
				Keys:    bson.D{{Key: "vehicle_id", Value: 1}, {Key: "scheduled_start", Value: -1}},
				Options: options.Index().SetName("vehicle_start_idx"),
			},
		},
		StationsCollection: {
			{
				Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "code", Value: 1}},
				Options: options.Index().SetName("company_code_idx"),
			},
		},
		ActivityCollectionName: {
			{
				Keys:    bson.D{{Key: "station_id", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("station_timestamp_idx"),
			},
		},
	}

	for name, idx := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
