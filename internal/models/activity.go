package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityAction is what a user did to an entity.
type ActivityAction string

const (
	ActionCreate   ActivityAction = "create"
	ActionUpdate   ActivityAction = "update"
	ActionDelete   ActivityAction = "delete"
	ActionSchedule ActivityAction = "schedule"
	ActionComplete ActivityAction = "complete"
)

// ActivityLog is an audit entry shown on the station dashboard.
type ActivityLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Actor      string             `bson:"actor" json:"actor"`
	Action     ActivityAction     `bson:"action" json:"action"`
	EntityType string             `bson:"entity_type" json:"entity_type"` // "client", "vehicle", "inspection", "station", "appointment"
	EntityID   string             `bson:"entity_id" json:"entity_id"`
	EntityName string             `bson:"entity_name" json:"entity_name"`
	Details    string             `bson:"details,omitempty" json:"details,omitempty"`
	StationID  string             `bson:"station_id,omitempty" json:"station_id,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}
