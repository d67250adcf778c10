package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Station represents an inspection facility. Appointments never overlap within a station.
type Station struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID        string             `bson:"company_id" json:"company_id"`
	Name             string             `bson:"name" json:"name"`
	Code             string             `bson:"code" json:"code"`
	Address          string             `bson:"address" json:"address"`
	Location         *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Phone            string             `bson:"phone" json:"phone"`
	Email            string             `bson:"email" json:"email"`
	InspectorName    string             `bson:"inspector_name" json:"inspector_name"`
	InspectorLicense string             `bson:"inspector_license" json:"inspector_license"`
	IsActive         bool               `bson:"is_active" json:"is_active"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
