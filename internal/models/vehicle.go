package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Vehicle represents a client vehicle subject to periodic inspection.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID    string             `bson:"company_id" json:"company_id"`
	ClientID     string             `bson:"client_id" json:"client_id"`
	LicensePlate string             `bson:"license_plate" json:"license_plate"`
	VIN          string             `bson:"vin" json:"vin"`
	Make         string             `bson:"make" json:"make"`
	Model        string             `bson:"model" json:"model"`
	Year         int                `bson:"year" json:"year"`
	Type         string             `bson:"type" json:"type"`           // "car", "truck", "motorcycle", "bus", "trailer"
	FuelType     string             `bson:"fuel_type" json:"fuel_type"` // "petrol", "diesel", "hybrid", "electric", "lpg", "cng"
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
