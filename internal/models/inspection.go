package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InspectionStatus is the lifecycle state of an inspection.
type InspectionStatus string

const (
	StatusScheduled  InspectionStatus = "scheduled"
	StatusInProgress InspectionStatus = "in_progress"
	StatusPassed     InspectionStatus = "passed"
	StatusFailed     InspectionStatus = "failed"
	StatusCancelled  InspectionStatus = "cancelled"
)

// ValidPeriods are the certificate validity periods, in months, a station may issue.
var ValidPeriods = []int{6, 12, 24}

// Inspection represents a booked or performed vehicle inspection.
type Inspection struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StationID          string             `bson:"station_id" json:"station_id"`
	VehicleID          string             `bson:"vehicle_id" json:"vehicle_id"`
	ClientID           string             `bson:"client_id" json:"client_id"`
	InspectorID        string             `bson:"inspector_id,omitempty" json:"inspector_id,omitempty"`
	ScheduledStart     time.Time          `bson:"scheduled_start" json:"scheduled_start"`
	DurationMinutes    int                `bson:"duration_minutes" json:"duration_minutes"`
	PeriodMonths       int                `bson:"period_months" json:"period_months"`
	Status             InspectionStatus   `bson:"status" json:"status"`
	CompletedDate      *time.Time         `bson:"completed_date,omitempty" json:"completed_date,omitempty"`
	NextInspectionDate *time.Time         `bson:"next_inspection_date,omitempty" json:"next_inspection_date,omitempty"`
	Mileage            float64            `bson:"mileage,omitempty" json:"mileage,omitempty"` // in kilometers
	CertificateNumber  string             `bson:"certificate_number,omitempty" json:"certificate_number,omitempty"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
	LicensePlate       string             `bson:"license_plate" json:"license_plate"`
	ClientName         string             `bson:"client_name" json:"client_name"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// End returns the end of the booked interval. Records without a duration occupy fallback.
func (i *Inspection) End(fallback time.Duration) time.Time {
	return i.ScheduledStart.Add(i.Duration(fallback))
}

// Duration returns the booked length, or fallback for records that never stored one.
func (i *Inspection) Duration(fallback time.Duration) time.Duration {
	if i.DurationMinutes <= 0 {
		return fallback
	}
	return time.Duration(i.DurationMinutes) * time.Minute
}

// IsValidPeriod reports whether months is an issuable certificate period.
func IsValidPeriod(months int) bool {
	for _, p := range ValidPeriods {
		if p == months {
			return true
		}
	}
	return false
}

// CanTransition reports whether an inspection may move from one status to another.
func CanTransition(from, to InspectionStatus) bool {
	switch from {
	case StatusScheduled:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusPassed || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}
