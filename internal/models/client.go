package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientType distinguishes private owners from fleet companies.
type ClientType string

const (
	ClientIndividual ClientType = "individual"
	ClientFleet      ClientType = "fleet"
)

// Client represents a vehicle owner.
type Client struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID   string             `bson:"company_id" json:"company_id"`
	Type        ClientType         `bson:"type" json:"type"`
	FirstName   string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName    string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	CompanyName string             `bson:"company_name,omitempty" json:"company_name,omitempty"`
	Phone       string             `bson:"phone" json:"phone"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// DisplayName returns the person's full name or the fleet company name.
func (c *Client) DisplayName() string {
	if c.Type == ClientFleet {
		if c.CompanyName == "" {
			return "Client"
		}
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks the fields required for the client type.
func (c *Client) Validate() error {
	if c.Phone == "" {
		return ErrMissingPhone
	}
	switch c.Type {
	case ClientIndividual:
		if c.FirstName == "" || c.LastName == "" {
			return ErrMissingName
		}
	case ClientFleet:
		if c.CompanyName == "" {
			return ErrMissingName
		}
	default:
		return ErrInvalidClientType
	}
	return nil
}
