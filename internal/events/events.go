// Package events publishes inspection lifecycle changes to an MQTT broker.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/itp-scheduling/internal/models"
)

// Event types.
const (
	InspectionBooked      = "booked"
	InspectionRescheduled = "rescheduled"
	InspectionStarted     = "started"
	InspectionCompleted   = "completed"
	InspectionCancelled   = "cancelled"
	InspectionRecorded    = "recorded"
)

// InspectionEvent is the JSON payload of every published message.
type InspectionEvent struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	StationID  string             `json:"station_id"`
	Inspection *models.Inspection `json:"inspection"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Publisher sends inspection events. Publish failures never undo a committed write.
type Publisher interface {
	PublishInspection(eventType string, inspection *models.Inspection) error
	Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishInspection(string, *models.Inspection) error { return nil }
func (NoopPublisher) Close()                                             {}

// MQTTPublisher publishes events with QoS 1 under a topic prefix.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

// NewMQTTPublisher connects to broker and returns a publisher for topics under prefix.
func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	if clientID == "" {
		clientID = "itp-scheduling-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.WithFields(log.Fields{"broker": broker, "client_id": clientID}).Info("Connected to MQTT broker")
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	if prefix == "" {
		prefix = "itp"
	}
	return &MQTTPublisher{client: client, prefix: prefix, timeout: 5 * time.Second}
}

// Topic returns the topic an event for stationID is published on.
func (p *MQTTPublisher) Topic(stationID, eventType string) string {
	return fmt.Sprintf("%s/stations/%s/inspections/%s", p.prefix, stationID, eventType)
}

// PublishInspection publishes one event and waits for the broker to acknowledge it.
func (p *MQTTPublisher) PublishInspection(eventType string, inspection *models.Inspection) error {
	event := InspectionEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		StationID:  inspection.StationID,
		Inspection: inspection,
		Timestamp:  time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.Topic(inspection.StationID, eventType)
	token := p.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.WithFields(log.Fields{
		"topic":         topic,
		"event_id":      event.ID,
		"inspection_id": inspection.ID.Hex(),
	}).Debug("Published inspection event")
	return nil
}

// Close disconnects from the broker, waiting briefly for in-flight messages.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
