package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert types produced by the evaluator.
const (
	AlertOverspeed           = "overspeed"
	AlertDoorOpenWhileMoving = "door_open_while_moving"
)

// Alert is a persisted record of a safety rule violation derived from one
// telemetry sample. Alerts are never mutated after creation.
type Alert struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusID     string             `bson:"bus_id" json:"busId"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Type      string             `bson:"type" json:"type"`
	Value     float64            `bson:"value" json:"value"`
	Threshold float64            `bson:"threshold" json:"threshold"`
	Message   string             `bson:"message" json:"message"`
}

// AlertEvent is the outbound MQTT payload published per created alert.
type AlertEvent struct {
	BusID     string    `json:"busId"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}
