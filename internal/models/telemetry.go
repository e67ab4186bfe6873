package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrMissingBusID      = errors.New("telemetry is missing busId")
	ErrMissingTimestamp  = errors.New("telemetry is missing timestamp")
	ErrNegativeSpeed     = errors.New("telemetry speed_kmh must be >= 0")
	ErrNegativeOccupancy = errors.New("telemetry occupancy must be >= 0")
)

// Telemetry is one positional/status reading from a bus at an instant.
// The JSON field names match the MQTT wire payload.
type Telemetry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BusID     string             `bson:"bus_id" json:"busId"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Lat       float64            `bson:"lat" json:"lat"`
	Lon       float64            `bson:"lon" json:"lon"`
	SpeedKmh  float64            `bson:"speed_kmh" json:"speed_kmh"`
	Occupancy int                `bson:"occupancy" json:"occupancy"`
	DoorOpen  bool               `bson:"door_open" json:"door_open"`
	EngineOn  bool               `bson:"engine_on" json:"engine_on"`
}

// Validate checks the schema constraints on an inbound telemetry payload.
func (t *Telemetry) Validate() error {
	if t.BusID == "" {
		return ErrMissingBusID
	}
	if t.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if t.SpeedKmh < 0 {
		return ErrNegativeSpeed
	}
	if t.Occupancy < 0 {
		return ErrNegativeOccupancy
	}
	return nil
}
