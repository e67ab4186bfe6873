package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bus represents a registered school bus.
type Bus struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusID    string             `bson:"bus_id" json:"busId"`
	Name     string             `bson:"name,omitempty" json:"name,omitempty"`
	Capacity int                `bson:"capacity,omitempty" json:"capacity,omitempty"`
}
