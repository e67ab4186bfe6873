package db

import (
	"context"
	"fmt"

	"github.com/smartbus/school-bus-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBusCollection implements BusCollection for MongoDB.
type MongoBusCollection struct {
	Collection *mongo.Collection
}

// GetOrCreateBus finds a bus by its external id, inserting it when absent.
// The upsert makes concurrent calls for the same id race-safe.
func (c *MongoBusCollection) GetOrCreateBus(ctx context.Context, busID string) (*models.Bus, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var bus models.Bus
	err := c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"bus_id": busID},
		bson.M{"$setOnInsert": bson.M{"bus_id": busID}},
		opts,
	).Decode(&bus)
	if err != nil {
		return nil, fmt.Errorf("get or create bus %s: %w", busID, err)
	}
	return &bus, nil
}
