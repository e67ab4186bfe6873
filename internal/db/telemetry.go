package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smartbus/school-bus-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTelemetryCollection implements TelemetryCollection for MongoDB.
type MongoTelemetryCollection struct {
	Collection *mongo.Collection
}

// InsertTelemetry inserts a telemetry record into the collection.
func (c *MongoTelemetryCollection) InsertTelemetry(ctx context.Context, telemetry models.Telemetry) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, telemetry)
	return err
}

// LatestPerBus returns the newest telemetry record per bus, ordered by bus id.
func (c *MongoTelemetryCollection) LatestPerBus(ctx context.Context) ([]models.Telemetry, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$bus_id"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "bus_id", Value: 1}}}},
	}

	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Telemetry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns telemetry for one bus within [from, to], oldest first.
// A zero to means no upper bound.
func (c *MongoTelemetryCollection) History(ctx context.Context, busID string, from, to time.Time) ([]models.Telemetry, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	window := bson.M{"$gte": from}
	if !to.IsZero() {
		window["$lte"] = to
	}
	filter := bson.M{"bus_id": busID, "timestamp": window}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Telemetry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
