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

// MongoConfigCollection implements ConfigCollection for MongoDB.
type MongoConfigCollection struct {
	Collection *mongo.Collection
}

// GetConfigMap returns all stored configuration entries as raw strings.
func (c *MongoConfigCollection) GetConfigMap(ctx context.Context) (map[string]string, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	cursor, err := c.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.ConfigEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		out[entry.Key] = entry.Value
	}
	return out, nil
}

// UpsertConfigValues writes the given key/value pairs, creating missing keys.
func (c *MongoConfigCollection) UpsertConfigValues(ctx context.Context, values map[string]string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	now := time.Now().UTC()
	for key, value := range values {
		_, err := c.Collection.UpdateOne(
			ctx,
			bson.M{"_id": key},
			bson.M{"$set": bson.M{"value": value, "updated_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert config %s: %w", key, err)
		}
	}
	return nil
}
