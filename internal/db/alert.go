package db

import (
	"context"
	"fmt"

	"github.com/smartbus/school-bus-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAlertCollection implements AlertCollection for MongoDB.
type MongoAlertCollection struct {
	Collection *mongo.Collection
}

// InsertAlert inserts an alert record and returns its id.
func (c *MongoAlertCollection) InsertAlert(ctx context.Context, alert models.Alert) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.InsertOne(ctx, alert)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

// FindAlertByID finds an alert by its id.
func (c *MongoAlertCollection) FindAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var alert models.Alert
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (c *MongoAlertCollection) RecentAlerts(ctx context.Context, limit int64) ([]models.Alert, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)
	cursor, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Alert
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
