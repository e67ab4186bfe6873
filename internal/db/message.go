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

// MongoMessageCollection implements MessageCollection for MongoDB.
type MongoMessageCollection struct {
	Collection *mongo.Collection
}

// InsertMessage inserts a driver message record and returns its id.
func (c *MongoMessageCollection) InsertMessage(ctx context.Context, message models.DriverMessage) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.InsertOne(ctx, message)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

// FindMessageByID finds a driver message by its hex id.
func (c *MongoMessageCollection) FindMessageByID(ctx context.Context, id string) (*models.DriverMessage, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid message ID: %w", err)
	}

	var message models.DriverMessage
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("message not found")
		}
		return nil, err
	}
	return &message, nil
}

// FindMessages lists driver messages newest first, optionally filtered by bus.
func (c *MongoMessageCollection) FindMessages(ctx context.Context, busID string, limit, offset int64) ([]models.DriverMessage, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	filter := bson.M{}
	if busID != "" {
		filter["bus_id"] = busID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.DriverMessage
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMessageStatus applies one lifecycle transition to a message.
func (c *MongoMessageCollection) UpdateMessageStatus(ctx context.Context, id primitive.ObjectID, update MessageStatusUpdate) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	set := bson.M{"status": update.Status}
	if update.DeliveredAt != nil {
		set["delivered_at"] = update.DeliveredAt
	}
	if update.ReadAt != nil {
		set["read_at"] = update.ReadAt
	}
	if update.ErrorMessage != "" {
		set["error_message"] = update.ErrorMessage
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("message not found")
	}
	return nil
}
