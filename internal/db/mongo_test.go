package db

import (
	"context"
	"testing"
	"time"

	"github.com/smartbus/school-bus-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })
	return client.Database("test_bus_monitor")
}

func TestMongoBusCollection_GetOrCreateBus(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("buses")
	collection.Drop(context.Background())

	buses := &MongoBusCollection{Collection: collection}

	created, err := buses.GetOrCreateBus(context.Background(), "bus-7")
	require.NoError(t, err)
	assert.Equal(t, "bus-7", created.BusID)

	// Second call must return the same record, not insert a duplicate.
	again, err := buses.GetOrCreateBus(context.Background(), "bus-7")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	count, err := collection.CountDocuments(context.Background(), bson.M{"bus_id": "bus-7"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMongoTelemetryCollection_LatestPerBus(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("telemetry")
	collection.Drop(context.Background())

	telemetry := &MongoTelemetryCollection{Collection: collection}
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	samples := []models.Telemetry{
		{BusID: "bus-1", Timestamp: base, SpeedKmh: 40},
		{BusID: "bus-1", Timestamp: base.Add(time.Minute), SpeedKmh: 55},
		{BusID: "bus-2", Timestamp: base, SpeedKmh: 30},
	}
	for _, sample := range samples {
		require.NoError(t, telemetry.InsertTelemetry(context.Background(), sample))
	}

	latest, err := telemetry.LatestPerBus(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "bus-1", latest[0].BusID)
	assert.Equal(t, 55.0, latest[0].SpeedKmh)
	assert.Equal(t, "bus-2", latest[1].BusID)
}

func TestMongoTelemetryCollection_History(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("telemetry")
	collection.Drop(context.Background())

	telemetry := &MongoTelemetryCollection{Collection: collection}
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, telemetry.InsertTelemetry(context.Background(), models.Telemetry{
			BusID:     "bus-3",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			SpeedKmh:  float64(40 + i),
		}))
	}

	history, err := telemetry.History(context.Background(), "bus-3", base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Timestamp.Before(history[2].Timestamp))

	// Zero upper bound means no upper bound.
	open, err := telemetry.History(context.Background(), "bus-3", base.Add(time.Minute), time.Time{})
	require.NoError(t, err)
	assert.Len(t, open, 4)
}

func TestMongoAlertCollection_InsertAndRecent(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("alerts")
	collection.Drop(context.Background())

	alerts := &MongoAlertCollection{Collection: collection}
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := alerts.InsertAlert(context.Background(), models.Alert{
			BusID:     "bus-4",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Type:      models.AlertOverspeed,
			Value:     80,
			Threshold: 70,
			Message:   "Overspeed detected",
		})
		require.NoError(t, err)
	}

	recent, err := alerts.RecentAlerts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	assert.True(t, recent[0].Timestamp.After(recent[1].Timestamp))
}

func TestMongoAlertCollection_FindByID(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("alerts")
	collection.Drop(context.Background())

	alerts := &MongoAlertCollection{Collection: collection}

	id, err := alerts.InsertAlert(context.Background(), models.Alert{
		BusID:     "bus-6",
		Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Type:      models.AlertOverspeed,
		Value:     91,
		Threshold: 70,
	})
	require.NoError(t, err)

	found, err := alerts.FindAlertByID(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Equal(t, "bus-6", found.BusID)
	assert.Equal(t, 91.0, found.Value)

	_, err = alerts.FindAlertByID(context.Background(), "not-a-hex-id")
	assert.Error(t, err)
}

func TestMongoUserCollection_Management(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("users")
	collection.Drop(context.Background())

	users := &MongoUserCollection{Collection: collection}

	require.NoError(t, users.InsertUser(context.Background(), models.User{
		Username:     "admin",
		PasswordHash: "hash-a",
		Role:         models.RoleAdmin,
	}))
	require.NoError(t, users.InsertUser(context.Background(), models.User{
		Username:     "operator1",
		PasswordHash: "hash-b",
		Role:         models.RoleOperator,
	}))

	listed, err := users.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	operator, err := users.FindUserByUsername(context.Background(), "operator1")
	require.NoError(t, err)

	require.NoError(t, users.UpdatePassword(context.Background(), operator.ID.Hex(), "hash-c"))
	updated, err := users.FindUserByID(context.Background(), operator.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "hash-c", updated.PasswordHash)

	require.NoError(t, users.DeleteUser(context.Background(), operator.ID.Hex()))
	assert.ErrorIs(t, users.DeleteUser(context.Background(), operator.ID.Hex()), mongo.ErrNoDocuments)

	listed, err = users.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestMongoMessageCollection_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("driver_messages")
	collection.Drop(context.Background())

	messages := &MongoMessageCollection{Collection: collection}

	id, err := messages.InsertMessage(context.Background(), models.DriverMessage{
		BusID:        "bus-5",
		MessageText:  "ALERT: Please check your bus status immediately.",
		TemplateType: models.TemplateCustom,
		SentByUserID: "admin",
		SentAt:       time.Now().UTC(),
		Status:       models.MessageStatusPending,
	})
	require.NoError(t, err)

	found, err := messages.FindMessageByID(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusPending, found.Status)

	delivered := time.Now().UTC()
	err = messages.UpdateMessageStatus(context.Background(), id, MessageStatusUpdate{
		Status:      models.MessageStatusDelivered,
		DeliveredAt: &delivered,
	})
	require.NoError(t, err)

	found, err = messages.FindMessageByID(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, found.Status)
	require.NotNil(t, found.DeliveredAt)
	assert.Nil(t, found.ReadAt)

	listed, err := messages.FindMessages(context.Background(), "bus-5", 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = messages.FindMessageByID(context.Background(), "not-a-hex-id")
	assert.Error(t, err)
}

func TestMongoConfigCollection_UpsertAndGet(t *testing.T) {
	db := testDatabase(t)
	collection := db.Collection("system_config")
	collection.Drop(context.Background())

	config := &MongoConfigCollection{Collection: collection}

	err := config.UpsertConfigValues(context.Background(), map[string]string{
		models.ConfigKeyOverspeedThreshold: "80",
		models.ConfigKeyAutoNotifyEnabled:  "true",
	})
	require.NoError(t, err)

	// Overwrite one key, leave the other alone.
	err = config.UpsertConfigValues(context.Background(), map[string]string{
		models.ConfigKeyOverspeedThreshold: "90",
	})
	require.NoError(t, err)

	values, err := config.GetConfigMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "90", values[models.ConfigKeyOverspeedThreshold])
	assert.Equal(t, "true", values[models.ConfigKeyAutoNotifyEnabled])
}
