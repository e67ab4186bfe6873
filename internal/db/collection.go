package db

import (
	"context"
	"time"

	"github.com/smartbus/school-bus-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BusCollection defines the interface for bus record operations.
type BusCollection interface {
	GetOrCreateBus(ctx context.Context, busID string) (*models.Bus, error)
}

// TelemetryCollection defines the interface for telemetry data operations.
type TelemetryCollection interface {
	InsertTelemetry(ctx context.Context, telemetry models.Telemetry) error
	LatestPerBus(ctx context.Context) ([]models.Telemetry, error)
	History(ctx context.Context, busID string, from, to time.Time) ([]models.Telemetry, error)
}

// AlertCollection defines the interface for alert record operations.
type AlertCollection interface {
	InsertAlert(ctx context.Context, alert models.Alert) (primitive.ObjectID, error)
	FindAlertByID(ctx context.Context, id string) (*models.Alert, error)
	RecentAlerts(ctx context.Context, limit int64) ([]models.Alert, error)
}

// MessageStatusUpdate carries the fields a lifecycle transition may set.
type MessageStatusUpdate struct {
	Status       string
	DeliveredAt  *time.Time
	ReadAt       *time.Time
	ErrorMessage string
}

// MessageCollection defines the interface for driver message operations.
type MessageCollection interface {
	InsertMessage(ctx context.Context, message models.DriverMessage) (primitive.ObjectID, error)
	FindMessageByID(ctx context.Context, id string) (*models.DriverMessage, error)
	FindMessages(ctx context.Context, busID string, limit, offset int64) ([]models.DriverMessage, error)
	UpdateMessageStatus(ctx context.Context, id primitive.ObjectID, update MessageStatusUpdate) error
}

// ConfigCollection defines the interface for runtime configuration storage.
type ConfigCollection interface {
	GetConfigMap(ctx context.Context) (map[string]string, error)
	UpsertConfigValues(ctx context.Context, values map[string]string) error
}

// UserCollection defines the interface for user database operations.
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindFirstUserByRole(ctx context.Context, role models.Role) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string) error
}
