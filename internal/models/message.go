package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Driver message lifecycle statuses. A message is created in pending and is
// advanced by exactly one background task; read and failed are terminal,
// delivered may remain final when the driver never acknowledges.
const (
	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
)

// Message template kinds.
const (
	TemplateOverspeed = "overspeed"
	TemplateDoorOpen  = "door_open"
	TemplateCustom    = "custom"
)

// DriverMessage is a notification targeted at a bus driver with a simulated
// delivery lifecycle. AlertID is a weak back-reference; deleting the alert
// does not cascade to its messages.
type DriverMessage struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	BusID        string              `bson:"bus_id" json:"busId"`
	AlertID      *primitive.ObjectID `bson:"alert_id,omitempty" json:"alertId,omitempty"`
	MessageText  string              `bson:"message_text" json:"message_text"`
	TemplateType string              `bson:"template_type" json:"template_type"`
	CustomNote   string              `bson:"custom_note,omitempty" json:"custom_note,omitempty"`
	SentByUserID string              `bson:"sent_by_user_id" json:"sentByUserId"`
	SentAt       time.Time           `bson:"sent_at" json:"sentAt"`
	Status       string              `bson:"status" json:"status"`
	DeliveredAt  *time.Time          `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	ReadAt       *time.Time          `bson:"read_at,omitempty" json:"readAt,omitempty"`
	ErrorMessage string              `bson:"error_message,omitempty" json:"errorMessage,omitempty"`
}

// MessageSendRequest is the API payload for sending a driver message.
type MessageSendRequest struct {
	BusID        string   `json:"bus_id"`
	AlertID      string   `json:"alert_id,omitempty"`
	TemplateType string   `json:"template_type"`
	CustomNote   string   `json:"custom_note,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Threshold    *float64 `json:"threshold,omitempty"`
}

// MessageTemplateInfo describes one available template for the API.
type MessageTemplateInfo struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Example string `json:"example"`
}
