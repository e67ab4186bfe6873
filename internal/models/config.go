package models

import "time"

// Runtime configuration keys stored in the system_config collection.
const (
	ConfigKeyOverspeedThreshold  = "overspeed_threshold"
	ConfigKeyPollIntervalSeconds = "poll_interval_seconds"
	ConfigKeyThingSpeakEnabled   = "thingspeak_enabled"
	ConfigKeyAutoNotifyEnabled   = "auto_notify_enabled"
)

// ConfigEntry is one key/value row of runtime configuration.
type ConfigEntry struct {
	Key       string    `bson:"_id" json:"key"`
	Value     string    `bson:"value" json:"value"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Config is the typed view of the runtime configuration.
type Config struct {
	OverspeedThreshold  float64 `json:"overspeed_threshold"`
	PollIntervalSeconds int     `json:"poll_interval_seconds"`
	ThingSpeakEnabled   bool    `json:"thingspeak_enabled"`
	AutoNotifyEnabled   bool    `json:"auto_notify_enabled"`
}

// ConfigUpdate carries optional overrides for a config update request.
type ConfigUpdate struct {
	OverspeedThreshold  *float64 `json:"overspeed_threshold,omitempty"`
	PollIntervalSeconds *int     `json:"poll_interval_seconds,omitempty"`
	ThingSpeakEnabled   *bool    `json:"thingspeak_enabled,omitempty"`
	AutoNotifyEnabled   *bool    `json:"auto_notify_enabled,omitempty"`
}
