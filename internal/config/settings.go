package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings holds process-level configuration read from the environment.
// Runtime tunables (thresholds, feature flags) live in the Store instead.
type Settings struct {
	MQTTHost     string
	MQTTPort     int
	MQTTUsername string
	MQTTPassword string

	HTTPPort string

	ThingSpeakChannelID string
	ThingSpeakAPIKey    string
	ThingSpeakEnabled   bool

	OverspeedDefault    float64
	PollIntervalDefault int
}

// Load reads settings from the environment, consulting a .env file when present.
func Load() Settings {
	_ = godotenv.Load()

	return Settings{
		MQTTHost:     getEnv("MQTT_HOST", "mosquitto"),
		MQTTPort:     getEnvInt("MQTT_PORT", 1883),
		MQTTUsername: getEnv("MQTT_USERNAME", "studentbus"),
		MQTTPassword: getEnv("MQTT_PASSWORD", "studentbus123"),

		HTTPPort: getEnv("PORT", "8080"),

		ThingSpeakChannelID: os.Getenv("THINGSPEAK_CHANNEL_ID"),
		ThingSpeakAPIKey:    os.Getenv("THINGSPEAK_MQTT_API_KEY"),
		ThingSpeakEnabled:   getEnvBool("THINGSPEAK_ENABLED", false),

		OverspeedDefault:    getEnvFloat("CONFIG_OVERSPEED_THRESHOLD", 70),
		PollIntervalDefault: getEnvInt("CONFIG_POLL_INTERVAL_SECONDS", 5),
	}
}

// ThingSpeakConfigured reports whether forwarding credentials are present.
func (s Settings) ThingSpeakConfigured() bool {
	return s.ThingSpeakEnabled && s.ThingSpeakChannelID != "" && s.ThingSpeakAPIKey != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return ParseBool(value)
}

// ParseBool accepts the truthy spellings used across config values.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
