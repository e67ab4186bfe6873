package config

import (
	"context"
	"fmt"
	"strconv"

	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/models"
)

// Store exposes typed runtime configuration backed by the config collection.
// Values missing from storage (or unparsable) fall back to defaults.
type Store struct {
	collection db.ConfigCollection
	defaults   models.Config
}

// NewStore creates a runtime config store with defaults from the settings.
func NewStore(collection db.ConfigCollection, settings Settings) *Store {
	return &Store{
		collection: collection,
		defaults: models.Config{
			OverspeedThreshold:  settings.OverspeedDefault,
			PollIntervalSeconds: settings.PollIntervalDefault,
			ThingSpeakEnabled:   settings.ThingSpeakConfigured(),
			AutoNotifyEnabled:   false,
		},
	}
}

// EnsureDefaults seeds any missing configuration keys with their defaults.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	existing, err := s.collection.GetConfigMap(ctx)
	if err != nil {
		return fmt.Errorf("load config map: %w", err)
	}

	missing := map[string]string{}
	for key, value := range s.defaultsMap() {
		if _, ok := existing[key]; !ok {
			missing[key] = value
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return s.collection.UpsertConfigValues(ctx, missing)
}

// Get returns the current typed configuration.
func (s *Store) Get(ctx context.Context) (models.Config, error) {
	raw, err := s.collection.GetConfigMap(ctx)
	if err != nil {
		return models.Config{}, fmt.Errorf("load config map: %w", err)
	}

	cfg := s.defaults
	if value, ok := raw[models.ConfigKeyOverspeedThreshold]; ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.OverspeedThreshold = parsed
		}
	}
	if value, ok := raw[models.ConfigKeyPollIntervalSeconds]; ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.PollIntervalSeconds = parsed
		}
	}
	if value, ok := raw[models.ConfigKeyThingSpeakEnabled]; ok {
		cfg.ThingSpeakEnabled = ParseBool(value)
	}
	if value, ok := raw[models.ConfigKeyAutoNotifyEnabled]; ok {
		cfg.AutoNotifyEnabled = ParseBool(value)
	}
	return cfg, nil
}

// Update validates and applies the given overrides, returning the new config.
func (s *Store) Update(ctx context.Context, update models.ConfigUpdate) (models.Config, error) {
	values := map[string]string{}

	if update.OverspeedThreshold != nil {
		if *update.OverspeedThreshold < 10 || *update.OverspeedThreshold > 150 {
			return models.Config{}, fmt.Errorf("overspeed_threshold must be between 10 and 150")
		}
		values[models.ConfigKeyOverspeedThreshold] = strconv.FormatFloat(*update.OverspeedThreshold, 'f', -1, 64)
	}
	if update.PollIntervalSeconds != nil {
		if *update.PollIntervalSeconds < 1 || *update.PollIntervalSeconds > 60 {
			return models.Config{}, fmt.Errorf("poll_interval_seconds must be between 1 and 60")
		}
		values[models.ConfigKeyPollIntervalSeconds] = strconv.Itoa(*update.PollIntervalSeconds)
	}
	if update.ThingSpeakEnabled != nil {
		values[models.ConfigKeyThingSpeakEnabled] = formatBool(*update.ThingSpeakEnabled)
	}
	if update.AutoNotifyEnabled != nil {
		values[models.ConfigKeyAutoNotifyEnabled] = formatBool(*update.AutoNotifyEnabled)
	}

	if len(values) > 0 {
		if err := s.collection.UpsertConfigValues(ctx, values); err != nil {
			return models.Config{}, fmt.Errorf("store config values: %w", err)
		}
	}
	return s.Get(ctx)
}

func (s *Store) defaultsMap() map[string]string {
	return map[string]string{
		models.ConfigKeyOverspeedThreshold:  strconv.FormatFloat(s.defaults.OverspeedThreshold, 'f', -1, 64),
		models.ConfigKeyPollIntervalSeconds: strconv.Itoa(s.defaults.PollIntervalSeconds),
		models.ConfigKeyThingSpeakEnabled:   formatBool(s.defaults.ThingSpeakEnabled),
		models.ConfigKeyAutoNotifyEnabled:   formatBool(s.defaults.AutoNotifyEnabled),
	}
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
