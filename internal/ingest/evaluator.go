package ingest

import (
	"fmt"

	"github.com/smartbus/school-bus-monitor/internal/models"
)

// Buses faster than this with an open door trigger an alert. Fixed, not
// runtime-configurable.
const doorOpenSpeedThreshold = 5.0

// Evaluate applies the safety rules to one telemetry sample. The rules are
// independent, so a single sample can yield zero, one or two alerts. Every
// qualifying sample produces a new alert; there is no deduplication across
// consecutive samples.
func Evaluate(sample models.Telemetry, cfg models.Config) []models.Alert {
	var alerts []models.Alert

	if sample.SpeedKmh > cfg.OverspeedThreshold {
		alerts = append(alerts, models.Alert{
			BusID:     sample.BusID,
			Timestamp: sample.Timestamp,
			Type:      models.AlertOverspeed,
			Value:     sample.SpeedKmh,
			Threshold: cfg.OverspeedThreshold,
			Message: fmt.Sprintf("Overspeed detected: %.1f km/h > %.1f",
				sample.SpeedKmh, cfg.OverspeedThreshold),
		})
	}

	if sample.DoorOpen && sample.SpeedKmh > doorOpenSpeedThreshold {
		alerts = append(alerts, models.Alert{
			BusID:     sample.BusID,
			Timestamp: sample.Timestamp,
			Type:      models.AlertDoorOpenWhileMoving,
			Value:     sample.SpeedKmh,
			Threshold: doorOpenSpeedThreshold,
			Message: fmt.Sprintf("Door open while moving: door is open and speed is %.1f km/h > %.1f",
				sample.SpeedKmh, doorOpenSpeedThreshold),
		})
	}

	return alerts
}
