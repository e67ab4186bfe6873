package ingest

import (
	"testing"
	"time"

	"github.com/smartbus/school-bus-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	cfg := models.Config{OverspeedThreshold: 70}
	now := time.Now().UTC()

	sample := func(speed float64, doorOpen bool) models.Telemetry {
		return models.Telemetry{
			BusID:     "bus-3",
			Timestamp: now,
			SpeedKmh:  speed,
			DoorOpen:  doorOpen,
			EngineOn:  true,
		}
	}

	t.Run("quiet sample yields nothing", func(t *testing.T) {
		assert.Empty(t, Evaluate(sample(50.0, false), cfg))
	})

	t.Run("overspeed", func(t *testing.T) {
		alerts := Evaluate(sample(85.0, false), cfg)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.AlertOverspeed, alerts[0].Type)
		assert.Equal(t, "bus-3", alerts[0].BusID)
		assert.Equal(t, now, alerts[0].Timestamp)
		assert.Equal(t, 85.0, alerts[0].Value)
		assert.Equal(t, 70.0, alerts[0].Threshold)
		assert.Equal(t, "Overspeed detected: 85.0 km/h > 70.0", alerts[0].Message)
	})

	t.Run("speed at threshold is not overspeed", func(t *testing.T) {
		assert.Empty(t, Evaluate(sample(70.0, false), cfg))
	})

	t.Run("door open while moving", func(t *testing.T) {
		alerts := Evaluate(sample(25.0, true), cfg)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.AlertDoorOpenWhileMoving, alerts[0].Type)
		assert.Equal(t, 25.0, alerts[0].Value)
		assert.Equal(t, 5.0, alerts[0].Threshold)
		assert.Equal(t, "Door open while moving: door is open and speed is 25.0 km/h > 5.0", alerts[0].Message)
	})

	t.Run("door open while crawling is fine", func(t *testing.T) {
		assert.Empty(t, Evaluate(sample(4.0, true), cfg))
	})

	t.Run("door open while stopped is fine", func(t *testing.T) {
		assert.Empty(t, Evaluate(sample(0.0, true), cfg))
	})

	t.Run("both rules fire independently", func(t *testing.T) {
		alerts := Evaluate(sample(85.0, true), cfg)
		require.Len(t, alerts, 2)
		assert.Equal(t, models.AlertOverspeed, alerts[0].Type)
		assert.Equal(t, models.AlertDoorOpenWhileMoving, alerts[1].Type)
	})

	t.Run("threshold comes from config", func(t *testing.T) {
		strict := models.Config{OverspeedThreshold: 40}
		alerts := Evaluate(sample(50.0, false), strict)
		require.Len(t, alerts, 1)
		assert.Equal(t, 40.0, alerts[0].Threshold)
	})
}
