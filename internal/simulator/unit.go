package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/smartbus/school-bus-monitor/internal/models"
)

// TelemetryTopic returns the per-bus telemetry topic.
func TelemetryTopic(busID string) string {
	return fmt.Sprintf("fleet/%s/telemetry", busID)
}

// Publisher publishes one payload to a topic at QoS 1. Each unit owns its
// publisher and releases it when the unit's loop exits.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// PublisherFactory builds the publisher for one bus unit.
type PublisherFactory func(busID string) (Publisher, error)

// Metrics are the per-unit counters the manager reports in status snapshots.
type Metrics struct {
	MessagesSent int
	LastPublish  time.Time
}

// hooks bundle the unit's time and randomness sources so tests can force
// deterministic outcomes and zero-length sleeps.
type hooks struct {
	sleep   func(ctx context.Context, d time.Duration) bool
	now     func() time.Time
	newRand func() *rand.Rand
}

func defaultHooks() hooks {
	return hooks{
		sleep: func(ctx context.Context, d time.Duration) bool {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return false
			case <-timer.C:
				return true
			}
		},
		now: time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Unit simulates one bus: it walks a route, manufactures speed/door/occupancy
// readings and publishes telemetry until its context is cancelled.
type Unit struct {
	busID      string
	stationary bool
	walker     *RouteWalker
	publisher  Publisher
	rng        *rand.Rand
	hooks      hooks

	minInterval float64
	maxInterval float64

	doorOpen   bool
	lastToggle time.Time

	mu      sync.Mutex
	metrics Metrics
}

// NewUnit builds a simulator unit for one bus.
func NewUnit(busID string, route []Point, stationary bool, publisher Publisher, h hooks) (*Unit, error) {
	rng := h.newRand()
	walker, err := NewRouteWalker(route, rng)
	if err != nil {
		return nil, err
	}
	return &Unit{
		busID:       busID,
		stationary:  stationary,
		walker:      walker,
		publisher:   publisher,
		rng:         rng,
		hooks:       h,
		minInterval: 3.0,
		maxInterval: 5.0,
		lastToggle:  h.now(),
	}, nil
}

// NewBusUnit builds a unit with default timing sources, choosing the route
// from the bus id. Used by the standalone simulator binary.
func NewBusUnit(busID string, stationary bool, publisher Publisher) (*Unit, error) {
	h := defaultHooks()
	return NewUnit(busID, RouteForBus(busID, h.newRand()), stationary, publisher, h)
}

// SetIntervalRange overrides the publish interval bounds in seconds. Bounds
// given in the wrong order are swapped.
func (u *Unit) SetIntervalRange(min, max float64) {
	if min > max {
		min, max = max, min
	}
	u.minInterval = min
	u.maxInterval = max
}

// Stationary reports whether this unit is parked at its depot.
func (u *Unit) Stationary() bool { return u.stationary }

// Snapshot returns a copy of the unit's publish metrics.
func (u *Unit) Snapshot() Metrics {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.metrics
}

// Run publishes telemetry until ctx is cancelled. The publisher is released
// on exit regardless of how the loop ends.
func (u *Unit) Run(ctx context.Context) {
	defer u.publisher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := u.tick(); err != nil {
			log.WithError(err).WithField("bus_id", u.busID).Error("Failed to publish telemetry")
		}

		if !u.hooks.sleep(ctx, u.publishInterval()) {
			return
		}
	}
}

// tick produces and publishes one telemetry sample.
func (u *Unit) tick() error {
	now := u.hooks.now().UTC()

	var lat, lon float64
	if u.stationary {
		lat, lon = u.walker.NextStationary()
	} else {
		lat, lon = u.walker.Next()
	}

	if now.Sub(u.lastToggle).Seconds() > uniform(u.rng, 20, 60) {
		u.doorOpen = !u.doorOpen
		u.lastToggle = now
	}

	sample := models.Telemetry{
		BusID:     u.busID,
		Timestamp: now,
		Lat:       round6(lat),
		Lon:       round6(lon),
		SpeedKmh:  u.computeSpeed(),
		Occupancy: u.rng.Intn(31),
		DoorOpen:  u.doorOpen,
		EngineOn:  true,
	}

	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	if err := u.publisher.Publish(TelemetryTopic(u.busID), payload); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}

	u.mu.Lock()
	u.metrics.MessagesSent++
	u.metrics.LastPublish = now
	u.mu.Unlock()
	return nil
}

// computeSpeed draws a speed in km/h. Moving buses cluster around 50 with
// occasional overspeed bursts; stationary buses creep below 5.
func (u *Unit) computeSpeed() float64 {
	if u.stationary {
		return round1(uniform(u.rng, 0, 5))
	}
	speed := math.Max(0, u.rng.NormFloat64()*8+50)
	if u.rng.Float64() < 0.15 {
		speed += uniform(u.rng, 15, 35)
	}
	return round1(speed)
}

func (u *Unit) publishInterval() time.Duration {
	return time.Duration(uniform(u.rng, u.minInterval, u.maxInterval) * float64(time.Second))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
