package simulator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultBusIDs is the well-known pool started when no ids are given.
func DefaultBusIDs() []string {
	ids := make([]string, 0, 13)
	for i := 1; i <= 13; i++ {
		ids = append(ids, fmt.Sprintf("bus-%d", i))
	}
	return ids
}

// stationaryBuses stay parked so door-open and overspeed scenarios are
// predictable during testing. Membership is fixed at construction.
var stationaryBuses = map[string]bool{
	"bus-1":  true,
	"bus-5":  true,
	"bus-9":  true,
	"bus-13": true,
}

// UnitStatus is one bus entry of a status snapshot.
type UnitStatus struct {
	BusID        string     `json:"busId"`
	MessagesSent int        `json:"messages_sent"`
	LastPublish  *time.Time `json:"last_publish"`
	Stationary   bool       `json:"stationary"`
}

// Status is a read-only snapshot of the running fleet.
type Status struct {
	Running   bool         `json:"running"`
	StartedAt *time.Time   `json:"started_at"`
	BusCount  int          `json:"bus_count"`
	Buses     []UnitStatus `json:"buses"`
}

type runningUnit struct {
	unit   *Unit
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager supervises the set of simulator units. It is the sole owner of the
// registry; every membership change is serialized under one mutex while
// Status takes a snapshot under the same lock.
type Manager struct {
	newPublisher PublisherFactory
	joinTimeout  time.Duration
	hooks        hooks

	mu           sync.Mutex
	units        map[string]*runningUnit
	startedAt    *time.Time
	sharedCtx    context.Context
	sharedCancel context.CancelFunc
}

// NewManager creates a fleet simulator manager publishing through the factory.
func NewManager(newPublisher PublisherFactory) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		newPublisher: newPublisher,
		joinTimeout:  2 * time.Second,
		hooks:        defaultHooks(),
		units:        map[string]*runningUnit{},
		sharedCtx:    ctx,
		sharedCancel: cancel,
	}
}

// StartAll starts the given ids (nil or empty means the default pool),
// skipping any that are already running.
func (m *Manager) StartAll(busIDs []string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(busIDs) == 0 {
		busIDs = DefaultBusIDs()
	}
	for _, busID := range busIDs {
		m.startLocked(busID)
	}
	return m.statusLocked()
}

// StartOne starts a single bus simulator; a no-op when already running.
func (m *Manager) StartOne(busID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startLocked(busID)
	return m.statusLocked()
}

// StopOne stops a single bus simulator; a no-op when not running.
func (m *Manager) StopOne(busID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	running, ok := m.units[busID]
	if !ok {
		return m.statusLocked()
	}
	running.cancel()
	m.joinLocked(busID, running)
	delete(m.units, busID)
	if len(m.units) == 0 {
		m.startedAt = nil
	}
	return m.statusLocked()
}

// StopAll signals every unit to stop, waits a bounded time for each, and
// replaces the shared stop signal so a later start is not pre-cancelled.
func (m *Manager) StopAll() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.units) == 0 {
		return m.statusLocked()
	}

	m.sharedCancel()
	for busID, running := range m.units {
		m.joinLocked(busID, running)
	}
	m.units = map[string]*runningUnit{}
	m.startedAt = nil
	m.sharedCtx, m.sharedCancel = context.WithCancel(context.Background())
	return m.statusLocked()
}

// Status returns a snapshot of the fleet, safe to call concurrently with any
// start or stop operation.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Shutdown stops everything; used on server exit.
func (m *Manager) Shutdown() {
	m.StopAll()
}

func (m *Manager) startLocked(busID string) {
	if _, ok := m.units[busID]; ok {
		return
	}

	publisher, err := m.newPublisher(busID)
	if err != nil {
		log.WithError(err).WithField("bus_id", busID).Error("Failed to create publisher for simulator unit")
		return
	}

	stationary := stationaryBuses[busID]
	unit, err := NewUnit(busID, RouteForBus(busID, m.hooks.newRand()), stationary, publisher, m.hooks)
	if err != nil {
		// Configuration error: fatal for this unit only.
		publisher.Close()
		log.WithError(err).WithField("bus_id", busID).Error("Failed to build simulator unit")
		return
	}

	if len(m.units) == 0 {
		now := m.hooks.now().UTC()
		m.startedAt = &now
	}

	ctx, cancel := context.WithCancel(m.sharedCtx)
	running := &runningUnit{unit: unit, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(running.done)
		unit.Run(ctx)
	}()
	m.units[busID] = running

	log.WithFields(log.Fields{"bus_id": busID, "stationary": stationary}).Info("Started simulator unit")
}

// joinLocked waits for a unit's goroutine within the join timeout. A unit
// that misses the window is removed from the registry anyway; the leak is
// logged, not escalated.
func (m *Manager) joinLocked(busID string, running *runningUnit) {
	select {
	case <-running.done:
	case <-time.After(m.joinTimeout):
		log.WithField("bus_id", busID).Warn("Simulator unit did not stop within the join timeout")
	}
}

func (m *Manager) statusLocked() Status {
	buses := make([]UnitStatus, 0, len(m.units))
	for busID, running := range m.units {
		metrics := running.unit.Snapshot()
		entry := UnitStatus{
			BusID:        busID,
			MessagesSent: metrics.MessagesSent,
			Stationary:   running.unit.Stationary(),
		}
		if !metrics.LastPublish.IsZero() {
			publish := metrics.LastPublish
			entry.LastPublish = &publish
		}
		buses = append(buses, entry)
	}
	sort.Slice(buses, func(i, j int) bool { return buses[i].BusID < buses[j].BusID })

	return Status{
		Running:   len(m.units) > 0,
		StartedAt: m.startedAt,
		BusCount:  len(m.units),
		Buses:     buses,
	}
}
