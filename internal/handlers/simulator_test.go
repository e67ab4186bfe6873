package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartbus/school-bus-monitor/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(topic string, payload []byte) error { return nil }
func (nopPublisher) Close()                                     {}

func newSimulatorHandler() (*SimulatorHandler, *simulator.Manager) {
	manager := simulator.NewManager(func(busID string) (simulator.Publisher, error) {
		return nopPublisher{}, nil
	})
	return NewSimulatorHandler(manager), manager
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) simulator.Status {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	var status simulator.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	return status
}

func TestSimulatorHandler_StatusIdle(t *testing.T) {
	handler, _ := newSimulatorHandler()

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest("GET", "/api/simulators/status", nil))

	status := decodeStatus(t, w)
	assert.False(t, status.Running)
	assert.Zero(t, status.BusCount)
	assert.Nil(t, status.StartedAt)
}

func TestSimulatorHandler_StartAndStopFleet(t *testing.T) {
	handler, manager := newSimulatorHandler()
	defer manager.Shutdown()

	w := httptest.NewRecorder()
	handler.StartAll(w, httptest.NewRequest("POST", "/api/simulators/start", nil))

	status := decodeStatus(t, w)
	assert.True(t, status.Running)
	assert.Equal(t, 13, status.BusCount)
	assert.NotNil(t, status.StartedAt)

	w = httptest.NewRecorder()
	handler.StopAll(w, httptest.NewRequest("POST", "/api/simulators/stop", nil))

	status = decodeStatus(t, w)
	assert.False(t, status.Running)
	assert.Zero(t, status.BusCount)
}

func TestSimulatorHandler_StartNamedBuses(t *testing.T) {
	handler, manager := newSimulatorHandler()
	defer manager.Shutdown()

	req := httptest.NewRequest("POST", "/api/simulators/start",
		strings.NewReader(`{"bus_ids":["bus-2","bus-5"]}`))
	w := httptest.NewRecorder()
	handler.StartAll(w, req)

	status := decodeStatus(t, w)
	assert.Equal(t, 2, status.BusCount)
}

func TestSimulatorHandler_StartAllRejectsBadJSON(t *testing.T) {
	handler, _ := newSimulatorHandler()

	req := httptest.NewRequest("POST", "/api/simulators/start", strings.NewReader(`{`))
	w := httptest.NewRecorder()
	handler.StartAll(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulatorHandler_SingleBus(t *testing.T) {
	handler, manager := newSimulatorHandler()
	defer manager.Shutdown()

	req := httptest.NewRequest("POST", "/api/simulators/bus/bus-4/start", nil)
	req.SetPathValue("id", "bus-4")
	w := httptest.NewRecorder()
	handler.StartOne(w, req)

	status := decodeStatus(t, w)
	require.Equal(t, 1, status.BusCount)
	assert.Equal(t, "bus-4", status.Buses[0].BusID)

	req = httptest.NewRequest("POST", "/api/simulators/bus/bus-4/stop", nil)
	req.SetPathValue("id", "bus-4")
	w = httptest.NewRecorder()
	handler.StopOne(w, req)

	status = decodeStatus(t, w)
	assert.Zero(t, status.BusCount)
}
