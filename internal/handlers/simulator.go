package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/smartbus/school-bus-monitor/internal/simulator"
)

// SimulatorHandler exposes fleet simulator control endpoints.
type SimulatorHandler struct {
	manager *simulator.Manager
}

// NewSimulatorHandler creates a simulator control handler.
func NewSimulatorHandler(manager *simulator.Manager) *SimulatorHandler {
	return &SimulatorHandler{manager: manager}
}

// Status returns a snapshot of the running fleet.
func (h *SimulatorHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, h.manager.Status())
}

// StartAll starts the fleet. An optional JSON body may name specific bus ids;
// an empty body starts the default pool.
func (h *SimulatorHandler) StartAll(w http.ResponseWriter, r *http.Request) {
	var busIDs []string

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		var req struct {
			BusIDs []string `json:"bus_ids"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		busIDs = req.BusIDs
	}

	writeStatus(w, h.manager.StartAll(busIDs))
}

// StopAll stops every running unit.
func (h *SimulatorHandler) StopAll(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, h.manager.StopAll())
}

// StartOne starts the simulator for a single bus.
func (h *SimulatorHandler) StartOne(w http.ResponseWriter, r *http.Request) {
	busID := r.PathValue("id")
	if busID == "" {
		http.Error(w, "Bus id is required", http.StatusBadRequest)
		return
	}
	writeStatus(w, h.manager.StartOne(busID))
}

// StopOne stops the simulator for a single bus.
func (h *SimulatorHandler) StopOne(w http.ResponseWriter, r *http.Request) {
	busID := r.PathValue("id")
	if busID == "" {
		http.Error(w, "Bus id is required", http.StatusBadRequest)
		return
	}
	writeStatus(w, h.manager.StopOne(busID))
}

func writeStatus(w http.ResponseWriter, status simulator.Status) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
