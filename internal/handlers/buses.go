package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/models"
)

// BusHandler serves fleet position and history queries.
type BusHandler struct {
	telemetry db.TelemetryCollection
}

// NewBusHandler creates a bus telemetry handler.
func NewBusHandler(telemetry db.TelemetryCollection) *BusHandler {
	return &BusHandler{telemetry: telemetry}
}

// Latest returns the most recent telemetry sample per bus.
func (h *BusHandler) Latest(w http.ResponseWriter, r *http.Request) {
	samples, err := h.telemetry.LatestPerBus(r.Context())
	if err != nil {
		http.Error(w, "Failed to load fleet positions", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []models.Telemetry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(samples)
}

// History returns the telemetry window for one bus. The window defaults to
// the last hour when no bounds are given.
func (h *BusHandler) History(w http.ResponseWriter, r *http.Request) {
	busID := r.PathValue("id")
	if busID == "" {
		http.Error(w, "Bus id is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	from := now.Add(-time.Hour)
	var to time.Time

	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid 'from' timestamp, expected RFC3339", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid 'to' timestamp, expected RFC3339", http.StatusBadRequest)
			return
		}
		to = parsed
	}

	if !to.IsZero() && to.Before(from) {
		http.Error(w, "'from' must not be after 'to'", http.StatusBadRequest)
		return
	}

	samples, err := h.telemetry.History(r.Context(), busID, from, to)
	if err != nil {
		http.Error(w, "Failed to load telemetry history", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []models.Telemetry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(samples)
}
