package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/smartbus/school-bus-monitor/internal/config"
	"github.com/smartbus/school-bus-monitor/internal/models"
)

// ConfigHandler serves the runtime configuration endpoints.
type ConfigHandler struct {
	store *config.Store
}

// NewConfigHandler creates a runtime config handler.
func NewConfigHandler(store *config.Store) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// Get returns the current runtime configuration.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		http.Error(w, "Failed to load configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// Update applies a partial configuration change and returns the result.
// Omitted fields keep their current value.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var update models.ConfigUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := h.store.Update(r.Context(), update)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}
