package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/models"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 200
)

// AlertHandler serves recent alert queries.
type AlertHandler struct {
	alerts db.AlertCollection
}

// NewAlertHandler creates an alert handler.
func NewAlertHandler(alerts db.AlertCollection) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List returns the most recent alerts, newest first.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultAlertLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > maxAlertLimit {
			http.Error(w, "Limit must be an integer between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	alerts, err := h.alerts.RecentAlerts(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to load alerts", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}
