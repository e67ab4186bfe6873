package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/middleware"
	"github.com/smartbus/school-bus-monitor/internal/models"
	"github.com/smartbus/school-bus-monitor/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// Notifier starts a driver notification and returns its message id.
type Notifier interface {
	Dispatch(ctx context.Context, req notify.Request) (primitive.ObjectID, error)
}

// MessageHandler serves the driver message endpoints.
type MessageHandler struct {
	notifier Notifier
	messages db.MessageCollection
	alerts   db.AlertCollection
}

// NewMessageHandler creates a driver message handler.
func NewMessageHandler(notifier Notifier, messages db.MessageCollection, alerts db.AlertCollection) *MessageHandler {
	return &MessageHandler{notifier: notifier, messages: messages, alerts: alerts}
}

// Send dispatches a driver message and returns the created record. The
// delivery lifecycle runs in the background; the returned status is pending.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.MessageSendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.BusID == "" {
		http.Error(w, "bus_id is required", http.StatusBadRequest)
		return
	}
	switch req.TemplateType {
	case models.TemplateOverspeed, models.TemplateDoorOpen, models.TemplateCustom:
	default:
		http.Error(w, "Unknown template_type", http.StatusBadRequest)
		return
	}

	dispatchReq := notify.Request{
		BusID:        req.BusID,
		TemplateType: req.TemplateType,
		SenderID:     claims.UserID,
		CustomNote:   req.CustomNote,
		Speed:        req.Speed,
		Threshold:    req.Threshold,
	}
	if req.AlertID != "" {
		alertID, err := primitive.ObjectIDFromHex(req.AlertID)
		if err != nil {
			http.Error(w, "Invalid alert_id", http.StatusBadRequest)
			return
		}
		alert, err := h.alerts.FindAlertByID(r.Context(), req.AlertID)
		if err != nil {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		if alert.BusID != req.BusID {
			http.Error(w, "Alert does not belong to specified bus", http.StatusBadRequest)
			return
		}
		dispatchReq.AlertID = &alertID
		if dispatchReq.Speed == nil {
			speed := alert.Value
			dispatchReq.Speed = &speed
		}
		if dispatchReq.Threshold == nil && req.TemplateType == models.TemplateOverspeed {
			threshold := alert.Threshold
			dispatchReq.Threshold = &threshold
		}
	}

	id, err := h.notifier.Dispatch(r.Context(), dispatchReq)
	if err != nil {
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	message, err := h.messages.FindMessageByID(r.Context(), id.Hex())
	if err != nil {
		http.Error(w, "Message sent but could not be loaded", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

// List returns driver messages, optionally filtered by bus.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := int64(defaultMessageLimit)
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > maxMessageLimit {
			http.Error(w, "Limit must be an integer between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	var offset int64
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "Offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	messages, err := h.messages.FindMessages(r.Context(), query.Get("bus_id"), limit, offset)
	if err != nil {
		http.Error(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.DriverMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// Get returns a single driver message with its current lifecycle status.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return
	}

	message, err := h.messages.FindMessageByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(message)
}

// Templates lists the available message templates.
func (h *MessageHandler) Templates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notify.Templates())
}
