package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/smartbus/school-bus-monitor/internal/config"
	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/models"
	"github.com/smartbus/school-bus-monitor/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	telemetryWildcardTopic = "fleet/+/telemetry"
	alertTopicFormat       = "fleet/%s/alerts"
)

// ConfigSource yields the current runtime configuration for each sample.
type ConfigSource interface {
	Get(ctx context.Context) (models.Config, error)
}

// Notifier starts a driver notification and returns its message id.
type Notifier interface {
	Dispatch(ctx context.Context, req notify.Request) (primitive.ObjectID, error)
}

// SpeedForwarder pushes a speed reading to an external sink. Implementations
// must swallow their own errors; forwarding is best-effort.
type SpeedForwarder interface {
	ForwardSpeed(busID string, speedKmh float64, configEnabled bool)
}

// Deps are the collaborators of the ingestor. Forwarder and Notifier may be
// nil, which disables the corresponding side effect.
type Deps struct {
	Buses     db.BusCollection
	Telemetry db.TelemetryCollection
	Alerts    db.AlertCollection
	Users     db.UserCollection
	Config    ConfigSource
	Notifier  Notifier
	Forwarder SpeedForwarder
}

// Ingestor subscribes to the fleet telemetry topics and runs every inbound
// sample through the persistence and alerting pipeline. Each message is an
// independent unit of work: a failure affects only that sample.
type Ingestor struct {
	deps    Deps
	client  mqtt.Client
	publish func(topic string, payload []byte) error
}

// NewIngestor creates an ingestor over the given collaborators.
func NewIngestor(deps Deps) *Ingestor {
	return &Ingestor{deps: deps}
}

// Start connects to the broker and subscribes to all bus telemetry topics.
// The subscription is re-established on reconnect by the connect handler.
func (i *Ingestor) Start(settings config.Settings) error {
	clientID := fmt.Sprintf("backend-subscriber-%d", 1000+rand.Intn(9000))
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", settings.MQTTHost, settings.MQTTPort)).
		SetClientID(clientID).
		SetUsername(settings.MQTTUsername).
		SetPassword(settings.MQTTPassword).
		SetKeepAlive(60 * time.Second).
		SetOnConnectHandler(func(client mqtt.Client) {
			token := client.Subscribe(telemetryWildcardTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
				i.handleMessage(msg.Payload())
			})
			token.Wait()
			if err := token.Error(); err != nil {
				log.WithError(err).Error("Failed to subscribe to telemetry topics")
				return
			}
			log.WithField("topic", telemetryWildcardTopic).Info("Subscribed to fleet telemetry")
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect mqtt broker: %w", token.Error())
	}

	i.client = client
	i.publish = func(topic string, payload []byte) error {
		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		return token.Error()
	}
	return nil
}

// Stop disconnects from the broker. In-flight message handlers finish on
// their own goroutines.
func (i *Ingestor) Stop() {
	if i.client != nil {
		i.client.Disconnect(250)
		i.client = nil
	}
	log.Info("Telemetry ingestor stopped")
}

// handleMessage processes one raw telemetry payload. Malformed payloads are
// dropped with a warning; nothing here may stop the subscription loop.
func (i *Ingestor) handleMessage(payload []byte) {
	var sample models.Telemetry
	if err := json.Unmarshal(payload, &sample); err != nil {
		log.WithError(err).Warn("Dropping malformed telemetry payload")
		return
	}
	if err := sample.Validate(); err != nil {
		log.WithError(err).WithField("bus_id", sample.BusID).Warn("Dropping invalid telemetry payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := i.deps.Buses.GetOrCreateBus(ctx, sample.BusID); err != nil {
		log.WithError(err).WithField("bus_id", sample.BusID).Error("Failed to upsert bus record")
		return
	}
	if err := i.deps.Telemetry.InsertTelemetry(ctx, sample); err != nil {
		log.WithError(err).WithField("bus_id", sample.BusID).Error("Failed to store telemetry")
		return
	}

	cfg, err := i.deps.Config.Get(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load runtime config, skipping alert evaluation")
		return
	}

	for _, alert := range Evaluate(sample, cfg) {
		id, err := i.deps.Alerts.InsertAlert(ctx, alert)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"bus_id": alert.BusID, "type": alert.Type}).
				Error("Failed to store alert")
			continue
		}
		alert.ID = id
		log.WithFields(log.Fields{"bus_id": alert.BusID, "type": alert.Type, "value": alert.Value}).
			Warn(alert.Message)

		i.maybeNotify(ctx, alert, cfg)
		i.publishAlert(alert)
	}

	if i.deps.Forwarder != nil {
		i.deps.Forwarder.ForwardSpeed(sample.BusID, sample.SpeedKmh, cfg.ThingSpeakEnabled)
	}
}

// maybeNotify sends an automatic driver message for the alert when the
// feature is enabled and an admin account exists to attribute it to.
func (i *Ingestor) maybeNotify(ctx context.Context, alert models.Alert, cfg models.Config) {
	if i.deps.Notifier == nil {
		return
	}
	if !cfg.AutoNotifyEnabled {
		log.WithFields(log.Fields{"bus_id": alert.BusID, "type": alert.Type}).
			Info("[SMS SIMULATION] Auto SMS disabled - would have notified driver")
		return
	}

	admin, err := i.deps.Users.FindFirstUserByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.WithError(err).Warn("Auto notify enabled but no active admin account found")
		return
	}

	req := notify.Request{
		BusID:    alert.BusID,
		SenderID: admin.ID.Hex(),
		AlertID:  &alert.ID,
	}
	switch alert.Type {
	case models.AlertOverspeed:
		req.TemplateType = models.TemplateOverspeed
		req.Speed = &alert.Value
		req.Threshold = &alert.Threshold
	case models.AlertDoorOpenWhileMoving:
		req.TemplateType = models.TemplateDoorOpen
		req.Speed = &alert.Value
	default:
		req.TemplateType = models.TemplateCustom
	}

	if _, err := i.deps.Notifier.Dispatch(ctx, req); err != nil {
		log.WithError(err).WithField("bus_id", alert.BusID).Error("Failed to auto-notify driver")
	}
}

// publishAlert republishes the alert on the bus alert topic for live
// subscribers such as dashboards.
func (i *Ingestor) publishAlert(alert models.Alert) {
	if i.publish == nil {
		return
	}
	event := models.AlertEvent{
		BusID:     alert.BusID,
		Timestamp: alert.Timestamp,
		Type:      alert.Type,
		Value:     alert.Value,
		Threshold: alert.Threshold,
		Message:   alert.Message,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to encode alert event")
		return
	}
	topic := fmt.Sprintf(alertTopicFormat, alert.BusID)
	if err := i.publish(topic, payload); err != nil {
		log.WithError(err).WithField("topic", topic).Error("Failed to publish alert event")
	}
}
