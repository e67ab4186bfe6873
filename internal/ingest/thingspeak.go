package ingest

import (
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/smartbus/school-bus-monitor/internal/config"
)

const thingSpeakBroker = "tcp://mqtt.thingspeak.com:1883"

// ThingSpeakForwarder mirrors speed readings to a ThingSpeak channel over its
// MQTT publish API. Forwarding requires both the deployment flag and the
// runtime config flag; failures are logged and never reach the caller.
type ThingSpeakForwarder struct {
	settings config.Settings
}

// NewThingSpeakForwarder creates a forwarder for the configured channel.
func NewThingSpeakForwarder(settings config.Settings) *ThingSpeakForwarder {
	return &ThingSpeakForwarder{settings: settings}
}

// ForwardSpeed publishes one speed reading as field1 of the channel.
func (f *ThingSpeakForwarder) ForwardSpeed(busID string, speedKmh float64, configEnabled bool) {
	if !configEnabled || !f.settings.ThingSpeakConfigured() {
		return
	}

	clientID := fmt.Sprintf("thingspeak-%s-%d", busID, 1000+rand.Intn(9000))
	opts := mqtt.NewClientOptions().
		AddBroker(thingSpeakBroker).
		SetClientID(clientID).
		SetUsername("thingspeak").
		SetPassword(f.settings.ThingSpeakAPIKey).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Warn("ThingSpeak connection failed, skipping forward")
		return
	}
	defer client.Disconnect(250)

	topic := fmt.Sprintf("channels/%s/publish/fields/field1", f.settings.ThingSpeakChannelID)
	payload := fmt.Sprintf("field1=%.1f", speedKmh)
	if token := client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).WithField("bus_id", busID).Warn("ThingSpeak publish failed")
	}
}
