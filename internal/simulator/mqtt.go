package simulator

import (
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions carries the broker connection parameters for simulator units.
type MQTTOptions struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewMQTTPublisherFactory builds a factory that gives every unit its own
// broker connection, mirroring one MQTT client per simulated bus.
func NewMQTTPublisherFactory(opts MQTTOptions) PublisherFactory {
	return func(busID string) (Publisher, error) {
		clientID := fmt.Sprintf("manager-%s-%d", busID, 1000+rand.Intn(9000))
		clientOpts := mqtt.NewClientOptions().
			AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Host, opts.Port)).
			SetClientID(clientID).
			SetUsername(opts.Username).
			SetPassword(opts.Password).
			SetKeepAlive(60 * time.Second)

		client := mqtt.NewClient(clientOpts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connect mqtt broker for %s: %w", busID, token.Error())
		}
		return &pahoPublisher{client: client}, nil
	}
}

type pahoPublisher struct {
	client mqtt.Client
}

// Publish sends the payload at QoS 1 and waits for the broker handshake.
func (p *pahoPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

func (p *pahoPublisher) Close() {
	p.client.Disconnect(250)
}
