package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/smartbus/school-bus-monitor/internal/config"
	"github.com/smartbus/school-bus-monitor/internal/simulator"
)

func main() {
	settings := config.Load()

	busID := flag.String("bus-id", "bus-1", "bus identifier to simulate")
	host := flag.String("mqtt-host", settings.MQTTHost, "MQTT broker host")
	port := flag.Int("mqtt-port", settings.MQTTPort, "MQTT broker port")
	username := flag.String("mqtt-username", settings.MQTTUsername, "MQTT username")
	password := flag.String("mqtt-password", settings.MQTTPassword, "MQTT password")
	minInterval := flag.Float64("min-interval", 3.0, "minimum seconds between publishes")
	maxInterval := flag.Float64("max-interval", 5.0, "maximum seconds between publishes")
	stationary := flag.Bool("stationary", false, "keep the bus parked at its depot")
	flag.Parse()

	factory := simulator.NewMQTTPublisherFactory(simulator.MQTTOptions{
		Host:     *host,
		Port:     *port,
		Username: *username,
		Password: *password,
	})
	publisher, err := factory(*busID)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}

	unit, err := simulator.NewBusUnit(*busID, *stationary, publisher)
	if err != nil {
		publisher.Close()
		log.WithError(err).Fatal("Failed to build simulator unit")
	}
	unit.SetIntervalRange(*minInterval, *maxInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"bus_id":     *busID,
		"broker":     *host,
		"stationary": *stationary,
	}).Info("Simulator started, press Ctrl+C to stop")

	unit.Run(ctx)
	log.Info("Simulator stopped")
}
