package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/smartbus/school-bus-monitor/internal/auth"
	"github.com/smartbus/school-bus-monitor/internal/config"
	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/handlers"
	"github.com/smartbus/school-bus-monitor/internal/ingest"
	"github.com/smartbus/school-bus-monitor/internal/middleware"
	"github.com/smartbus/school-bus-monitor/internal/models"
	"github.com/smartbus/school-bus-monitor/internal/notify"
	"github.com/smartbus/school-bus-monitor/internal/simulator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	settings := config.Load()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	log.Info("Connected to MongoDB")

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "school_bus_monitor"
	}
	collections := db.NewCollections(client.Database(dbName))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store := config.NewStore(collections.Config, settings)
	if err := store.EnsureDefaults(ctx); err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to seed runtime configuration")
	}

	authService, err := auth.NewService()
	if err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to create auth service")
	}
	bootstrapDefaultUsers(ctx, authService, collections.Users)
	cancel()

	dispatcher := notify.NewDispatcher(collections.Messages)

	ingestor := ingest.NewIngestor(ingest.Deps{
		Buses:     collections.Buses,
		Telemetry: collections.Telemetry,
		Alerts:    collections.Alerts,
		Users:     collections.Users,
		Config:    store,
		Notifier:  dispatcher,
		Forwarder: ingest.NewThingSpeakForwarder(settings),
	})
	if err := ingestor.Start(settings); err != nil {
		log.WithError(err).Fatal("Failed to start telemetry ingestor")
	}
	defer ingestor.Stop()

	manager := simulator.NewManager(simulator.NewMQTTPublisherFactory(simulator.MQTTOptions{
		Host:     settings.MQTTHost,
		Port:     settings.MQTTPort,
		Username: settings.MQTTUsername,
		Password: settings.MQTTPassword,
	}))
	defer manager.Shutdown()

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:           handlers.NewAuthHandler(authService, collections.Users),
		Buses:          handlers.NewBusHandler(collections.Telemetry),
		Alerts:         handlers.NewAlertHandler(collections.Alerts),
		Config:         handlers.NewConfigHandler(store),
		Simulator:      handlers.NewSimulatorHandler(manager),
		Messages:       handlers.NewMessageHandler(dispatcher, collections.Messages, collections.Alerts),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		RateLimit:      middleware.NewRateLimitMiddleware(),
	})

	server := &http.Server{
		Addr:    ":" + settings.HTTPPort,
		Handler: router,
	}

	go func() {
		log.WithField("port", settings.HTTPPort).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}

// bootstrapDefaultUsers seeds the well-known admin and operator accounts so a
// fresh deployment is immediately usable. Existing usernames are left alone.
func bootstrapDefaultUsers(ctx context.Context, authService *auth.Service, users db.UserCollection) {
	defaults := []struct {
		username string
		password string
		role     models.Role
	}{
		{"admin", "admin123", models.RoleAdmin},
		{"operator1", "operator123", models.RoleOperator},
	}

	for _, entry := range defaults {
		if _, err := users.FindUserByUsername(ctx, entry.username); err == nil {
			continue
		}
		hash, err := authService.HashPassword(entry.password)
		if err != nil {
			log.WithError(err).WithField("username", entry.username).Warn("Failed to hash bootstrap password")
			continue
		}
		user := models.User{
			ID:           primitive.NewObjectID(),
			Username:     entry.username,
			PasswordHash: hash,
			Role:         entry.role,
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := users.InsertUser(ctx, user); err != nil {
			log.WithError(err).WithField("username", entry.username).Warn("Failed to bootstrap user")
			continue
		}
		log.WithFields(log.Fields{"username": entry.username, "role": entry.role}).Info("Bootstrapped default user")
	}
}
