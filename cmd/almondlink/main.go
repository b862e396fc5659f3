// almondlink - Securifi Almond hub to MQTT bridge
//
// almondlink connects to an Almond home-automation hub over its local
// websocket API, translates the hub's vendor device codes into
// normalized capability records, and publishes devices and live state
// onto an MQTT bus. Commands published to the bus's set topics are
// forwarded back to the hub.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/almondlink/almond-link/internal/almond"
	"github.com/almondlink/almond-link/internal/bridge"
	"github.com/almondlink/almond-link/internal/infrastructure/config"
	"github.com/almondlink/almond-link/internal/infrastructure/logging"
	"github.com/almondlink/almond-link/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting almondlink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"session_id", mqttClient.SessionID(),
	)

	// Open the hub connection
	conn := almond.NewConn(almond.ConnConfig{
		Host:           cfg.Almond.Host,
		Port:           cfg.Almond.Port,
		Username:       cfg.Almond.Username,
		Password:       cfg.Almond.Password,
		ConnectTimeout: cfg.Almond.GetConnectTimeout(),
		CloseGrace:     cfg.Almond.GetCloseGrace(),
	}, log)
	frames, err := conn.Open(ctx)
	if err != nil {
		return fmt.Errorf("connecting to hub: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && !errors.Is(closeErr, almond.ErrNotConnected) {
			log.Error("error closing hub connection", "error", closeErr)
		}
	}()

	// Start the correlation engine
	client := almond.NewClient(conn, log, almond.ClientOptions{
		RequestTimeout: cfg.Almond.GetRequestTimeout(),
		EventBuffer:    cfg.Bridge.EventBuffer,
	})
	client.Start(frames)

	// hubDown fires when the frame stream ends for any reason.
	hubDown := make(chan struct{})
	go func() {
		client.Wait()
		close(hubDown)
	}()

	// Start the bridge
	link, err := bridge.New(bridge.Options{
		Config: cfg.Bridge,
		Client: client,
		MQTT:   mqttClient,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := link.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		link.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"devices", link.DeviceCount())

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
		return nil
	case <-hubDown:
		// The deferred cleanup still publishes the MQTT offline status.
		return errors.New("hub connection lost")
	}
}

// getConfigPath returns the configuration file path.
// Uses ALMONDLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ALMONDLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
