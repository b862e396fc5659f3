package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Almond Link.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Almond  AlmondConfig  `yaml:"almond"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
}

// AlmondConfig contains the hub connection settings.
//
// The hub's websocket API embeds credentials positionally in the path
// (ws://host:port/username/password); there is no separate auth handshake.
type AlmondConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ConnectTimeout is the maximum time to wait for the websocket to open,
	// in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// CloseGrace is the maximum time to wait for the hub to acknowledge a
	// graceful close, in seconds. After this the transport is discarded and
	// the close reports a timeout.
	CloseGrace int `yaml:"close_grace"`

	// RequestTimeout bounds individual pending requests, in seconds.
	// 0 disables per-request timeouts, which matches the hub vendor's own
	// client behaviour; only named scans carry caller-supplied deadlines.
	RequestTimeout int `yaml:"request_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// BridgeConfig contains settings for the hub-to-MQTT bridge.
type BridgeConfig struct {
	// DiscoveryTimeout bounds the initial device scan, in seconds.
	DiscoveryTimeout int `yaml:"discovery_timeout"`

	// EventBuffer is the capacity of the unsolicited-event queue between
	// the protocol client and the bridge loop.
	EventBuffer int `yaml:"event_buffer"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ALMONDLINK_SECTION_KEY
// For example: ALMONDLINK_ALMOND_HOST, ALMONDLINK_MQTT_PASSWORD.
// Overrides cover the hub and broker connection settings, credentials,
// and logging; timing knobs are file-only.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Almond: AlmondConfig{
			Port:           7681,
			ConnectTimeout: 10,
			CloseGrace:     5,
			RequestTimeout: 0,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "almondlink",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Bridge: BridgeConfig{
			DiscoveryTimeout: 30,
			EventBuffer:      64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ALMONDLINK_SECTION_KEY. Hub and
// broker connection settings, credentials, and logging are overridable.
func applyEnvOverrides(cfg *Config) {
	// Almond hub
	if v := os.Getenv("ALMONDLINK_ALMOND_HOST"); v != "" {
		cfg.Almond.Host = v
	}
	if v := os.Getenv("ALMONDLINK_ALMOND_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Almond.Port = port
		}
	}
	if v := os.Getenv("ALMONDLINK_ALMOND_USERNAME"); v != "" {
		cfg.Almond.Username = v
	}
	if v := os.Getenv("ALMONDLINK_ALMOND_PASSWORD"); v != "" {
		cfg.Almond.Password = v
	}

	// MQTT
	if v := os.Getenv("ALMONDLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ALMONDLINK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("ALMONDLINK_MQTT_TLS"); v != "" {
		if tls, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Broker.TLS = tls
		}
	}
	if v := os.Getenv("ALMONDLINK_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("ALMONDLINK_MQTT_QOS"); v != "" {
		if qos, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.QoS = qos
		}
	}
	if v := os.Getenv("ALMONDLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ALMONDLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("ALMONDLINK_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ALMONDLINK_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ALMONDLINK_LOGGING_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
}

// Validate checks the configuration for errors.
//
// Missing hub connection parameters fail here, before any I/O is attempted.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hub validation. Credentials are embedded in the connection URL, so an
	// incomplete set can never produce a working connection.
	if c.Almond.Host == "" {
		errs = append(errs, "almond.host is required")
	}
	if c.Almond.Username == "" {
		errs = append(errs, "almond.username is required")
	}
	if c.Almond.Password == "" {
		errs = append(errs, "almond.password is required")
	}
	if c.Almond.Port < 1 || c.Almond.Port > 65535 {
		errs = append(errs, "almond.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the hub connect timeout as a Duration.
func (c AlmondConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetCloseGrace returns the graceful close bound as a Duration.
func (c AlmondConfig) GetCloseGrace() time.Duration {
	return time.Duration(c.CloseGrace) * time.Second
}

// GetRequestTimeout returns the per-request timeout as a Duration.
// Zero means no per-request timeout is applied.
func (c AlmondConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetDiscoveryTimeout returns the device scan timeout as a Duration.
func (c BridgeConfig) GetDiscoveryTimeout() time.Duration {
	return time.Duration(c.DiscoveryTimeout) * time.Second
}
