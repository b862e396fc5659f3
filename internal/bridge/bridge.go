package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/almondlink/almond-link/internal/almond"
	"github.com/almondlink/almond-link/internal/capability"
	"github.com/almondlink/almond-link/internal/infrastructure/config"
	"github.com/almondlink/almond-link/internal/infrastructure/mqtt"
)

// Bridge operation constants.
const (
	// defaultDiscoveryTimeout bounds the initial device scan.
	defaultDiscoveryTimeout = 30 * time.Second

	// commandQoS is the QoS for the inbound set-command subscription.
	commandQoS = 1
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// PublishRetained publishes a retained message at the default QoS.
	PublishRetained(topic string, payload []byte) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// ProtocolClient is the hub-side surface the bridge consumes.
// Satisfied by *almond.Client.
type ProtocolClient interface {
	// ListDevices runs a device scan, translating each entry.
	ListDevices(ctx context.Context) (*almond.DeviceListResult, error)

	// CancelListDevices aborts an in-flight scan.
	CancelListDevices() bool

	// SetDeviceValue asks the hub to change one device value index.
	SetDeviceValue(deviceID, index, value string) (*almond.PendingCall, error)

	// Events delivers unsolicited hub frames.
	Events() <-chan *almond.Frame
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// Config is the bridge section of the loaded configuration.
	Config config.BridgeConfig

	// Client is the hub protocol client.
	Client ProtocolClient

	// MQTT is the broker client implementation.
	MQTT MQTTClient

	// Logger is optional structured logger.
	Logger Logger
}

// Bridge publishes the hub's devices and live state onto the MQTT bus
// and forwards set commands from the bus back to the hub.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg    config.BridgeConfig
	client ProtocolClient
	mqtt   MQTTClient
	logger Logger

	// Known devices by ID, rebuilt on every scan.
	devices map[string]almond.Device
	devMu   sync.RWMutex

	// Last published rendering per state topic, for change suppression.
	published map[string]string
	pubMu     sync.Mutex

	// Shutdown coordination. stopping is flipped under stopMu before
	// wg.Wait so command handlers never wg.Add against a finished group.
	done     chan struct{}
	wg       sync.WaitGroup
	stopMu   sync.Mutex
	stopping bool
	stopOnce sync.Once
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("bridge: protocol client is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("bridge: MQTT client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Bridge{
		cfg:       opts.Config,
		client:    opts.Client,
		mqtt:      opts.MQTT,
		logger:    logger,
		devices:   make(map[string]almond.Device),
		published: make(map[string]string),
		done:      make(chan struct{}),
	}, nil
}

// Start runs the initial device scan, publishes metadata and state for
// every supported device, subscribes to set commands, and starts the
// event loop.
func (b *Bridge) Start(ctx context.Context) error {
	timeout := b.cfg.GetDiscoveryTimeout()
	if timeout == 0 {
		timeout = defaultDiscoveryTimeout
	}
	if _, err := b.Discover(ctx, timeout); err != nil {
		return fmt.Errorf("bridge: initial discovery: %w", err)
	}

	setTopic := mqtt.Topics{}.AllDeviceSets()
	if err := b.mqtt.Subscribe(setTopic, commandQoS, b.handleSetCommand); err != nil {
		return fmt.Errorf("bridge: subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to device commands", "topic", setTopic)

	b.wg.Add(1)
	go b.eventLoop()

	return nil
}

// Stop shuts the bridge down. It does not close the protocol client or
// the broker connection; the caller owns those.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stopMu.Lock()
		b.stopping = true
		b.stopMu.Unlock()
		close(b.done)
		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

// DeviceCount returns the number of devices from the last scan.
func (b *Bridge) DeviceCount() int {
	b.devMu.RLock()
	defer b.devMu.RUnlock()
	return len(b.devices)
}

// Discover runs one bounded device scan and publishes the outcome.
//
// The timeout aborts the scan itself, not just this caller's wait:
// on expiry the in-flight hub request is cancelled. Devices the
// capability table does not know are logged and skipped.
func (b *Bridge) Discover(ctx context.Context, timeout time.Duration) (*almond.DeviceListResult, error) {
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *almond.DeviceListResult
		err    error
	}
	results := make(chan outcome, 1)
	go func() {
		r, err := b.client.ListDevices(context.Background())
		results <- outcome{r, err}
	}()

	var o outcome
	select {
	case o = <-results:
	case <-scanCtx.Done():
		b.client.CancelListDevices()
		// A reply may still have won the race against the cancel.
		o = <-results
	}
	if o.err != nil {
		if scanCtx.Err() != nil {
			return nil, fmt.Errorf("bridge: scan aborted: %w", scanCtx.Err())
		}
		return nil, o.err
	}

	b.devMu.Lock()
	b.devices = make(map[string]almond.Device, len(o.result.Devices))
	for _, dev := range o.result.Devices {
		b.devices[dev.ID] = dev
	}
	b.devMu.Unlock()

	for _, skipped := range o.result.Skipped {
		b.logger.Warn("device type not supported, skipping",
			"device_id", skipped.ID, "type", skipped.TypeCode, "name", skipped.Name)
	}
	for _, dev := range o.result.Devices {
		b.publishMeta(dev)
		b.publishState(dev.ID, dev.Capabilities)
	}

	b.logger.Info("discovery complete",
		"devices", len(o.result.Devices), "skipped", len(o.result.Skipped))
	return o.result, nil
}

// eventLoop consumes unsolicited hub frames until the stream ends.
func (b *Bridge) eventLoop() {
	defer b.wg.Done()

	events := b.client.Events()
	for {
		select {
		case <-b.done:
			return
		case frame, ok := <-events:
			if !ok {
				b.logger.Warn("hub event stream ended")
				return
			}
			b.handleEvent(frame)
		}
	}
}

// handleEvent publishes state changes carried by an unsolicited frame.
// Frames without device payloads are ignored.
func (b *Bridge) handleEvent(frame *almond.Frame) {
	records, err := almond.ParseDeviceList(frame.Raw)
	if err != nil {
		b.logger.Debug("event frame without device payload",
			"command", frame.CommandType, "error", err)
		return
	}

	for _, rec := range records {
		caps, warnings, err := capability.Translate(rec)
		if err != nil {
			b.logger.Debug("event for unsupported device type",
				"device_id", rec.ID, "type", rec.TypeCode)
			continue
		}
		for _, w := range warnings {
			b.logger.Warn("event value did not match declared type",
				"device_id", rec.ID, "index", w.Index, "raw", w.Raw)
		}
		b.publishState(rec.ID, caps)
	}
}

// propertyMeta is the wire shape of one property in a meta payload.
type propertyMeta struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Unit        string   `json:"unit,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Enum        []any    `json:"enum,omitempty"`
	ReadOnly    bool     `json:"readOnly,omitempty"`
	Semantic    []string `json:"@type,omitempty"`
}

// deviceMeta is the wire shape of a retained device metadata message.
type deviceMeta struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Types       []string                `json:"types"`
	Description string                  `json:"description,omitempty"`
	Properties  map[string]propertyMeta `json:"properties"`
}

// publishMeta publishes the retained metadata message for one device.
func (b *Bridge) publishMeta(dev almond.Device) {
	meta := deviceMeta{
		ID:          dev.ID,
		Name:        dev.Name,
		Types:       dev.Capabilities.Types,
		Description: dev.Capabilities.Description,
		Properties:  make(map[string]propertyMeta, len(dev.Capabilities.Properties)),
	}
	for index, prop := range dev.Capabilities.Properties {
		meta.Properties[index] = propertyMeta{
			Name:        prop.Name,
			Title:       prop.Title,
			Description: prop.Description,
			Type:        string(prop.Type),
			Unit:        prop.Unit,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
			Enum:        prop.Enum,
			ReadOnly:    prop.ReadOnly,
			Semantic:    prop.Semantic,
		}
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		b.logger.Error("encode device metadata", "device_id", dev.ID, "error", err)
		return
	}
	topic := mqtt.Topics{}.DeviceMeta(dev.ID)
	if err := b.mqtt.PublishRetained(topic, payload); err != nil {
		b.logger.Error("publish device metadata",
			"device_id", dev.ID, "topic", topic, "error", err)
	}
}

// publishState publishes every present property value of a record,
// suppressing values identical to the last publish on that topic.
func (b *Bridge) publishState(deviceID string, caps *capability.Record) {
	for _, prop := range caps.Properties {
		if !prop.HasValue {
			continue
		}

		rendered, err := json.Marshal(prop.Value)
		if err != nil {
			b.logger.Error("encode property value",
				"device_id", deviceID, "property", prop.Name, "error", err)
			continue
		}

		topic := mqtt.Topics{}.DeviceState(deviceID, prop.Name)

		b.pubMu.Lock()
		unchanged := b.published[topic] == string(rendered)
		if !unchanged {
			b.published[topic] = string(rendered)
		}
		b.pubMu.Unlock()
		if unchanged {
			continue
		}

		if err := b.mqtt.PublishRetained(topic, rendered); err != nil {
			b.logger.Error("publish state",
				"device_id", deviceID, "topic", topic, "error", err)
			continue
		}
		b.logger.Debug("state published", "topic", topic, "value", string(rendered))
	}
}

// handleSetCommand forwards a bus command to the hub. The hub's
// acknowledgement is consumed asynchronously; the confirmed value
// arrives later as an unsolicited event and flows back out through
// the state topics.
func (b *Bridge) handleSetCommand(topic string, payload []byte) error {
	deviceID, index, err := mqtt.ParseDeviceSet(topic)
	if err != nil {
		return err
	}
	value := strings.TrimSpace(string(payload))

	b.devMu.RLock()
	dev, known := b.devices[deviceID]
	b.devMu.RUnlock()
	if !known {
		return fmt.Errorf("bridge: command for unknown device %q", deviceID)
	}
	if prop, ok := dev.Capabilities.Properties[index]; ok && prop.ReadOnly {
		return fmt.Errorf("bridge: property %q of device %q is read-only", prop.Name, deviceID)
	}

	// Reserve the ack worker before forwarding. Once stopping is set,
	// Stop may already be inside wg.Wait, so no new Add is allowed.
	b.stopMu.Lock()
	if b.stopping {
		b.stopMu.Unlock()
		return fmt.Errorf("bridge: shutting down, command for device %q dropped", deviceID)
	}
	b.wg.Add(1)
	b.stopMu.Unlock()

	call, err := b.client.SetDeviceValue(deviceID, index, value)
	if err != nil {
		b.wg.Done()
		return fmt.Errorf("bridge: forward command: %w", err)
	}
	b.logger.Debug("command forwarded",
		"device_id", deviceID, "index", index, "value", value, "mii", call.MII)

	go func() {
		defer b.wg.Done()
		select {
		case resp := <-call.Done():
			if resp.Err != nil {
				b.logger.Warn("command not acknowledged",
					"device_id", deviceID, "index", index, "error", resp.Err)
			}
		case <-b.done:
		}
	}()
	return nil
}
