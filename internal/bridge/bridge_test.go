package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/almondlink/almond-link/internal/almond"
	"github.com/almondlink/almond-link/internal/capability"
	"github.com/almondlink/almond-link/internal/infrastructure/config"
	"github.com/almondlink/almond-link/internal/infrastructure/mqtt"
)

// fakeMQTT records publishes and subscriptions.
type fakeMQTT struct {
	mu        sync.Mutex
	published []publishRecord
	handlers  map[string]mqtt.MessageHandler
	pubErr    error
}

type publishRecord struct {
	topic   string
	payload string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) PublishRetained(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, publishRecord{topic, string(payload)})
	return nil
}

func (f *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) IsConnected() bool { return true }

func (f *fakeMQTT) topicsPublished(prefix string) []publishRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishRecord
	for _, p := range f.published {
		if strings.HasPrefix(p.topic, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// fakeProtocol is a scripted hub client.
type fakeProtocol struct {
	mu        sync.Mutex
	result    *almond.DeviceListResult
	listErr   error
	blockScan chan struct{} // when set, ListDevices waits for cancel
	cancelled bool
	setCalls  []setCall
	events    chan *almond.Frame
}

type setCall struct {
	deviceID, index, value string
}

func newFakeProtocol(result *almond.DeviceListResult) *fakeProtocol {
	return &fakeProtocol{result: result, events: make(chan *almond.Frame, 8)}
}

func (f *fakeProtocol) ListDevices(context.Context) (*almond.DeviceListResult, error) {
	f.mu.Lock()
	block := f.blockScan
	f.mu.Unlock()
	if block != nil {
		<-block
		return nil, almond.ErrCancelled
	}
	return f.result, f.listErr
}

func (f *fakeProtocol) CancelListDevices() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	if f.blockScan != nil {
		close(f.blockScan)
		f.blockScan = nil
	}
	return true
}

func (f *fakeProtocol) SetDeviceValue(deviceID, index, value string) (*almond.PendingCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, setCall{deviceID, index, value})
	// A handle whose response never arrives; callers consume it in a
	// goroutine guarded by the bridge's shutdown signal.
	return &almond.PendingCall{}, nil
}

func (f *fakeProtocol) Events() <-chan *almond.Frame {
	return f.events
}

// lampDevice builds a translated on/off switch with the given value.
func lampDevice(t *testing.T, id, name, rawValue string) almond.Device {
	t.Helper()
	rec := capability.DeviceRecord{
		ID:       id,
		TypeCode: "1",
		Name:     name,
		Values:   map[string]string{"1": rawValue},
	}
	caps, _, err := capability.Translate(rec)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	return almond.Device{ID: id, Name: name, Capabilities: caps}
}

func eventFrame(t *testing.T, id, typeCode, value string) *almond.Frame {
	t.Helper()
	raw := []byte(`{"CommandType":"DynamicIndexUpdated","Devices":{"` + id + `":{"Data":{"ID":"` + id +
		`","Type":"` + typeCode + `","Name":"x"},"DeviceValues":{"1":{"Value":"` + value + `"}}}}}`)
	frame, err := almond.ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	return frame
}

func TestStart_PublishesMetaAndState(t *testing.T) {
	result := &almond.DeviceListResult{
		Devices: []almond.Device{lampDevice(t, "2", "Hall Lamp", "true")},
		Skipped: []almond.SkippedDevice{{ID: "5", TypeCode: "9999", Name: "Mystery"}},
	}
	proto := newFakeProtocol(result)
	broker := newFakeMQTT()

	b, err := New(Options{Config: config.BridgeConfig{}, Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	metas := broker.topicsPublished("almondlink/device/2/meta")
	if len(metas) != 1 {
		t.Fatalf("meta publishes = %d, want 1", len(metas))
	}
	var meta struct {
		ID    string   `json:"id"`
		Name  string   `json:"name"`
		Types []string `json:"types"`
	}
	if err := json.Unmarshal([]byte(metas[0].payload), &meta); err != nil {
		t.Fatalf("meta payload not JSON: %v", err)
	}
	if meta.ID != "2" || meta.Name != "Hall Lamp" || len(meta.Types) != 1 {
		t.Errorf("meta = %+v", meta)
	}

	// The skipped device must publish nothing.
	if got := broker.topicsPublished("almondlink/device/5"); len(got) != 0 {
		t.Errorf("skipped device published: %v", got)
	}

	states := broker.topicsPublished("almondlink/device/2/state/on")
	if len(states) != 1 || states[0].payload != "true" {
		t.Errorf("state publishes = %v", states)
	}

	if b.DeviceCount() != 1 {
		t.Errorf("DeviceCount() = %d, want 1", b.DeviceCount())
	}
	broker.mu.Lock()
	_, subscribed := broker.handlers["almondlink/device/+/set/+"]
	broker.mu.Unlock()
	if !subscribed {
		t.Error("bridge did not subscribe to set commands")
	}
}

func TestDiscover_TimeoutCancelsScan(t *testing.T) {
	proto := newFakeProtocol(nil)
	proto.blockScan = make(chan struct{})
	broker := newFakeMQTT()

	b, err := New(Options{Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = b.Discover(context.Background(), 30*time.Millisecond)
	if err == nil {
		t.Fatal("Discover() error = nil, want timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Discover() error = %v, want deadline exceeded", err)
	}

	proto.mu.Lock()
	cancelled := proto.cancelled
	proto.mu.Unlock()
	if !cancelled {
		t.Error("timeout did not cancel the in-flight scan")
	}
}

func TestEventLoop_SuppressesUnchangedState(t *testing.T) {
	result := &almond.DeviceListResult{
		Devices: []almond.Device{lampDevice(t, "2", "Hall Lamp", "true")},
	}
	proto := newFakeProtocol(result)
	broker := newFakeMQTT()

	b, err := New(Options{Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	// Same value as discovery, then a change, then the change repeated.
	proto.events <- eventFrame(t, "2", "1", "true")
	proto.events <- eventFrame(t, "2", "1", "false")
	proto.events <- eventFrame(t, "2", "1", "false")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(broker.topicsPublished("almondlink/device/2/state/on")) >= 2 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	states := broker.topicsPublished("almondlink/device/2/state/on")
	if len(states) != 2 {
		t.Fatalf("state publishes = %v, want initial true then one false", states)
	}
	if states[0].payload != "true" || states[1].payload != "false" {
		t.Errorf("state sequence = %v", states)
	}
}

func TestEventLoop_IgnoresUnsupportedAndForeignFrames(t *testing.T) {
	result := &almond.DeviceListResult{
		Devices: []almond.Device{lampDevice(t, "2", "Hall Lamp", "true")},
	}
	proto := newFakeProtocol(result)
	broker := newFakeMQTT()

	b, err := New(Options{Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	before := len(broker.topicsPublished("almondlink/device/"))

	proto.events <- eventFrame(t, "5", "9999", "whatever")
	frame, _ := almond.ParseFrame([]byte(`{"CommandType":"KeepAlive"}`))
	proto.events <- frame

	time.Sleep(50 * time.Millisecond)
	if after := len(broker.topicsPublished("almondlink/device/")); after != before {
		t.Errorf("publishes went %d -> %d for ignorable frames", before, after)
	}
}

func TestHandleSetCommand(t *testing.T) {
	result := &almond.DeviceListResult{
		Devices: []almond.Device{lampDevice(t, "2", "Hall Lamp", "true")},
	}
	proto := newFakeProtocol(result)
	broker := newFakeMQTT()

	b, err := New(Options{Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	broker.mu.Lock()
	handler := broker.handlers["almondlink/device/+/set/+"]
	broker.mu.Unlock()

	if err := handler("almondlink/device/2/set/1", []byte("false\n")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	proto.mu.Lock()
	calls := append([]setCall(nil), proto.setCalls...)
	proto.mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("SetDeviceValue calls = %v, want 1", calls)
	}
	if calls[0] != (setCall{"2", "1", "false"}) {
		t.Errorf("forwarded call = %+v", calls[0])
	}
}

func TestHandleSetCommand_AfterStopIsRejected(t *testing.T) {
	result := &almond.DeviceListResult{
		Devices: []almond.Device{lampDevice(t, "2", "Hall Lamp", "true")},
	}
	proto := newFakeProtocol(result)
	broker := newFakeMQTT()

	b, err := New(Options{Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	broker.mu.Lock()
	handler := broker.handlers["almondlink/device/+/set/+"]
	broker.mu.Unlock()

	b.Stop()

	// A retained or late-delivered command after Stop must be dropped,
	// not handed to a waitgroup that Stop has already drained.
	if err := handler("almondlink/device/2/set/1", []byte("false")); err == nil {
		t.Error("handler error = nil after Stop")
	}
	proto.mu.Lock()
	defer proto.mu.Unlock()
	if len(proto.setCalls) != 0 {
		t.Errorf("command forwarded after Stop: %v", proto.setCalls)
	}
}

func TestHandleSetCommand_UnknownDevice(t *testing.T) {
	proto := newFakeProtocol(&almond.DeviceListResult{})
	broker := newFakeMQTT()

	b, err := New(Options{Client: proto, MQTT: broker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	broker.mu.Lock()
	handler := broker.handlers["almondlink/device/+/set/+"]
	broker.mu.Unlock()

	if err := handler("almondlink/device/42/set/1", []byte("true")); err == nil {
		t.Error("handler error = nil for unknown device")
	}
	proto.mu.Lock()
	defer proto.mu.Unlock()
	if len(proto.setCalls) != 0 {
		t.Errorf("command forwarded for unknown device: %v", proto.setCalls)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{MQTT: newFakeMQTT()}); err == nil {
		t.Error("New() without protocol client error = nil")
	}
	if _, err := New(Options{Client: newFakeProtocol(nil)}); err == nil {
		t.Error("New() without MQTT client error = nil")
	}
}
