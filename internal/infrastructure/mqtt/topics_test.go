package mqtt

import (
	"errors"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got  string
		want string
	}{
		{topics.LinkStatus(), "almondlink/link/status"},
		{topics.DeviceMeta("7"), "almondlink/device/7/meta"},
		{topics.DeviceState("7", "on"), "almondlink/device/7/state/on"},
		{topics.DeviceSet("7", "1"), "almondlink/device/7/set/1"},
		{topics.AllDeviceSets(), "almondlink/device/+/set/+"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseDeviceSet(t *testing.T) {
	id, index, err := ParseDeviceSet("almondlink/device/7/set/1")
	if err != nil {
		t.Fatalf("ParseDeviceSet() error = %v", err)
	}
	if id != "7" || index != "1" {
		t.Errorf("ParseDeviceSet() = (%q, %q), want (7, 1)", id, index)
	}
}

func TestParseDeviceSet_Invalid(t *testing.T) {
	invalid := []string{
		"almondlink/device/7/meta",
		"almondlink/link/status",
		"other/device/7/set/1",
		"almondlink/device//set/1",
		"almondlink/device/7/set/",
		"almondlink/device/7/set/1/extra",
		"",
	}
	for _, topic := range invalid {
		if _, _, err := ParseDeviceSet(topic); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ParseDeviceSet(%q) error = %v, want ErrInvalidTopic", topic, err)
		}
	}
}

// Round trip: a built set topic must parse back to its parts.
func TestDeviceSetRoundTrip(t *testing.T) {
	topic := Topics{}.DeviceSet("42", "3")
	id, index, err := ParseDeviceSet(topic)
	if err != nil {
		t.Fatalf("ParseDeviceSet(%q) error = %v", topic, err)
	}
	if id != "42" || index != "3" {
		t.Errorf("round trip = (%q, %q)", id, index)
	}
}
