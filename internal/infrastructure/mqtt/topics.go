package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base of every almondlink topic.
//
// Topic scheme:
//
//	almondlink/link/status                      link online/offline (retained, LWT)
//	almondlink/device/{id}/meta                 device metadata (retained)
//	almondlink/device/{id}/state/{property}     live property state (retained)
//	almondlink/device/{id}/set/{index}          inbound value commands
const TopicPrefix = "almondlink"

// Topics provides builders for almondlink MQTT topics. Using these
// helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// LinkStatus returns the link availability topic. Both the LWT and the
// graceful shutdown message land here, retained.
func (Topics) LinkStatus() string {
	return TopicPrefix + "/link/status"
}

// DeviceMeta returns the retained metadata topic for one device.
//
// Example: almondlink/device/7/meta
func (Topics) DeviceMeta(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/meta", TopicPrefix, deviceID)
}

// DeviceState returns the state topic for one device property.
//
// Example: almondlink/device/7/state/on
func (Topics) DeviceState(deviceID, property string) string {
	return fmt.Sprintf("%s/device/%s/state/%s", TopicPrefix, deviceID, property)
}

// DeviceSet returns the command topic for one device value index.
//
// Example: almondlink/device/7/set/1
func (Topics) DeviceSet(deviceID, index string) string {
	return fmt.Sprintf("%s/device/%s/set/%s", TopicPrefix, deviceID, index)
}

// AllDeviceSets returns the wildcard pattern matching every device
// command topic.
func (Topics) AllDeviceSets() string {
	return TopicPrefix + "/device/+/set/+"
}

// ParseDeviceSet extracts the device ID and value index from a topic
// matched by AllDeviceSets.
func ParseDeviceSet(topic string) (deviceID, index string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix || parts[1] != "device" || parts[3] != "set" {
		return "", "", fmt.Errorf("%w: %q is not a device set topic", ErrInvalidTopic, topic)
	}
	if parts[2] == "" || parts[4] == "" {
		return "", "", fmt.Errorf("%w: %q has empty segments", ErrInvalidTopic, topic)
	}
	return parts[2], parts[4], nil
}
