package almond

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/almondlink/almond-link/internal/capability"
)

// Wire field and command names used by the hub's JSON protocol.
const (
	// FieldMII is the correlation field stamped onto every request and
	// echoed back on the matching reply.
	FieldMII = "MobileInternalIndex"

	// FieldCommandType names the operation a command performs.
	FieldCommandType = "CommandType"

	// CommandDeviceList requests the hub's full device inventory.
	CommandDeviceList = "DeviceList"

	// CommandUpdateIndex requests a value change on a single device
	// value index.
	CommandUpdateIndex = "UpdateDeviceIndex"
)

// Command is an outbound hub command. It is a free-form JSON object;
// the correlation field is stamped on by the client at send time and
// must not be set by callers.
type Command map[string]any

// NewCommand returns a command of the given type. Additional fields
// may be added directly to the returned map before sending.
func NewCommand(commandType string) Command {
	return Command{FieldCommandType: commandType}
}

// CommandType returns the command's type field, or "" if unset.
func (c Command) CommandType() string {
	s, _ := c[FieldCommandType].(string)
	return s
}

// Frame is one inbound JSON message from the hub, either a reply to a
// pending request (MII set) or an unsolicited event (MII empty).
type Frame struct {
	// MII is the echoed correlation identifier, empty for unsolicited
	// events.
	MII string

	// CommandType is the frame's command type field, if present.
	CommandType string

	// Fields holds the decoded top-level object. Numbers are decoded
	// as json.Number to preserve long decimal identifiers.
	Fields map[string]any

	// Raw is the frame exactly as received.
	Raw []byte
}

// IsReply reports whether the frame carries a correlation identifier.
func (f *Frame) IsReply() bool {
	return f.MII != ""
}

// ParseFrame decodes a single inbound message. Non-object frames and
// malformed JSON are errors; the caller decides whether to drop or
// surface them.
func ParseFrame(raw []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("almond: decode frame: %w", err)
	}

	f := &Frame{Fields: fields, Raw: raw}
	f.MII = stringField(fields, FieldMII)
	f.CommandType = stringField(fields, FieldCommandType)
	return f, nil
}

// stringField reads a top-level field as a string. The hub is not
// consistent about quoting numeric identifiers, so bare numbers are
// accepted too.
func stringField(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// flexString decodes a JSON value that may arrive either quoted or as
// a bare number. Device identifiers and type codes come in both forms
// depending on firmware revision.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// Wire shapes for the DeviceList reply. Only the fields the bridge
// consumes are decoded; the hub sends considerably more.
type deviceListReply struct {
	Devices map[string]wireDevice `json:"Devices"`
}

type wireDevice struct {
	Data         wireDeviceData             `json:"Data"`
	DeviceValues map[string]wireDeviceValue `json:"DeviceValues"`
}

type wireDeviceData struct {
	ID   flexString `json:"ID"`
	Type flexString `json:"Type"`
	Name string     `json:"Name"`
}

type wireDeviceValue struct {
	Name  string     `json:"Name"`
	Value flexString `json:"Value"`
}

// ParseDeviceList extracts device records from a raw DeviceList reply.
// Records carry the vendor's untyped string values; interpretation is
// the capability translator's job.
func ParseDeviceList(raw []byte) ([]capability.DeviceRecord, error) {
	var reply deviceListReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("almond: decode device list: %w", err)
	}

	records := make([]capability.DeviceRecord, 0, len(reply.Devices))
	for key, dev := range reply.Devices {
		id := string(dev.Data.ID)
		if id == "" {
			id = key
		}
		rec := capability.DeviceRecord{
			ID:       id,
			TypeCode: string(dev.Data.Type),
			Name:     dev.Data.Name,
			Values:   make(map[string]string, len(dev.DeviceValues)),
		}
		for index, dv := range dev.DeviceValues {
			rec.Values[index] = string(dv.Value)
		}
		records = append(records, rec)
	}
	return records, nil
}
