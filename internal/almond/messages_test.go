package almond

import "testing"

func TestParseFrame_Reply(t *testing.T) {
	raw := []byte(`{"MobileInternalIndex":"123456789012345678901234","CommandType":"DeviceList"}`)

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if !f.IsReply() {
		t.Error("IsReply() = false, want true")
	}
	if f.MII != "123456789012345678901234" {
		t.Errorf("MII = %q", f.MII)
	}
	if f.CommandType != "DeviceList" {
		t.Errorf("CommandType = %q", f.CommandType)
	}
}

// Some firmware revisions echo the correlation field back as a bare
// number. The full 24 digits must survive decoding.
func TestParseFrame_NumericIdentifier(t *testing.T) {
	raw := []byte(`{"MobileInternalIndex":123456789012345678901234}`)

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if f.MII != "123456789012345678901234" {
		t.Errorf("MII = %q, want all 24 digits preserved", f.MII)
	}
}

func TestParseFrame_Event(t *testing.T) {
	raw := []byte(`{"CommandType":"DynamicIndexUpdated","Devices":{}}`)

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if f.IsReply() {
		t.Error("IsReply() = true for frame without correlation field")
	}
}

func TestParseFrame_Malformed(t *testing.T) {
	for _, raw := range []string{`{"truncated":`, `[]`, `"just a string"`, ``} {
		if _, err := ParseFrame([]byte(raw)); err == nil {
			t.Errorf("ParseFrame(%q) error = nil, want error", raw)
		}
	}
}

func TestParseDeviceList(t *testing.T) {
	raw := []byte(`{
		"MobileInternalIndex": "111122223333444455556666",
		"CommandType": "DeviceList",
		"Devices": {
			"2": {
				"Data": {"ID": "2", "Type": "1", "Name": "Hall Lamp"},
				"DeviceValues": {"1": {"Name": "SWITCH_BINARY", "Value": "true"}}
			},
			"7": {
				"Data": {"ID": 7, "Type": 4, "Name": "Dimmer"},
				"DeviceValues": {
					"1": {"Name": "SWITCH_MULTILEVEL", "Value": "88"},
					"2": {"Name": "SWITCH_BINARY", "Value": "false"}
				}
			}
		}
	}`)

	records, err := ParseDeviceList(raw)
	if err != nil {
		t.Fatalf("ParseDeviceList() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.ID] = i
	}

	lamp := records[byID["2"]]
	if lamp.TypeCode != "1" || lamp.Name != "Hall Lamp" {
		t.Errorf("lamp = %+v", lamp)
	}
	if lamp.Values["1"] != "true" {
		t.Errorf("lamp value = %q, want \"true\"", lamp.Values["1"])
	}

	// Numeric ID and Type must come through as strings.
	dimmer := records[byID["7"]]
	if dimmer.TypeCode != "4" {
		t.Errorf("dimmer TypeCode = %q, want \"4\"", dimmer.TypeCode)
	}
	if dimmer.Values["1"] != "88" || dimmer.Values["2"] != "false" {
		t.Errorf("dimmer values = %v", dimmer.Values)
	}
}

func TestParseDeviceList_IDFallsBackToKey(t *testing.T) {
	raw := []byte(`{"Devices":{"9":{"Data":{"Type":"3","Name":"Door"},"DeviceValues":{}}}}`)

	records, err := ParseDeviceList(raw)
	if err != nil {
		t.Fatalf("ParseDeviceList() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "9" {
		t.Fatalf("records = %+v, want single record with ID from map key", records)
	}
}

func TestParseDeviceList_Malformed(t *testing.T) {
	if _, err := ParseDeviceList([]byte(`{"Devices": "not an object"}`)); err == nil {
		t.Fatal("ParseDeviceList() error = nil, want error")
	}
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand(CommandDeviceList)
	if cmd.CommandType() != "DeviceList" {
		t.Errorf("CommandType() = %q", cmd.CommandType())
	}
}
