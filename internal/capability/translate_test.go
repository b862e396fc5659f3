package capability

import (
	"errors"
	"testing"
)

func TestTranslate_UnsupportedType(t *testing.T) {
	dev := DeviceRecord{
		ID:       "12",
		TypeCode: "999",
		Name:     "Mystery Device",
	}

	rec, warnings, err := Translate(dev)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if rec != nil {
		t.Error("expected nil record for unsupported type, never a partial schema")
	}
	if warnings != nil {
		t.Error("expected no warnings for unsupported type")
	}
}

func TestTranslate_IntegerCoercion(t *testing.T) {
	dev := DeviceRecord{
		ID:       "3",
		TypeCode: "2", // multilevel switch, property 1 is integer
		Name:     "Dimmer",
		Values:   map[string]string{"1": "42"},
	}

	rec, warnings, err := Translate(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	prop := rec.Properties["1"]
	if !prop.HasValue {
		t.Fatal("expected property to carry a value")
	}
	if got, ok := prop.Value.(int64); !ok || got != 42 {
		t.Errorf("expected int64 42, got %T %v", prop.Value, prop.Value)
	}
}

func TestTranslate_IntegerCoercionFailure(t *testing.T) {
	dev := DeviceRecord{
		ID:       "3",
		TypeCode: "2",
		Name:     "Dimmer",
		Values:   map[string]string{"1": "bright"},
	}

	rec, warnings, err := Translate(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Raw text kept, warning surfaced, never silently zero.
	prop := rec.Properties["1"]
	if got, ok := prop.Value.(string); !ok || got != "bright" {
		t.Errorf("expected raw string fallback, got %T %v", prop.Value, prop.Value)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Index != "1" || warnings[0].Raw != "bright" || warnings[0].Type != PrimitiveInteger {
		t.Errorf("unexpected warning contents: %+v", warnings[0])
	}
}

func TestTranslate_NumberCoercion(t *testing.T) {
	dev := DeviceRecord{
		ID:       "7",
		TypeCode: "7", // thermostat, property 1 is a number
		Name:     "Thermostat",
		Values:   map[string]string{"1": "72.5"},
	}

	rec, _, err := Translate(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prop := rec.Properties["1"]
	if got, ok := prop.Value.(float64); !ok || got != 72.5 {
		t.Errorf("expected float64 72.5, got %T %v", prop.Value, prop.Value)
	}
}

func TestTranslate_BooleanExactMatch(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{name: "literal true", raw: "true", expected: true},
		{name: "wrong case TRUE", raw: "TRUE", expected: false},
		{name: "literal false", raw: "false", expected: false},
		{name: "numeric one", raw: "1", expected: false},
		{name: "empty", raw: "", expected: false},
		{name: "padded true", raw: " true", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := DeviceRecord{
				ID:       "1",
				TypeCode: "1", // on/off switch, property 1 is boolean
				Name:     "Switch",
				Values:   map[string]string{"1": tt.raw},
			}

			rec, warnings, err := Translate(dev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(warnings) != 0 {
				t.Errorf("boolean coercion should never warn, got %v", warnings)
			}

			prop := rec.Properties["1"]
			if got, ok := prop.Value.(bool); !ok || got != tt.expected {
				t.Errorf("coerce(%q) = %v, want %v", tt.raw, prop.Value, tt.expected)
			}
		})
	}
}

func TestTranslate_StringPassthrough(t *testing.T) {
	dev := DeviceRecord{
		ID:       "5",
		TypeCode: "5", // door lock, property 2 is a string config blob
		Name:     "Front Door",
		Values:   map[string]string{"2": "0x23 0x01"},
	}

	rec, _, err := Translate(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prop := rec.Properties["2"]
	if got, ok := prop.Value.(string); !ok || got != "0x23 0x01" {
		t.Errorf("expected passthrough, got %T %v", prop.Value, prop.Value)
	}
}

func TestTranslate_MissingValueNotDefaulted(t *testing.T) {
	dev := DeviceRecord{
		ID:       "1",
		TypeCode: "4", // has properties 1 and 2, only 2 reported
		Name:     "Dimmer Switch",
		Values:   map[string]string{"2": "true"},
	}

	rec, _, err := Translate(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Properties["1"].HasValue {
		t.Error("property without a reported value must not carry one")
	}
	if rec.Properties["1"].Value != nil {
		t.Errorf("expected nil value, got %v", rec.Properties["1"].Value)
	}
	if !rec.Properties["2"].HasValue {
		t.Error("reported property should carry a value")
	}
}

func TestTranslate_CopyIndependence(t *testing.T) {
	dev := DeviceRecord{
		ID:       "1",
		TypeCode: "1",
		Name:     "Switch A",
		Values:   map[string]string{"1": "true"},
	}

	first, _, err := Translate(dev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutate the first record; the table and later translations must be
	// unaffected (the vendor's own client mutated the shared table here).
	p := first.Properties["1"]
	p.Title = "Tampered"
	p.Value = false
	first.Properties["1"] = p
	first.Types[0] = "Tampered"

	second, _, err := Translate(DeviceRecord{ID: "2", TypeCode: "1", Name: "Switch B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Types[0] != "OnOffSwitch" {
		t.Errorf("table type tags were mutated: %v", second.Types)
	}
	if second.Properties["1"].Title != "On/Off" {
		t.Errorf("table property was mutated: %+v", second.Properties["1"])
	}
	if second.Properties["1"].HasValue {
		t.Error("value leaked across translations")
	}
}

func TestTranslate_BoundsAreCopied(t *testing.T) {
	first, _, err := Translate(DeviceRecord{ID: "1", TypeCode: "2", Name: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	*first.Properties["1"].Maximum = 9999

	second, _, err := Translate(DeviceRecord{ID: "2", TypeCode: "2", Name: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *second.Properties["1"].Maximum != 100 {
		t.Errorf("bounds shared between translations: got %v", *second.Properties["1"].Maximum)
	}
}
