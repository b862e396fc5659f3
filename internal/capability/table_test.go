package capability

import "testing"

func TestLookup_KnownTypes(t *testing.T) {
	// Every type code the hub vendor documents with properties.
	expected := []string{"1", "2", "3", "4", "5", "6", "7", "9", "48", "57", "58"}

	for _, code := range expected {
		if _, ok := Lookup(code); !ok {
			t.Errorf("expected schema for type code %q", code)
		}
	}

	if len(KnownTypes()) != len(expected) {
		t.Errorf("expected %d known types, got %d", len(expected), len(KnownTypes()))
	}
}

func TestLookup_UnknownType(t *testing.T) {
	if _, ok := Lookup("8"); ok {
		t.Error("type 8 has no documented properties and must not have a schema")
	}
	if _, ok := Lookup(""); ok {
		t.Error("empty type code must not resolve")
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	first, ok := Lookup("1")
	if !ok {
		t.Fatal("expected schema for type 1")
	}

	p := first.Properties["1"]
	p.Name = "tampered"
	first.Properties["1"] = p

	second, _ := Lookup("1")
	if second.Properties["1"].Name != "on" {
		t.Error("Lookup handed out a shared schema reference")
	}
}

func TestTableSanity(t *testing.T) {
	for _, code := range KnownTypes() {
		schema, _ := Lookup(code)

		if len(schema.Types) == 0 {
			t.Errorf("type %q: schema has no semantic type tags", code)
		}
		if schema.Description == "" {
			t.Errorf("type %q: schema has no description", code)
		}
		if len(schema.Properties) == 0 {
			t.Errorf("type %q: schema has no properties", code)
		}

		for idx, prop := range schema.Properties {
			if prop.Name == "" {
				t.Errorf("type %q property %q: missing name", code, idx)
			}
			switch prop.Type {
			case PrimitiveBoolean, PrimitiveInteger, PrimitiveNumber, PrimitiveString:
			default:
				t.Errorf("type %q property %q: invalid primitive %q", code, idx, prop.Type)
			}
			if prop.Minimum != nil && prop.Maximum != nil && *prop.Minimum > *prop.Maximum {
				t.Errorf("type %q property %q: minimum exceeds maximum", code, idx)
			}
		}
	}
}
