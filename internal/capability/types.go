package capability

// Primitive is the declared wire primitive of a device property.
type Primitive string

// Primitive constants.
const (
	PrimitiveBoolean Primitive = "boolean"
	PrimitiveInteger Primitive = "integer"
	PrimitiveNumber  Primitive = "number"
	PrimitiveString  Primitive = "string"
)

// PropertySpec describes a single controllable or observable property of a
// device type, independent of the hub wire format.
type PropertySpec struct {
	// Semantic holds capability type tags (e.g. "OnOffProperty",
	// "LevelProperty") consumed by schema-aware clients.
	Semantic []string `json:"@type,omitempty"`

	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Primitive `json:"type"`

	// Minimum and Maximum bound numeric properties; nil when unbounded.
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	// Enum lists the allowed values, when the hub documents them.
	Enum []any `json:"enum,omitempty"`

	Unit     string `json:"unit,omitempty"`
	ReadOnly bool   `json:"readOnly,omitempty"`

	// Hidden marks internal properties (e.g. lock configuration blobs)
	// that schema consumers should not surface to users.
	Hidden bool `json:"hidden,omitempty"`
}

// Schema is the normalized description of one vendor device type: its
// semantic type tags and the properties it exposes, keyed by the vendor's
// numeric property index (as a string, matching the wire format).
//
// Schemas in the table are immutable; Translate always returns copies.
type Schema struct {
	Types       []string                `json:"@type"`
	Description string                  `json:"description"`
	Properties  map[string]PropertySpec `json:"properties"`
}

// Property is a PropertySpec enriched with the live value carried by a
// device record. HasValue distinguishes "no value reported" from a zero
// value; properties without a reported value are never defaulted.
type Property struct {
	PropertySpec

	Value    any  `json:"value,omitempty"`
	HasValue bool `json:"-"`
}

// Record is the translated capability record for one discovered device:
// an independent copy of the matched schema with current values filled in.
type Record struct {
	Types       []string            `json:"@type"`
	Description string              `json:"description"`
	Properties  map[string]Property `json:"properties"`
}

// DeviceRecord is the raw vendor payload for a single device, as reported
// by the hub's DeviceList reply. It is opaque input to translation.
type DeviceRecord struct {
	// ID is the hub-assigned device identifier.
	ID string

	// TypeCode is the vendor device-type code (e.g. "1" for an on/off
	// switch). Lookup key into the capability table.
	TypeCode string

	// Name is the user-visible device name.
	Name string

	// Values maps vendor property index → raw value text.
	Values map[string]string
}

// Warning reports a value that could not be coerced to its declared
// primitive type. The raw text is kept as the property value so no data
// is silently lost; several hub value encodings are underdocumented.
type Warning struct {
	// Index is the vendor property index the value belongs to.
	Index string

	// Raw is the uncoerced value text.
	Raw string

	// Type is the primitive the schema declares for this index.
	Type Primitive
}

// clone returns an independent deep copy of the schema.
func (s Schema) clone() Schema {
	cpy := Schema{
		Description: s.Description,
		Properties:  make(map[string]PropertySpec, len(s.Properties)),
	}

	if s.Types != nil {
		cpy.Types = make([]string, len(s.Types))
		copy(cpy.Types, s.Types)
	}

	for idx, prop := range s.Properties {
		cpy.Properties[idx] = prop.clone()
	}

	return cpy
}

// clone returns an independent deep copy of the property spec.
func (p PropertySpec) clone() PropertySpec {
	cpy := p

	if p.Semantic != nil {
		cpy.Semantic = make([]string, len(p.Semantic))
		copy(cpy.Semantic, p.Semantic)
	}
	if p.Minimum != nil {
		v := *p.Minimum
		cpy.Minimum = &v
	}
	if p.Maximum != nil {
		v := *p.Maximum
		cpy.Maximum = &v
	}
	if p.Enum != nil {
		cpy.Enum = make([]any, len(p.Enum))
		copy(cpy.Enum, p.Enum)
	}

	return cpy
}
