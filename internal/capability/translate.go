package capability

import (
	"fmt"
	"strconv"
)

// Translate converts a raw vendor device record into a normalized
// capability record.
//
// The device's type code is looked up in the capability table. An unknown
// code returns ErrUnsupportedType wrapped with the code; callers log and
// skip the device. A known code yields an independent copy of the schema
// with current values coerced from the record's raw value text.
//
// Coercion follows the declared primitive of each property:
//   - integer: base-10 parse; on failure the raw text is kept as the value
//     and a Warning is reported (never silently zero)
//   - number: floating-point parse, same failure policy
//   - boolean: true iff the raw text equals exactly "true"; every other
//     text (including "false", "1", "TRUE", empty) is false. This mirrors
//     the hub's own clients and must be preserved for wire compatibility.
//   - anything else: raw text passed through unchanged
//
// Property indexes in the schema with no raw value in the record are left
// without a current value (HasValue false), never defaulted.
//
// Parameters:
//   - dev: Raw vendor device record from a DeviceList reply
//
// Returns:
//   - *Record: Translated capability record (nil on unsupported type)
//   - []Warning: Values that failed coercion, raw text preserved
//   - error: ErrUnsupportedType if the type code has no schema
func Translate(dev DeviceRecord) (*Record, []Warning, error) {
	schema, ok := Lookup(dev.TypeCode)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedType, dev.TypeCode)
	}

	rec := &Record{
		Types:       schema.Types,
		Description: schema.Description,
		Properties:  make(map[string]Property, len(schema.Properties)),
	}

	var warnings []Warning

	for idx, spec := range schema.Properties {
		prop := Property{PropertySpec: spec}

		if raw, ok := dev.Values[idx]; ok {
			value, warned := coerce(raw, spec.Type)
			prop.Value = value
			prop.HasValue = true
			if warned {
				warnings = append(warnings, Warning{
					Index: idx,
					Raw:   raw,
					Type:  spec.Type,
				})
			}
		}

		rec.Properties[idx] = prop
	}

	return rec, warnings, nil
}

// coerce converts raw value text to the declared primitive.
// Returns the coerced value and whether coercion failed (raw kept as-is).
func coerce(raw string, primitive Primitive) (any, bool) {
	switch primitive {
	case PrimitiveInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return raw, true
		}
		return n, false

	case PrimitiveNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, true
		}
		return f, false

	case PrimitiveBoolean:
		// Exact text comparison, not a lenient parse: the hub sends the
		// literal "true" for true and anything else means false.
		return raw == "true", false

	default:
		return raw, false
	}
}
