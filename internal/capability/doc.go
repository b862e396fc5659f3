// Package capability translates the hub's proprietary per-device-type
// attribute records into a generic, typed capability schema.
//
// The hub describes devices with numeric type codes and indexed property
// values in its own wire format. Consumers of Almond Link (the MQTT
// bridge, schema-aware clients) never see that format: they see normalized
// Records built from the static capability table in this package.
//
// # Design
//
//   - table.go holds the immutable type-code → Schema mapping, one entry
//     per documented vendor device type.
//   - Translate produces a fresh deep copy of the matched schema per
//     device and fills in coerced current values. The table itself is
//     never mutated after initialization.
//   - Unknown type codes are reported via ErrUnsupportedType and skipped
//     by callers; translation never invents a schema.
//
// # Value Coercion
//
// Raw values arrive as text. Each property declares a primitive type
// (boolean, integer, number, string) that drives coercion; parse failures
// keep the raw text and surface a Warning so no data is silently dropped.
// Boolean coercion compares the raw text exactly against "true"; this
// looks surprising but matches the hub's wire behaviour and must not be
// "fixed" into a lenient parse.
package capability
