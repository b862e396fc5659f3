package capability

import "errors"

// Domain-specific errors for capability translation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnsupportedType is returned when a device's vendor type code has
	// no schema in the capability table. The device must be skipped, never
	// fabricated or defaulted.
	ErrUnsupportedType = errors.New("capability: unsupported device type")
)
