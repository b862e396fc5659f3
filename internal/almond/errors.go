package almond

import "errors"

// Domain-specific errors for hub communication.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the websocket could not be
	// opened (refusal, DNS failure, or protocol-level rejection).
	ErrConnectionFailed = errors.New("almond: connection failed")

	// ErrAlreadyConnected is returned when Open is called while a
	// connection is already open or opening.
	ErrAlreadyConnected = errors.New("almond: connection already open")

	// ErrNotConnected is returned when an operation requires an open
	// connection and there is none.
	ErrNotConnected = errors.New("almond: not connected")

	// ErrCloseTimeout is returned when a graceful close was not
	// acknowledged within the grace period. The transport is still
	// forcibly discarded and the connection ends Closed.
	ErrCloseTimeout = errors.New("almond: close not acknowledged within grace period")

	// ErrCancelled is set on a request's response when the request was
	// removed from the pending set by an explicit cancellation.
	ErrCancelled = errors.New("almond: request cancelled")

	// ErrConnectionClosed is set on a request's response when the
	// connection closed while the request was still pending.
	ErrConnectionClosed = errors.New("almond: connection closed with request pending")

	// ErrRequestTimeout is set on a request's response when the optional
	// per-request timeout elapsed before a reply arrived.
	ErrRequestTimeout = errors.New("almond: request timed out")
)
