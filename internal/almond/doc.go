// Package almond speaks the Securifi Almond hub's websocket protocol.
//
// The hub exposes a single JSON-over-websocket endpoint at
// ws://<host>:7681/<username>/<password>. Requests and replies share
// one multiplexed stream; the hub correlates them through a
// client-chosen decimal identifier in the MobileInternalIndex field.
// Frames without that field are unsolicited events (device state
// pushes, sensor triggers).
//
// # Architecture
//
// Conn owns the websocket: lifecycle state machine, frame reads and
// writes, graceful close with a bounded grace period. Each successful
// Open yields a fresh inbound frame channel, closed when the
// connection ends.
//
// Client is the correlation engine on top: it stamps identifiers onto
// outbound commands, keeps the pending set, resolves replies exactly
// once per request, and routes unsolicited frames to a bounded event
// channel. It also carries the protocol facade: ListDevices with
// capability translation, SetDeviceValue.
//
// # Usage
//
//	conn := almond.NewConn(cfg, logger)
//	frames, err := conn.Open(ctx)
//	if err != nil { ... }
//
//	client := almond.NewClient(conn, logger, almond.ClientOptions{})
//	client.Start(frames)
//
//	result, err := client.ListDevices(ctx)
//
// # Error Handling
//
// Terminal request outcomes are sentinel errors on the Response
// (ErrCancelled, ErrRequestTimeout, ErrConnectionClosed), checked with
// errors.Is. Malformed frames and replies with no pending request are
// logged and dropped; they never fail a request.
package almond
