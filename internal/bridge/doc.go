// Package bridge connects the Almond hub to the MQTT bus.
//
// On startup the bridge scans the hub's device inventory, publishes a
// retained metadata message and the current property values for every
// supported device, then follows the hub's unsolicited event stream
// and republishes state as it changes. Commands arriving on the bus's
// set topics are forwarded to the hub; the confirmed value comes back
// through the event stream, so state topics always reflect what the
// hub reported, never what was merely requested.
//
// Devices whose type code the capability table does not know are
// logged and skipped. The bridge never fabricates a schema.
//
// # Shutdown
//
// Stop ends the event loop and waits for in-flight command
// acknowledgements. The protocol client and broker connection belong
// to the caller and stay open.
package bridge
