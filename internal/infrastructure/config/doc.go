// Package config provides configuration management for Almond Link.
//
// Configuration is loaded from a YAML file with environment variable
// overrides, in the order: defaults → file → environment.
//
// # Sections
//
//   - almond: hub address and credentials (required before any I/O)
//   - mqtt: broker connection for the egress bridge
//   - bridge: discovery timeout and event buffering
//   - logging: level, format, output
//
// # Environment Overrides
//
// Variables follow the pattern ALMONDLINK_SECTION_KEY, for example
// ALMONDLINK_ALMOND_PASSWORD or ALMONDLINK_MQTT_HOST. Secrets should be
// supplied via environment rather than committed to the config file.
//
// # Validation
//
// Load fails fast when the hub host, username, or password is missing:
// the hub embeds credentials in the websocket URL, so an incomplete set
// can never produce a working connection.
package config
