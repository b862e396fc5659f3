// Package mqtt provides MQTT client connectivity for the almondlink bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for link availability
//   - Connection health monitoring
//
// # Architecture
//
// almondlink publishes the hub's devices and state onto an MQTT bus and
// accepts value commands back from it. The broker decouples consumers
// from the hub's websocket protocol.
//
//	Almond hub ↔ almondlink ↔ MQTT Broker ↔ consumers
//
// # Topic Scheme
//
//	almondlink/link/status                    link online/offline (retained)
//	almondlink/device/{id}/meta               device metadata (retained)
//	almondlink/device/{id}/state/{property}   live property state (retained)
//	almondlink/device/{id}/set/{index}        inbound value commands
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceSets(), 1,
//	    func(topic string, payload []byte) error {
//	        id, index, err := mqtt.ParseDeviceSet(topic)
//	        ...
//	    })
//
//	client.PublishRetained(mqtt.Topics{}.DeviceState("7", "on"), []byte("true"))
package mqtt
