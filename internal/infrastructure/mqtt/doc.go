// Package mqtt provides MQTT client connectivity for agent telemetry
// ingestion.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Monitoring agents on managed servers push resource samples to
// per-server topics (idc/telemetry/{server_id}). The console subscribes
// with a single wildcard and feeds every received sample into the same
// telemetry sink as the built-in simulator.
//
//	Server agents → MQTT Broker → Console (subscriber)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all agent telemetry
//	err = client.Subscribe(mqtt.Topics{}.AllTelemetry(), 1,
//	    func(topic string, payload []byte) error {
//	        serverID := mqtt.Topics{}.TelemetryServerID(topic)
//	        return ingest(serverID, payload)
//	    })
package mqtt
