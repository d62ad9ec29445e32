// Package monitor stores and aggregates server telemetry.
//
// Samples arrive from two sources: the built-in simulator (development
// and demo installs) and MQTT agent ingestion (production). Both feed
// the same Sink, which persists to SQLite, broadcasts over WebSocket,
// mirrors to InfluxDB, and drives alert evaluation.
//
// The monitor_data table is append-only with a numeric rowid key;
// Prune keeps it bounded.
package monitor
