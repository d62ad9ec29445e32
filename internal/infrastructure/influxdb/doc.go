// Package influxdb provides the optional time-series mirror for
// monitoring telemetry.
//
// It wraps the official influxdb-client-go v2 library with patterns for
// connection management, batched sample writing, and health monitoring.
//
// # Purpose
//
// SQLite remains the source of truth for monitoring samples; this
// package mirrors them to InfluxDB for long-range retention and
// external dashboarding:
//   - Per-server resource samples (cpu, memory, disk, network)
//   - Alert trigger events
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "idc",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteServerSample("srv-4f2a91bc",
//	    map[string]interface{}{"cpu_usage": 42.5}, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
