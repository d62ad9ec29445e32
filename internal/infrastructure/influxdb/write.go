package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// serverMetricsMeasurement is the measurement name for mirrored
// monitoring samples.
const serverMetricsMeasurement = "server_metrics"

// WriteServerSample mirrors one monitoring sample to InfluxDB.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Optional fields (temperature, power) are only written when present.
//
// Parameters:
//   - serverID: The server the sample belongs to (tag, low cardinality)
//   - fields: Numeric sample values keyed by metric name
//   - timestamp: When the sample was taken
//
// Example:
//
//	client.WriteServerSample("srv-4f2a91bc", map[string]interface{}{
//	    "cpu_usage":    42.5,
//	    "memory_usage": 61.0,
//	}, sample.Timestamp)
func (c *Client) WriteServerSample(serverID string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		serverMetricsMeasurement,
		map[string]string{
			"server_id": serverID,
		},
		fields,
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteAlertEvent records a triggered alert as an event point.
//
// Alert events carry the severity level as a tag so dashboards can
// filter by criticality without a field scan.
func (c *Client) WriteAlertEvent(serverID, ruleID, level string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"alert_events",
		map[string]string{
			"server_id": serverID,
			"rule_id":   ruleID,
			"level":     level,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
