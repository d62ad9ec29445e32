package mqtt

import "fmt"

// Topic prefixes for the console's MQTT namespace.
//
// Agents running on managed servers push telemetry to per-server topics:
// idc/telemetry/{server_id}. The console subscribes with a wildcard and
// feeds samples into the same sink as the simulator.
const (
	// TopicPrefix is the base for all console topics.
	TopicPrefix = "idc"

	// TopicPrefixTelemetry is the base for agent-pushed monitoring samples.
	TopicPrefixTelemetry = "idc/telemetry"

	// TopicPrefixSystem is the base for system status topics.
	TopicPrefixSystem = "idc/system"

	// TopicPrefixAlert is the base for published alert events.
	TopicPrefixAlert = "idc/alert"
)

// Topics provides builders for console MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Telemetry returns the topic an agent publishes samples to.
//
// Example: idc/telemetry/srv-4f2a91bc
func (Topics) Telemetry(serverID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixTelemetry, serverID)
}

// AllTelemetry returns a pattern matching every agent's telemetry topic.
//
// Pattern: idc/telemetry/+
func (Topics) AllTelemetry() string {
	return TopicPrefixTelemetry + "/+"
}

// TelemetryServerID extracts the server ID from a telemetry topic.
// Returns "" when the topic does not match the telemetry scheme.
func (Topics) TelemetryServerID(topic string) string {
	prefix := TopicPrefixTelemetry + "/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	serverID := topic[len(prefix):]
	for _, r := range serverID {
		if r == '/' || r == '+' || r == '#' {
			return ""
		}
	}
	return serverID
}

// Alert returns the topic a triggered alert is published on.
//
// Example: idc/alert/alr-9c31ab02
func (Topics) Alert(alertID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixAlert, alertID)
}

// AllAlerts returns a pattern matching all published alerts.
//
// Pattern: idc/alert/+
func (Topics) AllAlerts() string {
	return TopicPrefixAlert + "/+"
}

// SystemStatus returns the console's status topic (LWT target).
//
// Example: idc/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching the entire console namespace.
// Use with caution - this receives ALL traffic.
//
// Pattern: idc/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
