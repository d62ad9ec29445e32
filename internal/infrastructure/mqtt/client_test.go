package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/grayrack/idc-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker-backed tests require a running Mosquitto at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "idc-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the local broker or skips the test when no
// broker is running.
func connectOrSkip(t *testing.T, cfg config.MQTTConfig) *Client {
	t.Helper()

	client, err := Connect(cfg)
	if err != nil {
		t.Skipf("MQTT broker not available, skipping: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999 // Nothing listens here

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for invalid broker")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := connectOrSkip(t, testConfig())
	client.Close()

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Publish Tests
// =============================================================================

func TestPublish(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	topic := Topics{}.Telemetry("srv-test0001")
	payload := []byte(`{"cpu_usage":41.0}`)

	if err := client.Publish(topic, payload, 1, false); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestPublishRetained(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	topic := Topics{}.SystemStatus()
	payload := []byte(`{"status":"online"}`)

	if err := client.PublishRetained(topic, payload); err != nil {
		t.Errorf("PublishRetained() error = %v", err)
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	err := client.Publish("idc/test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := connectOrSkip(t, testConfig())
	client.Close()

	err := client.Publish("idc/test/topic", []byte("test"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishNilPayload(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	if err := client.Publish("idc/test/topic", nil, 1, false); err != nil {
		t.Errorf("Publish() with nil payload error = %v", err)
	}
}

// =============================================================================
// Subscribe Tests
// =============================================================================

func TestSubscribe(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	topic := "idc/test/subscribe"
	handler := func(topic string, payload []byte) error {
		return nil
	}

	if err := client.Subscribe(topic, 1, handler); err != nil {
		t.Errorf("Subscribe() error = %v", err)
	}

	if !client.HasSubscription(topic) {
		t.Error("HasSubscription() = false, want true")
	}

	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	err := client.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	err := client.Subscribe("idc/test/topic", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	topic := "idc/test/unsubscribe"
	handler := func(topic string, payload []byte) error {
		return nil
	}

	if err := client.Subscribe(topic, 1, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}

	if client.HasSubscription(topic) {
		t.Error("HasSubscription() = true after Unsubscribe(), want false")
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestMultipleSubscriptions(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	topics := []string{
		"idc/test/topic1",
		"idc/test/topic2",
		"idc/test/topic3",
	}

	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if client.SubscriptionCount() != 3 {
		t.Errorf("SubscriptionCount() = %d, want 3", client.SubscriptionCount())
	}
}

// =============================================================================
// Publish-Subscribe Roundtrip Tests
// =============================================================================

func TestTelemetryRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "idc-test-agent"
	pubClient := connectOrSkip(t, cfg)

	cfg.Broker.ClientID = "idc-test-console"
	subClient := connectOrSkip(t, cfg)

	// The console subscribes the way main does: one wildcard over all
	// agent topics, extracting the server ID per message.
	expectedPayload := `{"cpu_usage":55.2,"memory_usage":43.1}`
	type received struct {
		serverID string
		payload  string
	}
	got := make(chan received, 1)

	err := subClient.Subscribe(Topics{}.AllTelemetry(), 1, func(topic string, payload []byte) error {
		select {
		case got <- received{Topics{}.TelemetryServerID(topic), string(payload)}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Give the subscription time to register
	time.Sleep(100 * time.Millisecond)

	topic := Topics{}.Telemetry("srv-rt000001")
	if err := pubClient.PublishString(topic, expectedPayload, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-got:
		if msg.serverID != "srv-rt000001" {
			t.Errorf("server ID = %q, want srv-rt000001", msg.serverID)
		}
		if msg.payload != expectedPayload {
			t.Errorf("payload = %q, want %q", msg.payload, expectedPayload)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestWildcardSubscription(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "idc-test-wild-pub"
	pubClient := connectOrSkip(t, cfg)

	cfg.Broker.ClientID = "idc-test-wild-sub"
	subClient := connectOrSkip(t, cfg)

	var receivedMu sync.Mutex
	receivedTopics := make(map[string]bool)

	err := subClient.Subscribe(Topics{}.AllTelemetry(), 1, func(topic string, payload []byte) error {
		receivedMu.Lock()
		receivedTopics[topic] = true
		receivedMu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	topics := []string{
		Topics{}.Telemetry("srv-wild0001"),
		Topics{}.Telemetry("srv-wild0002"),
		Topics{}.Telemetry("srv-wild0003"),
	}

	for _, topic := range topics {
		if err := pubClient.PublishString(topic, `{"cpu_usage":1.0}`, 1, false); err != nil {
			t.Fatalf("Publish(%s) error = %v", topic, err)
		}
	}

	time.Sleep(500 * time.Millisecond)

	receivedMu.Lock()
	defer receivedMu.Unlock()

	for _, topic := range topics {
		if !receivedTopics[topic] {
			t.Errorf("Did not receive message for topic %s", topic)
		}
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "Telemetry",
			builder: func() string {
				return Topics{}.Telemetry("srv-4f2a91bc")
			},
			expected: "idc/telemetry/srv-4f2a91bc",
		},
		{
			name: "AllTelemetry",
			builder: func() string {
				return Topics{}.AllTelemetry()
			},
			expected: "idc/telemetry/+",
		},
		{
			name: "Alert",
			builder: func() string {
				return Topics{}.Alert("alr-9c31ab02")
			},
			expected: "idc/alert/alr-9c31ab02",
		},
		{
			name: "AllAlerts",
			builder: func() string {
				return Topics{}.AllAlerts()
			},
			expected: "idc/alert/+",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "idc/system/status",
		},
		{
			name: "AllTopics",
			builder: func() string {
				return Topics{}.AllTopics()
			},
			expected: "idc/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestTelemetryServerID(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"idc/telemetry/srv-4f2a91bc", "srv-4f2a91bc"},
		{"idc/telemetry/", ""},
		{"idc/telemetry", ""},
		{"idc/alert/alr-1", ""},
		{"idc/telemetry/srv-1/extra", ""},
		{"idc/telemetry/+", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := (Topics{}).TelemetryServerID(tt.topic); got != tt.want {
			t.Errorf("TelemetryServerID(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
