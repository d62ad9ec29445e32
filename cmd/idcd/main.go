// IDC Core - Data Center Administration Console
//
// This is the main entry point for the IDC Core backend. It serves the
// REST API and WebSocket channel used by the admin console, ingests
// server telemetry (synthetic or via MQTT agents), evaluates alert
// rules, and optionally mirrors samples to InfluxDB for long retention.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/grayrack/idc-core/migrations"

	"github.com/grayrack/idc-core/internal/alerting"
	"github.com/grayrack/idc-core/internal/api"
	"github.com/grayrack/idc-core/internal/auth"
	"github.com/grayrack/idc-core/internal/infrastructure/config"
	"github.com/grayrack/idc-core/internal/infrastructure/database"
	"github.com/grayrack/idc-core/internal/infrastructure/influxdb"
	"github.com/grayrack/idc-core/internal/infrastructure/logging"
	"github.com/grayrack/idc-core/internal/infrastructure/mqtt"
	"github.com/grayrack/idc-core/internal/inventory"
	"github.com/grayrack/idc-core/internal/monitor"
	"github.com/grayrack/idc-core/internal/ticket"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting IDC Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	users := auth.NewUserRepository(db.DB)
	servers := inventory.NewServerRepository(db.DB)
	groups := inventory.NewGroupRepository(db.DB)
	assets := inventory.NewAssetRepository(db.DB)
	monitors := monitor.NewRepository(db.DB)
	rules := alerting.NewRuleRepository(db.DB)
	alerts := alerting.NewHistoryRepository(db.DB)
	tickets := ticket.NewRepository(db.DB)

	// Seed the initial admin account on first boot
	if _, seedErr := auth.SeedAdmin(ctx, users, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Token service with revocation blacklist
	blacklist := auth.NewBlacklist()
	defer blacklist.Close()
	tokens := auth.NewTokenService(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AccessTokenDuration(),
		cfg.Security.JWT.RefreshTokenDuration(),
		blacklist,
	)

	// Connect to InfluxDB (optional telemetry mirror)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker (optional agent telemetry + alert fan-out)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// WebSocket hub shared by the API server and the telemetry pipeline
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Alert evaluator broadcasts fired alerts through the hub
	evaluator := alerting.NewEvaluator(rules, alerts, hub, log.Logger)

	// Telemetry sink: every sample, simulated or ingested, flows through here.
	// The nil check matters: assigning a nil *mqtt.Client to the interface
	// directly would make it non-nil.
	var alertBus alertPublisher
	if mqttClient != nil {
		alertBus = mqttClient
	}
	sink := buildSink(monitors, hub, evaluator, influxClient, alertBus, byte(cfg.MQTT.QoS), log)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg,
		Logger:      log,
		DB:          db.DB,
		Users:       users,
		Tokens:      tokens,
		Servers:     servers,
		Groups:      groups,
		Assets:      assets,
		Monitors:    monitors,
		Rules:       rules,
		Alerts:      alerts,
		Tickets:     tickets,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Telemetry simulator (development/demo installs)
	if cfg.Telemetry.SimulatorEnabled {
		sim := monitor.NewSimulator(
			servers,
			sink,
			time.Duration(cfg.Telemetry.IntervalSeconds)*time.Second,
			cfg.Telemetry.FallbackServerCount,
			log.Logger,
		)
		go sim.Run(ctx)
	} else {
		log.Info("telemetry simulator disabled")
	}

	// MQTT agent ingestion (optional)
	if mqttClient != nil {
		if err := subscribeTelemetry(mqttClient, cfg, sink, log); err != nil {
			return fmt.Errorf("starting MQTT ingestion: %w", err)
		}
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, apiServer, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Blacklist janitor
	// 5. Database

	log.Info("IDC Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IDC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IDC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// alertPublisher pushes triggered alerts onto the message bus so
// external consumers (pagers, aggregators) see them without polling.
type alertPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// buildSink constructs the telemetry fan-out: persist, broadcast to
// WebSocket clients, mirror to InfluxDB, run alert evaluation, and
// publish triggered alerts on idc/alert/{id}. influxClient and alertBus
// may be nil when the respective integration is disabled.
func buildSink(
	monitors monitor.Repository,
	hub *api.Hub,
	evaluator *alerting.Evaluator,
	influxClient *influxdb.Client,
	alertBus alertPublisher,
	qos byte,
	log *logging.Logger,
) monitor.Sink {
	return func(ctx context.Context, sample *monitor.Sample) {
		if err := monitors.Insert(ctx, sample); err != nil {
			log.Error("storing sample", "server_id", sample.ServerID, "error", err)
			return
		}

		hub.Broadcast(api.WSTypeMonitor, sample)

		if influxClient != nil {
			influxClient.WriteServerSample(sample.ServerID, sampleFields(sample), sample.Timestamp)
		}

		fired, err := evaluator.Evaluate(ctx, sample.ServerID, sampleMetrics(sample))
		if err != nil {
			log.Error("evaluating alert rules", "server_id", sample.ServerID, "error", err)
			return
		}
		for i := range fired {
			alert := &fired[i]
			if influxClient != nil {
				influxClient.WriteAlertEvent(alert.ServerID, alert.RuleID, string(alert.Level), alert.Value)
			}
			if alertBus != nil {
				publishAlert(alertBus, qos, alert, log)
			}
		}
	}
}

// publishAlert sends one triggered alert to its idc/alert/{id} topic.
// Publish failures are logged, never propagated: the alert is already
// persisted and broadcast.
func publishAlert(bus alertPublisher, qos byte, alert *alerting.History, log *logging.Logger) {
	payload, err := json.Marshal(alert)
	if err != nil {
		log.Error("encoding alert for publish", "alert_id", alert.ID, "error", err)
		return
	}
	if err := bus.Publish(mqtt.Topics{}.Alert(alert.ID), payload, qos, false); err != nil {
		log.Warn("publishing alert", "alert_id", alert.ID, "error", err)
	}
}

// sampleFields flattens a sample into InfluxDB field values.
func sampleFields(s *monitor.Sample) map[string]interface{} {
	fields := map[string]interface{}{
		"cpu_usage":    s.CPUUsage,
		"memory_usage": s.MemoryUsage,
		"disk_usage":   s.DiskUsage,
		"network_in":   s.NetworkIn,
		"network_out":  s.NetworkOut,
	}
	if s.Temperature != nil {
		fields["temperature"] = *s.Temperature
	}
	if s.PowerUsage != nil {
		fields["power_usage"] = *s.PowerUsage
	}
	return fields
}

// sampleMetrics maps a sample onto the metric names alert rules watch.
func sampleMetrics(s *monitor.Sample) map[alerting.Metric]float64 {
	values := map[alerting.Metric]float64{
		alerting.MetricCPU:        s.CPUUsage,
		alerting.MetricMemory:     s.MemoryUsage,
		alerting.MetricDisk:       s.DiskUsage,
		alerting.MetricNetworkIn:  s.NetworkIn,
		alerting.MetricNetworkOut: s.NetworkOut,
	}
	if s.Temperature != nil {
		values[alerting.MetricTemperature] = *s.Temperature
	}
	return values
}

// telemetryPayload is the JSON body agents publish on idc/telemetry/{server_id}.
type telemetryPayload struct {
	CPUUsage    float64  `json:"cpu_usage"`
	MemoryUsage float64  `json:"memory_usage"`
	DiskUsage   float64  `json:"disk_usage"`
	NetworkIn   float64  `json:"network_in"`
	NetworkOut  float64  `json:"network_out"`
	Temperature *float64 `json:"temperature,omitempty"`
	PowerUsage  *float64 `json:"power_usage,omitempty"`
}

// connectMQTT establishes the broker connection and wires logging
// callbacks. Subscription happens separately once the sink exists.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, err
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	return client, nil
}

// subscribeTelemetry subscribes to agent telemetry, feeding every
// parsed sample into the sink.
func subscribeTelemetry(client *mqtt.Client, cfg *config.Config, sink monitor.Sink, log *logging.Logger) error {
	handler := func(topic string, payload []byte) error {
		serverID := mqtt.Topics{}.TelemetryServerID(topic)
		if serverID == "" {
			return fmt.Errorf("unrecognised telemetry topic %q", topic)
		}

		var p telemetryPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("parsing telemetry from %s: %w", serverID, err)
		}

		sink(context.Background(), &monitor.Sample{
			ServerID:    serverID,
			CPUUsage:    p.CPUUsage,
			MemoryUsage: p.MemoryUsage,
			DiskUsage:   p.DiskUsage,
			NetworkIn:   p.NetworkIn,
			NetworkOut:  p.NetworkOut,
			Temperature: p.Temperature,
			PowerUsage:  p.PowerUsage,
			Timestamp:   time.Now().UTC(),
		})
		return nil
	}

	if err := client.Subscribe(mqtt.Topics{}.AllTelemetry(), byte(cfg.MQTT.QoS), handler); err != nil {
		return fmt.Errorf("subscribing to telemetry: %w", err)
	}
	log.Info("MQTT telemetry ingestion active", "topic", mqtt.Topics{}.AllTelemetry())

	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, apiServer *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
