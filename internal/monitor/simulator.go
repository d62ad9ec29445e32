package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Sink receives every generated or ingested sample. Implementations fan
// the sample out to storage, broadcast, and alert evaluation.
type Sink func(ctx context.Context, sample *Sample)

// ServerSource supplies the server IDs eligible for synthetic telemetry.
type ServerSource interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Simulator emits synthetic monitoring samples on a fixed interval.
//
// Each tick it picks one random server from the source and generates a
// plausible sample. When the inventory is empty it synthesises
// placeholder IDs so fresh installs still see live dashboards.
type Simulator struct {
	source        ServerSource
	sink          Sink
	interval      time.Duration
	fallbackCount int
	logger        *slog.Logger
}

// NewSimulator creates a simulator. fallbackCount controls how many
// synthetic server IDs are used when the inventory is empty.
func NewSimulator(source ServerSource, sink Sink, interval time.Duration, fallbackCount int, logger *slog.Logger) *Simulator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if fallbackCount <= 0 {
		fallbackCount = 10
	}
	return &Simulator{
		source:        source,
		sink:          sink,
		interval:      interval,
		fallbackCount: fallbackCount,
		logger:        logger,
	}
}

// Run generates samples until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("telemetry simulator started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("telemetry simulator stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick emits one synthetic sample.
func (s *Simulator) tick(ctx context.Context) {
	serverID := s.pickServer(ctx)
	sample := GenerateSample(serverID)
	s.sink(ctx, sample)
}

// pickServer selects a random server ID from the inventory, falling back
// to synthetic IDs when none exist.
func (s *Simulator) pickServer(ctx context.Context) string {
	ids, err := s.source.ListIDs(ctx)
	if err != nil {
		s.logger.Warn("listing servers for simulation", "error", err)
		ids = nil
	}
	if len(ids) == 0 {
		return fmt.Sprintf("srv-sim-%d", rand.Intn(s.fallbackCount)+1)
	}
	return ids[rand.Intn(len(ids))]
}

// GenerateSample produces a plausible synthetic sample for a server.
func GenerateSample(serverID string) *Sample {
	return &Sample{
		ServerID:    serverID,
		CPUUsage:    round1(rand.Float64() * 100),
		MemoryUsage: round1(rand.Float64() * 100),
		DiskUsage:   round1(rand.Float64() * 100),
		NetworkIn:   round1(rand.Float64() * 1000),
		NetworkOut:  round1(rand.Float64() * 1000),
		Timestamp:   time.Now().UTC(),
	}
}

// round1 rounds to one decimal place, matching what agents report.
func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
