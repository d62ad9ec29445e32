package monitor

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type staticSource struct {
	ids []string
}

func (s *staticSource) ListIDs(_ context.Context) ([]string, error) {
	return s.ids, nil
}

func TestGenerateSample_Bounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := GenerateSample("srv-1")

		if s.ServerID != "srv-1" {
			t.Fatalf("ServerID = %q, want srv-1", s.ServerID)
		}
		if s.CPUUsage < 0 || s.CPUUsage > 100 {
			t.Fatalf("CPUUsage = %v, want 0-100", s.CPUUsage)
		}
		if s.MemoryUsage < 0 || s.MemoryUsage > 100 {
			t.Fatalf("MemoryUsage = %v, want 0-100", s.MemoryUsage)
		}
		if s.NetworkIn < 0 || s.NetworkIn > 1000 {
			t.Fatalf("NetworkIn = %v, want 0-1000", s.NetworkIn)
		}
		if s.Timestamp.IsZero() {
			t.Fatal("Timestamp should be set")
		}
	}
}

func TestSimulator_Run_EmitsToSink(t *testing.T) {
	received := make(chan *Sample, 10)
	sink := func(_ context.Context, s *Sample) {
		received <- s
	}

	sim := NewSimulator(&staticSource{ids: []string{"srv-a"}}, sink,
		5*time.Millisecond, 10, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sim.Run(ctx)

	select {
	case s := <-received:
		if s.ServerID != "srv-a" {
			t.Errorf("ServerID = %q, want srv-a", s.ServerID)
		}
	case <-time.After(time.Second):
		t.Fatal("simulator did not emit a sample in time")
	}
}

func TestSimulator_FallbackServerIDs(t *testing.T) {
	received := make(chan *Sample, 10)
	sink := func(_ context.Context, s *Sample) {
		received <- s
	}

	sim := NewSimulator(&staticSource{}, sink, 5*time.Millisecond, 3, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sim.Run(ctx)

	select {
	case s := <-received:
		if !strings.HasPrefix(s.ServerID, "srv-sim-") {
			t.Errorf("ServerID = %q, want srv-sim-* fallback", s.ServerID)
		}
	case <-time.After(time.Second):
		t.Fatal("simulator did not emit a sample in time")
	}
}

func TestNewSimulator_Defaults(t *testing.T) {
	sim := NewSimulator(&staticSource{}, func(context.Context, *Sample) {}, 0, 0, slog.Default())

	if sim.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s default", sim.interval)
	}
	if sim.fallbackCount != 10 {
		t.Errorf("fallbackCount = %d, want 10 default", sim.fallbackCount)
	}
}
