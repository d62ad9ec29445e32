package monitor

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the monitor_data schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "monitor-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE monitor_data (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id    TEXT NOT NULL,
			cpu_usage    REAL NOT NULL,
			memory_usage REAL NOT NULL,
			disk_usage   REAL NOT NULL,
			network_in   REAL NOT NULL,
			network_out  REAL NOT NULL,
			temperature  REAL,
			power_usage  REAL,
			timestamp    TEXT NOT NULL
		) STRICT;
		CREATE INDEX idx_monitor_server_ts ON monitor_data(server_id, timestamp);
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying monitor migration: %v", err)
	}

	return db
}

// insertSample stores a sample with the given server, CPU reading and age.
func insertSample(t *testing.T, repo *SQLiteRepository, serverID string, cpu float64, age time.Duration) *Sample {
	t.Helper()

	sample := &Sample{
		ServerID:    serverID,
		CPUUsage:    cpu,
		MemoryUsage: 50,
		DiskUsage:   40,
		NetworkIn:   100,
		NetworkOut:  80,
		Timestamp:   time.Now().UTC().Add(-age),
	}
	if err := repo.Insert(context.Background(), sample); err != nil {
		t.Fatalf("inserting sample: %v", err)
	}
	return sample
}

func TestRepository_InsertAndLatest(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	insertSample(t, repo, "srv-1", 10, 2*time.Minute)
	latest := insertSample(t, repo, "srv-1", 90, 0)

	got, err := repo.Latest(ctx, "srv-1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.CPUUsage != 90 {
		t.Errorf("Latest().CPUUsage = %v, want 90 (id %d vs %d)", got.CPUUsage, got.ID, latest.ID)
	}

	_, err = repo.Latest(ctx, "srv-none")
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("Latest(unknown) error = %v, want ErrNoSamples", err)
	}
}

func TestRepository_Insert_OptionalMetrics(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	temp := 42.5
	sample := &Sample{
		ServerID:    "srv-1",
		CPUUsage:    10,
		MemoryUsage: 20,
		DiskUsage:   30,
		NetworkIn:   1,
		NetworkOut:  2,
		Temperature: &temp,
	}
	if err := repo.Insert(ctx, sample); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if sample.Timestamp.IsZero() {
		t.Error("Insert() should default a zero timestamp")
	}

	got, err := repo.Latest(ctx, "srv-1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.Temperature == nil || *got.Temperature != 42.5 {
		t.Errorf("Temperature = %v, want 42.5", got.Temperature)
	}
	if got.PowerUsage != nil {
		t.Errorf("PowerUsage = %v, want nil", got.PowerUsage)
	}
}

func TestRepository_ListByServer_TimeBounds(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	insertSample(t, repo, "srv-1", 10, 3*time.Hour)
	insertSample(t, repo, "srv-1", 20, time.Hour)
	insertSample(t, repo, "srv-1", 30, time.Minute)
	insertSample(t, repo, "srv-2", 99, time.Minute)

	samples, total, err := repo.ListByServer(ctx, SampleFilter{
		ServerID:  "srv-1",
		StartTime: time.Now().UTC().Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ListByServer() error = %v", err)
	}
	if total != 2 || len(samples) != 2 {
		t.Fatalf("total=%d len=%d, want 2/2", total, len(samples))
	}
	// Newest first
	if samples[0].CPUUsage != 30 {
		t.Errorf("samples[0].CPUUsage = %v, want 30", samples[0].CPUUsage)
	}
}

func TestRepository_ListByServer_Pagination(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		insertSample(t, repo, "srv-1", float64(i), time.Duration(i)*time.Minute)
	}

	samples, total, err := repo.ListByServer(ctx, SampleFilter{
		ServerID: "srv-1",
		Page:     2,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("ListByServer() error = %v", err)
	}
	if total != 25 {
		t.Errorf("total = %d, want 25", total)
	}
	if len(samples) != 10 {
		t.Errorf("len(samples) = %d, want 10", len(samples))
	}
}

func TestRepository_BatchLatest(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	insertSample(t, repo, "srv-1", 10, time.Minute)
	insertSample(t, repo, "srv-1", 50, 0)
	insertSample(t, repo, "srv-2", 70, 0)

	result, err := repo.BatchLatest(ctx, []string{"srv-1", "srv-2", "srv-3"})
	if err != nil {
		t.Fatalf("BatchLatest() error = %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("len(result) = %d, want 2", len(result))
	}
	if result["srv-1"].CPUUsage != 50 {
		t.Errorf("srv-1 latest CPU = %v, want 50", result["srv-1"].CPUUsage)
	}
	if result["srv-2"].CPUUsage != 70 {
		t.Errorf("srv-2 latest CPU = %v, want 70", result["srv-2"].CPUUsage)
	}
	if _, ok := result["srv-3"]; ok {
		t.Error("srv-3 has no samples and should be absent")
	}

	empty, err := repo.BatchLatest(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("BatchLatest(nil) = %v, %v; want empty map", empty, err)
	}
}

func TestRepository_Stats(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	// Inside the 1h window
	insertSample(t, repo, "srv-1", 40, time.Minute)
	insertSample(t, repo, "srv-2", 60, time.Minute)
	// Outside the window, must be excluded
	insertSample(t, repo, "srv-1", 100, 2*time.Hour)

	stats, err := repo.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if stats.SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", stats.SampleCount)
	}
	if stats.ServersCovered != 2 {
		t.Errorf("ServersCovered = %d, want 2", stats.ServersCovered)
	}
	if stats.AvgCPU != 50 {
		t.Errorf("AvgCPU = %v, want 50", stats.AvgCPU)
	}
	if stats.TotalNetIn != 200 {
		t.Errorf("TotalNetIn = %v, want 200", stats.TotalNetIn)
	}

	// Scoped to one server
	stats, err = repo.Stats(ctx, "srv-1")
	if err != nil {
		t.Fatalf("Stats(srv-1) error = %v", err)
	}
	if stats.SampleCount != 1 || stats.AvgCPU != 40 {
		t.Errorf("Stats(srv-1) = %+v, want 1 sample at CPU 40", stats)
	}
}

func TestRepository_Stats_Empty(t *testing.T) {
	repo := NewRepository(testDB(t))

	stats, err := repo.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.SampleCount != 0 || stats.AvgCPU != 0 {
		t.Errorf("Stats() on empty table = %+v, want zeros", stats)
	}
}

func TestRepository_Trend(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	insertSample(t, repo, "srv-1", 10, 10*time.Minute)
	insertSample(t, repo, "srv-1", 30, 10*time.Minute)
	insertSample(t, repo, "srv-1", 50, 25*time.Hour) // outside 24h window

	points, err := repo.Trend(ctx, "", Range24h)
	if err != nil {
		t.Fatalf("Trend() error = %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1", len(points))
	}
	if points[0].AvgCPU != 20 {
		t.Errorf("AvgCPU = %v, want 20", points[0].AvgCPU)
	}

	// Empty result is a slice, not nil
	points, err = repo.Trend(ctx, "srv-unknown", Range1h)
	if err != nil {
		t.Fatalf("Trend(unknown) error = %v", err)
	}
	if points == nil {
		t.Error("Trend() should return an empty slice, not nil")
	}
}

func TestRepository_LatestPerServer(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	insertSample(t, repo, "srv-1", 10, time.Minute)
	insertSample(t, repo, "srv-1", 80, 0)
	insertSample(t, repo, "srv-2", 30, 0)

	samples, err := repo.LatestPerServer(ctx)
	if err != nil {
		t.Fatalf("LatestPerServer() error = %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}

	byServer := map[string]float64{}
	for _, s := range samples {
		byServer[s.ServerID] = s.CPUUsage
	}
	if byServer["srv-1"] != 80 || byServer["srv-2"] != 30 {
		t.Errorf("latest per server = %v, want srv-1:80 srv-2:30", byServer)
	}
}

func TestRepository_Prune(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	insertSample(t, repo, "srv-1", 10, 48*time.Hour)
	insertSample(t, repo, "srv-1", 20, time.Minute)

	removed, err := repo.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() = %d, want 1", removed)
	}

	_, total, _ := repo.ListByServer(ctx, SampleFilter{ServerID: "srv-1"})
	if total != 1 {
		t.Errorf("remaining samples = %d, want 1", total)
	}
}

func TestTrendRange_Window(t *testing.T) {
	tests := []struct {
		r    TrendRange
		want time.Duration
	}{
		{Range1h, time.Hour},
		{Range24h, 24 * time.Hour},
		{Range7d, 7 * 24 * time.Hour},
		{Range30d, 30 * 24 * time.Hour},
		{TrendRange("bogus"), 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := tt.r.Window(); got != tt.want {
			t.Errorf("Window(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
