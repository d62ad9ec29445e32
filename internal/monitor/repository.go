package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default pagination bounds for sample listings. Monitoring pages are
// larger than inventory pages: charts consume hundreds of points.
const (
	defaultPage     = 1
	defaultPageSize = 100
	maxPageSize     = 1000
)

// statsWindow is the lookback window for aggregate stats.
const statsWindow = time.Hour

// Repository defines the interface for monitoring sample persistence.
type Repository interface {
	Insert(ctx context.Context, sample *Sample) error
	ListByServer(ctx context.Context, filter SampleFilter) ([]Sample, int, error)
	Latest(ctx context.Context, serverID string) (*Sample, error)
	BatchLatest(ctx context.Context, serverIDs []string) (map[string]*Sample, error)
	Stats(ctx context.Context, serverID string) (*Stats, error)
	Trend(ctx context.Context, serverID string, trendRange TrendRange) ([]TrendPoint, error)
	LatestPerServer(ctx context.Context) ([]Sample, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed sample repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sampleColumns = `id, server_id, cpu_usage, memory_usage, disk_usage,
	network_in, network_out, temperature, power_usage, timestamp`

// Insert stores a monitoring sample. A zero timestamp defaults to now.
func (r *SQLiteRepository) Insert(ctx context.Context, sample *Sample) error {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO monitor_data (server_id, cpu_usage, memory_usage, disk_usage,
		 network_in, network_out, temperature, power_usage, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ServerID, sample.CPUUsage, sample.MemoryUsage, sample.DiskUsage,
		sample.NetworkIn, sample.NetworkOut,
		nullFloat(sample.Temperature), nullFloat(sample.PowerUsage),
		formatTime(sample.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting sample: %w", err)
	}

	sample.ID, _ = result.LastInsertId() //nolint:errcheck // always succeeds on SQLite
	return nil
}

// ListByServer returns a page of samples for one server, newest first,
// plus the total count. Optional time bounds narrow the window. The
// result slice is never nil.
func (r *SQLiteRepository) ListByServer(ctx context.Context, filter SampleFilter) ([]Sample, int, error) {
	page, pageSize := NormalisePage(filter.Page, filter.PageSize)

	where := []string{"server_id = ?"}
	args := []any{filter.ServerID}
	if !filter.StartTime.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(filter.StartTime))
	}
	if !filter.EndTime.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(filter.EndTime))
	}

	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM monitor_data"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting samples: %w", err)
	}

	query := "SELECT " + sampleColumns + " FROM monitor_data" + clause +
		" ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, 0, err
		}
		samples = append(samples, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating samples: %w", err)
	}

	return samples, total, nil
}

// Latest returns the most recent sample for a server, or ErrNoSamples.
func (r *SQLiteRepository) Latest(ctx context.Context, serverID string) (*Sample, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sampleColumns+" FROM monitor_data WHERE server_id = ? ORDER BY timestamp DESC LIMIT 1",
		serverID)
	return scanSample(row)
}

// BatchLatest returns the most recent sample for each requested server.
// Servers with no samples are absent from the result map.
func (r *SQLiteRepository) BatchLatest(ctx context.Context, serverIDs []string) (map[string]*Sample, error) {
	result := make(map[string]*Sample, len(serverIDs))
	if len(serverIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(serverIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(serverIDs))
	for i, id := range serverIDs {
		args[i] = id
	}

	// Latest row per server via correlated max-timestamp match.
	query := `SELECT ` + sampleColumns + ` FROM monitor_data m
		WHERE m.server_id IN (` + placeholders + `)
		AND m.id = (SELECT MAX(id) FROM monitor_data WHERE server_id = m.server_id)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying batch latest: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		result[s.ServerID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch latest: %w", err)
	}

	return result, nil
}

// LatestPerServer returns the most recent sample of every server that has
// reported. Used by dashboard top-usage rankings.
func (r *SQLiteRepository) LatestPerServer(ctx context.Context) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sampleColumns+` FROM monitor_data m
		WHERE m.id = (SELECT MAX(id) FROM monitor_data WHERE server_id = m.server_id)`)
	if err != nil {
		return nil, fmt.Errorf("querying latest per server: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating latest per server: %w", err)
	}
	return samples, nil
}

// Stats aggregates samples over the last hour: averaged percent metrics,
// summed network volumes. An empty serverID aggregates the whole fleet.
func (r *SQLiteRepository) Stats(ctx context.Context, serverID string) (*Stats, error) {
	since := formatTime(time.Now().UTC().Add(-statsWindow))

	query := `SELECT
		COALESCE(AVG(cpu_usage), 0), COALESCE(AVG(memory_usage), 0),
		COALESCE(AVG(disk_usage), 0), COALESCE(SUM(network_in), 0),
		COALESCE(SUM(network_out), 0), COUNT(*), COUNT(DISTINCT server_id)
		FROM monitor_data WHERE timestamp >= ?`
	args := []any{since}
	if serverID != "" {
		query += " AND server_id = ?"
		args = append(args, serverID)
	}

	stats := &Stats{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.AvgCPU, &stats.AvgMemory, &stats.AvgDisk,
		&stats.TotalNetIn, &stats.TotalNetOut,
		&stats.SampleCount, &stats.ServersCovered,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sample stats: %w", err)
	}
	return stats, nil
}

// Trend returns bucketed metric averages over the range's window, oldest
// bucket first. An empty serverID covers the whole fleet. The result
// slice is never nil.
func (r *SQLiteRepository) Trend(ctx context.Context, serverID string, trendRange TrendRange) ([]TrendPoint, error) {
	since := formatTime(time.Now().UTC().Add(-trendRange.Window()))

	query := `SELECT strftime(?, timestamp) AS bucket,
		AVG(cpu_usage), AVG(memory_usage), AVG(disk_usage),
		AVG(network_in), AVG(network_out)
		FROM monitor_data WHERE timestamp >= ?`
	args := []any{trendRange.bucketFormat(), since}
	if serverID != "" {
		query += " AND server_id = ?"
		args = append(args, serverID)
	}
	query += " GROUP BY bucket ORDER BY bucket"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trend: %w", err)
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Bucket, &p.AvgCPU, &p.AvgMemory, &p.AvgDisk,
			&p.AvgNetIn, &p.AvgNetOut); err != nil {
			return nil, fmt.Errorf("scanning trend point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trend: %w", err)
	}
	return points, nil
}

// Prune deletes samples older than the cutoff and returns the number
// removed. Keeps the append-only table bounded.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM monitor_data WHERE timestamp < ?", formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("pruning samples: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanSample scans a sample from any scanner (Row or Rows).
func scanSample(s scanner) (*Sample, error) {
	var sm Sample
	var temperature, powerUsage sql.NullFloat64
	var timestamp string

	err := s.Scan(&sm.ID, &sm.ServerID, &sm.CPUUsage, &sm.MemoryUsage,
		&sm.DiskUsage, &sm.NetworkIn, &sm.NetworkOut,
		&temperature, &powerUsage, &timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSamples
		}
		return nil, fmt.Errorf("scanning sample: %w", err)
	}

	if temperature.Valid {
		sm.Temperature = &temperature.Float64
	}
	if powerUsage.Valid {
		sm.PowerUsage = &powerUsage.Float64
	}

	sm.Timestamp, _ = time.Parse(time.RFC3339, timestamp) //nolint:errcheck // format is controlled

	return &sm, nil
}

// Helper functions.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// NormalisePage clamps pagination parameters to the sample-listing
// bounds. Exported so the API layer echoes the same page and pageSize
// the repository actually used.
func NormalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
