package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default pagination bounds for inventory listings.
const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// ServerRepository defines the interface for server persistence.
type ServerRepository interface {
	Create(ctx context.Context, server *Server) error
	GetByID(ctx context.Context, id string) (*Server, error)
	List(ctx context.Context, filter ServerFilter) ([]Server, int, error)
	ListIDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id string, update ServerUpdate) (*Server, error)
	Delete(ctx context.Context, id string) error
	BatchDelete(ctx context.Context, ids []string) (int, error)
	Stats(ctx context.Context) (*ServerStats, error)
}

// SQLiteServerRepository implements ServerRepository using SQLite.
type SQLiteServerRepository struct {
	db *sql.DB
}

// NewServerRepository creates a new SQLite-backed server repository.
func NewServerRepository(db *sql.DB) *SQLiteServerRepository {
	return &SQLiteServerRepository{db: db}
}

const serverColumns = `id, hostname, ip_address, group_id, status, os,
	cpu_cores, memory_gb, disk_gb, location, description, created_at, updated_at`

// Create inserts a new server. The ID is generated if empty and the
// status defaults to offline.
func (r *SQLiteServerRepository) Create(ctx context.Context, server *Server) error {
	if server.ID == "" {
		server.ID = "srv-" + uuid.NewString()[:8]
	}
	if server.Status == "" {
		server.Status = StatusOffline
	}

	now := time.Now().UTC().Truncate(time.Second)
	server.CreatedAt = now
	server.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO servers (id, hostname, ip_address, group_id, status, os,
		 cpu_cores, memory_gb, disk_gb, location, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		server.ID, server.Hostname, server.IPAddress, nullString(server.GroupID),
		string(server.Status), nullString(server.OS),
		nullInt(server.CPUCores), nullInt(server.MemoryGB), nullInt(server.DiskGB),
		nullString(server.Location), nullString(server.Description),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return nil
}

// GetByID retrieves a server by ID.
func (r *SQLiteServerRepository) GetByID(ctx context.Context, id string) (*Server, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+serverColumns+" FROM servers WHERE id = ?", id)
	return scanServer(row)
}

// List returns a page of servers plus the total count matching the filter.
// Keyword matches hostname or IP address substrings. The result slice is
// never nil.
func (r *SQLiteServerRepository) List(ctx context.Context, filter ServerFilter) ([]Server, int, error) {
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	var where []string
	var args []any
	if filter.Keyword != "" {
		where = append(where, "(hostname LIKE ? OR ip_address LIKE ?)")
		kw := "%" + filter.Keyword + "%"
		args = append(args, kw, kw)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM servers"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting servers: %w", err)
	}

	query := "SELECT " + serverColumns + " FROM servers" + clause +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing servers: %w", err)
	}
	defer rows.Close()

	servers := []Server{}
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, 0, err
		}
		servers = append(servers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating servers: %w", err)
	}

	return servers, total, nil
}

// ListIDs returns the IDs of all servers. Used by the telemetry simulator
// to pick targets.
func (r *SQLiteServerRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM servers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing server ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning server id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating server ids: %w", err)
	}
	return ids, nil
}

// Update applies a partial update and returns the updated row. Updating a
// missing ID is a no-op returning (nil, nil): the console treats it as
// success with empty data.
func (r *SQLiteServerRepository) Update(ctx context.Context, id string, update ServerUpdate) (*Server, error) {
	var sets []string
	var args []any

	if update.Hostname != nil {
		sets = append(sets, "hostname = ?")
		args = append(args, *update.Hostname)
	}
	if update.IPAddress != nil {
		sets = append(sets, "ip_address = ?")
		args = append(args, *update.IPAddress)
	}
	if update.GroupID != nil {
		sets = append(sets, "group_id = ?")
		args = append(args, nullString(*update.GroupID))
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.OS != nil {
		sets = append(sets, "os = ?")
		args = append(args, nullString(*update.OS))
	}
	if update.CPUCores != nil {
		sets = append(sets, "cpu_cores = ?")
		args = append(args, *update.CPUCores)
	}
	if update.MemoryGB != nil {
		sets = append(sets, "memory_gb = ?")
		args = append(args, *update.MemoryGB)
	}
	if update.DiskGB != nil {
		sets = append(sets, "disk_gb = ?")
		args = append(args, *update.DiskGB)
	}
	if update.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, nullString(*update.Location))
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*update.Description))
	}

	if len(sets) == 0 {
		server, err := r.GetByID(ctx, id)
		if errors.Is(err, ErrServerNotFound) {
			return nil, nil
		}
		return server, err
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()), id)

	result, err := r.db.ExecContext(ctx,
		"UPDATE servers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating server: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete removes a server by ID. Deleting a missing ID is a no-op:
// delete is idempotent at the API surface.
func (r *SQLiteServerRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM servers WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting server: %w", err)
	}
	return nil
}

// BatchDelete removes multiple servers sequentially and returns the number
// of rows actually deleted. Failures abort the remainder; earlier deletes
// are not rolled back.
func (r *SQLiteServerRepository) BatchDelete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		result, err := r.db.ExecContext(ctx, "DELETE FROM servers WHERE id = ?", id)
		if err != nil {
			return deleted, fmt.Errorf("deleting server %s: %w", id, err)
		}
		rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		deleted += int(rows)
	}
	return deleted, nil
}

// Stats returns fleet totals by status.
func (r *SQLiteServerRepository) Stats(ctx context.Context) (*ServerStats, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM servers GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("querying server stats: %w", err)
	}
	defer rows.Close()

	stats := &ServerStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning server stats: %w", err)
		}
		stats.Total += count
		switch ServerStatus(status) {
		case StatusOnline:
			stats.Online = count
		case StatusOffline:
			stats.Offline = count
		case StatusMaintenance:
			stats.Maintenance = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating server stats: %w", err)
	}
	return stats, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanServer scans a server from any scanner (Row or Rows).
func scanServer(s scanner) (*Server, error) {
	var srv Server
	var groupID, os, location, description sql.NullString
	var cpuCores, memoryGB, diskGB sql.NullInt64
	var status, createdAt, updatedAt string

	err := s.Scan(&srv.ID, &srv.Hostname, &srv.IPAddress, &groupID, &status,
		&os, &cpuCores, &memoryGB, &diskGB, &location, &description,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("scanning server: %w", err)
	}

	srv.Status = ServerStatus(status)
	srv.GroupID = groupID.String
	srv.OS = os.String
	srv.Location = location.String
	srv.Description = description.String
	srv.CPUCores = int(cpuCores.Int64)
	srv.MemoryGB = int(memoryGB.Int64)
	srv.DiskGB = int(diskGB.Int64)

	srv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	srv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &srv, nil
}

// Helper functions.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// normalisePage clamps pagination parameters to sane bounds.
func normalisePage(page, pageSize int) (int, int) {
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

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
