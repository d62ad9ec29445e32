package alerting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// statsWindow bounds the history stats aggregation.
const statsWindow = 24 * time.Hour

// trendDays is how many days the per-day alert trend covers.
const trendDays = 7

// HistoryRepository defines the interface for alert history persistence.
type HistoryRepository interface {
	Create(ctx context.Context, alert *History) error
	GetByID(ctx context.Context, id string) (*History, error)
	List(ctx context.Context, filter HistoryFilter) ([]History, int, error)
	Resolve(ctx context.Context, id string) (*History, error)
	BatchResolve(ctx context.Context, ids []string) (int, error)
	Delete(ctx context.Context, id string) error
	HasUnresolved(ctx context.Context, ruleID, serverID string) (bool, error)
	Stats(ctx context.Context) (*HistoryStats, error)
	Trend(ctx context.Context) ([]TrendPoint, error)
	Recent(ctx context.Context, limit int) ([]History, error)
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite-backed alert history repository.
func NewHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// historySelect joins rule names and server hostnames for display. Rules
// and servers may have been deleted, so both joins are LEFT.
const historySelect = `SELECT h.id, h.rule_id, h.server_id, h.alert_level, h.message,
	h.status, h.created_at, h.resolved_at, r.name, s.hostname
	FROM alert_history h
	LEFT JOIN alert_rules r ON r.id = h.rule_id
	LEFT JOIN servers s ON s.id = h.server_id`

// Create inserts a new alert history entry. The ID is generated if empty
// and new alerts start in triggered status.
func (r *SQLiteHistoryRepository) Create(ctx context.Context, alert *History) error {
	if alert.ID == "" {
		alert.ID = "alr-" + uuid.NewString()[:8]
	}
	if alert.Status == "" {
		alert.Status = StatusTriggered
	}

	now := time.Now().UTC().Truncate(time.Second)
	alert.CreatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_history (id, rule_id, server_id, alert_level, message, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, nullString(alert.RuleID), nullString(alert.ServerID),
		string(alert.Level), alert.Message, string(alert.Status), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("creating alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by ID.
func (r *SQLiteHistoryRepository) GetByID(ctx context.Context, id string) (*History, error) {
	row := r.db.QueryRowContext(ctx, historySelect+" WHERE h.id = ?", id)
	return scanHistory(row)
}

// List returns a filtered page of alerts, newest first, plus the total
// matching count. The result slice is never nil.
func (r *SQLiteHistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]History, int, error) {
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	var conds []string
	var args []any

	if filter.Level != "" {
		conds = append(conds, "h.alert_level = ?")
		args = append(args, string(filter.Level))
	}
	if filter.Status != "" {
		conds = append(conds, "h.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ServerID != "" {
		conds = append(conds, "h.server_id = ?")
		args = append(args, filter.ServerID)
	}
	if !filter.StartTime.IsZero() {
		conds = append(conds, "h.created_at >= ?")
		args = append(args, formatTime(filter.StartTime))
	}
	if !filter.EndTime.IsZero() {
		conds = append(conds, "h.created_at <= ?")
		args = append(args, formatTime(filter.EndTime))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM alert_history h" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting alerts: %w", err)
	}

	query := historySelect + where + " ORDER BY h.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := collectHistory(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// Resolve marks an alert resolved and stamps resolved_at. Resolving an
// already-resolved alert is a no-op that returns the current row.
// Returns ErrAlertNotFound if no row matches.
func (r *SQLiteHistoryRepository) Resolve(ctx context.Context, id string) (*History, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_history SET status = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(StatusResolved), formatTime(time.Now()), id, string(StatusTriggered))
	if err != nil {
		return nil, fmt.Errorf("resolving alert: %w", err)
	}

	return r.GetByID(ctx, id)
}

// BatchResolve resolves multiple alerts sequentially and returns the count
// of rows actually transitioned. Missing or already-resolved IDs are skipped.
func (r *SQLiteHistoryRepository) BatchResolve(ctx context.Context, ids []string) (int, error) {
	resolved := 0
	for _, id := range ids {
		result, err := r.db.ExecContext(ctx,
			`UPDATE alert_history SET status = ?, resolved_at = ?
			 WHERE id = ? AND status = ?`,
			string(StatusResolved), formatTime(time.Now()), id, string(StatusTriggered))
		if err != nil {
			return resolved, fmt.Errorf("resolving alert %s: %w", id, err)
		}
		rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		resolved += int(rows)
	}
	return resolved, nil
}

// Delete removes an alert by ID. Deleting a missing ID is a no-op.
func (r *SQLiteHistoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM alert_history WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	return nil
}

// HasUnresolved reports whether a triggered alert already exists for the
// given rule and server pair. The evaluator uses this to suppress
// duplicate alerts while a condition persists.
func (r *SQLiteHistoryRepository) HasUnresolved(ctx context.Context, ruleID, serverID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM alert_history
		 WHERE rule_id = ? AND server_id = ? AND status = ?)`,
		ruleID, serverID, string(StatusTriggered)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking unresolved alerts: %w", err)
	}
	return exists != 0, nil
}

// Stats aggregates alert counts by level over the last 24 hours, plus the
// all-time unresolved count.
func (r *SQLiteHistoryRepository) Stats(ctx context.Context) (*HistoryStats, error) {
	since := formatTime(time.Now().Add(-statsWindow))

	stats := &HistoryStats{}
	rows, err := r.db.QueryContext(ctx,
		`SELECT alert_level, COUNT(*) FROM alert_history
		 WHERE created_at >= ? GROUP BY alert_level`, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating alert stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scanning alert stats: %w", err)
		}
		stats.Total += count
		switch Level(level) {
		case LevelInfo:
			stats.Info = count
		case LevelWarning:
			stats.Warning = count
		case LevelCritical:
			stats.Critical = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alert_history WHERE status = ?",
		string(StatusTriggered)).Scan(&stats.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("counting unresolved alerts: %w", err)
	}

	return stats, nil
}

// Trend returns per-day alert counts by level over the last seven days,
// oldest day first. Days without alerts are omitted. The result slice is
// never nil.
func (r *SQLiteHistoryRepository) Trend(ctx context.Context) ([]TrendPoint, error) {
	since := formatTime(time.Now().AddDate(0, 0, -trendDays))

	rows, err := r.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m-%d', created_at) AS day,
			SUM(CASE WHEN alert_level = 'info' THEN 1 ELSE 0 END),
			SUM(CASE WHEN alert_level = 'warning' THEN 1 ELSE 0 END),
			SUM(CASE WHEN alert_level = 'critical' THEN 1 ELSE 0 END)
		 FROM alert_history
		 WHERE created_at >= ?
		 GROUP BY day ORDER BY day ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating alert trend: %w", err)
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Info, &p.Warning, &p.Critical); err != nil {
			return nil, fmt.Errorf("scanning alert trend: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert trend: %w", err)
	}

	return points, nil
}

// Recent returns the newest alerts up to limit. Used by the dashboard.
func (r *SQLiteHistoryRepository) Recent(ctx context.Context, limit int) ([]History, error) {
	if limit < 1 {
		limit = 5
	}

	rows, err := r.db.QueryContext(ctx,
		historySelect+" ORDER BY h.created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent alerts: %w", err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

// scanHistory scans an alert history row from any scanner (Row or Rows).
func scanHistory(s scanner) (*History, error) {
	var h History
	var ruleID, serverID, resolvedAt, ruleName, hostname sql.NullString
	var level, status, createdAt string

	err := s.Scan(&h.ID, &ruleID, &serverID, &level, &h.Message,
		&status, &createdAt, &resolvedAt, &ruleName, &hostname)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("scanning alert: %w", err)
	}

	h.RuleID = ruleID.String
	h.ServerID = serverID.String
	h.Level = Level(level)
	h.Status = HistoryStatus(status)
	h.RuleName = ruleName.String
	h.Hostname = hostname.String
	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	if resolvedAt.Valid {
		t, err := time.Parse(time.RFC3339, resolvedAt.String)
		if err == nil {
			h.ResolvedAt = &t
		}
	}

	return &h, nil
}

func collectHistory(rows *sql.Rows) ([]History, error) {
	alerts := []History{}
	for rows.Next() {
		alert, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
