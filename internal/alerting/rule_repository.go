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

// Default pagination bounds for alerting listings.
const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// RuleRepository defines the interface for alert rule persistence.
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context, page, pageSize int) ([]Rule, int, error)
	ListEnabled(ctx context.Context) ([]Rule, error)
	Update(ctx context.Context, id string, update RuleUpdate) (*Rule, error)
	Toggle(ctx context.Context, id string) (*Rule, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteRuleRepository implements RuleRepository using SQLite.
type SQLiteRuleRepository struct {
	db *sql.DB
}

// NewRuleRepository creates a new SQLite-backed rule repository.
func NewRuleRepository(db *sql.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

const ruleColumns = "id, name, metric, threshold, operator, duration, enabled, created_at"

// Create inserts a new alert rule. The ID is generated if empty and new
// rules default to enabled.
func (r *SQLiteRuleRepository) Create(ctx context.Context, rule *Rule) error {
	if rule.ID == "" {
		rule.ID = "rule-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	rule.CreatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_rules (id, name, metric, threshold, operator, duration, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, string(rule.Metric), rule.Threshold,
		string(rule.Operator), rule.Duration, boolToInt(rule.Enabled),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("creating alert rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule by ID.
func (r *SQLiteRuleRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE id = ?", id)
	return scanRule(row)
}

// List returns a page of rules, newest first, plus the total count.
// The result slice is never nil.
func (r *SQLiteRuleRepository) List(ctx context.Context, page, pageSize int) ([]Rule, int, error) {
	page, pageSize = normalisePage(page, pageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_rules").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting alert rules: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules ORDER BY created_at DESC LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("listing alert rules: %w", err)
	}
	defer rows.Close()

	rules := []Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating alert rules: %w", err)
	}

	return rules, total, nil
}

// ListEnabled returns all enabled rules. Used by the evaluator on every
// ingested sample.
func (r *SQLiteRuleRepository) ListEnabled(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE enabled = 1")
	if err != nil {
		return nil, fmt.Errorf("listing enabled rules: %w", err)
	}
	defer rows.Close()

	rules := []Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enabled rules: %w", err)
	}
	return rules, nil
}

// Update applies a partial update and returns the updated row. Updating a
// missing ID is a no-op returning (nil, nil).
func (r *SQLiteRuleRepository) Update(ctx context.Context, id string, update RuleUpdate) (*Rule, error) {
	var sets []string
	var args []any

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Metric != nil {
		sets = append(sets, "metric = ?")
		args = append(args, string(*update.Metric))
	}
	if update.Threshold != nil {
		sets = append(sets, "threshold = ?")
		args = append(args, *update.Threshold)
	}
	if update.Operator != nil {
		sets = append(sets, "operator = ?")
		args = append(args, string(*update.Operator))
	}
	if update.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *update.Duration)
	}
	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, boolToInt(*update.Enabled))
	}

	if len(sets) == 0 {
		rule, err := r.GetByID(ctx, id)
		if errors.Is(err, ErrRuleNotFound) {
			return nil, nil
		}
		return rule, err
	}

	args = append(args, id)
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating alert rule: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Toggle flips a rule's enabled flag and returns the updated row.
// Returns ErrRuleNotFound if no row matches.
func (r *SQLiteRuleRepository) Toggle(ctx context.Context, id string) (*Rule, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET enabled = 1 - enabled WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("toggling alert rule: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return nil, ErrRuleNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a rule by ID. Deleting a missing ID is a no-op.
func (r *SQLiteRuleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting alert rule: %w", err)
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanRule scans a rule from any scanner (Row or Rows).
func scanRule(s scanner) (*Rule, error) {
	var rule Rule
	var metric, operator, createdAt string
	var enabled int

	err := s.Scan(&rule.ID, &rule.Name, &metric, &rule.Threshold,
		&operator, &rule.Duration, &enabled, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("scanning alert rule: %w", err)
	}

	rule.Metric = Metric(metric)
	rule.Operator = Operator(operator)
	rule.Enabled = enabled != 0
	rule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &rule, nil
}

// Helper functions.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
