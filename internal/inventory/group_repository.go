package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GroupRepository defines the interface for server group persistence.
type GroupRepository interface {
	Create(ctx context.Context, group *ServerGroup) error
	GetByID(ctx context.Context, id string) (*ServerGroup, error)
	List(ctx context.Context) ([]ServerGroup, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteGroupRepository implements GroupRepository using SQLite.
type SQLiteGroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new SQLite-backed group repository.
func NewGroupRepository(db *sql.DB) *SQLiteGroupRepository {
	return &SQLiteGroupRepository{db: db}
}

// Create inserts a new server group. The ID is generated if empty.
func (r *SQLiteGroupRepository) Create(ctx context.Context, group *ServerGroup) error {
	if group.ID == "" {
		group.ID = "grp-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	group.CreatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO server_groups (id, name, description, created_at)
		 VALUES (?, ?, ?, ?)`,
		group.ID, group.Name, nullString(group.Description), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrGroupNameExists
		}
		return fmt.Errorf("creating server group: %w", err)
	}
	return nil
}

// GetByID retrieves a server group by ID, including its server count.
func (r *SQLiteGroupRepository) GetByID(ctx context.Context, id string) (*ServerGroup, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT g.id, g.name, g.description, g.created_at,
		       (SELECT COUNT(*) FROM servers s WHERE s.group_id = g.id)
		FROM server_groups g WHERE g.id = ?`, id)
	return scanGroup(row)
}

// List returns all server groups with their server counts, ordered by name.
// The result slice is never nil.
func (r *SQLiteGroupRepository) List(ctx context.Context) ([]ServerGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.description, g.created_at,
		       (SELECT COUNT(*) FROM servers s WHERE s.group_id = g.id)
		FROM server_groups g ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("listing server groups: %w", err)
	}
	defer rows.Close()

	groups := []ServerGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating server groups: %w", err)
	}
	return groups, nil
}

// Delete removes a server group by ID. Member servers are detached, not
// deleted (the schema sets their group_id to NULL). Deleting a missing ID
// is a no-op.
func (r *SQLiteGroupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM server_groups WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting server group: %w", err)
	}
	return nil
}

// scanGroup scans a server group from any scanner (Row or Rows).
func scanGroup(s scanner) (*ServerGroup, error) {
	var g ServerGroup
	var description sql.NullString
	var createdAt string

	err := s.Scan(&g.ID, &g.Name, &description, &createdAt, &g.ServerCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("scanning server group: %w", err)
	}

	g.Description = description.String
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &g, nil
}
