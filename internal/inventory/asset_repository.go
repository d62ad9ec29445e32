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

// AssetRepository defines the interface for asset persistence.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context, filter AssetFilter) ([]Asset, int, error)
	Update(ctx context.Context, id string, update AssetUpdate) (*Asset, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*AssetStats, error)
}

// SQLiteAssetRepository implements AssetRepository using SQLite.
type SQLiteAssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new SQLite-backed asset repository.
func NewAssetRepository(db *sql.DB) *SQLiteAssetRepository {
	return &SQLiteAssetRepository{db: db}
}

const assetColumns = `id, name, type, status, value, description, location,
	server_id, created_at, updated_at`

// Create inserts a new asset. The ID is generated if empty and the status
// defaults to available.
func (r *SQLiteAssetRepository) Create(ctx context.Context, asset *Asset) error {
	if asset.ID == "" {
		asset.ID = "ast-" + uuid.NewString()[:8]
	}
	if asset.Status == "" {
		asset.Status = AssetAvailable
	}

	now := time.Now().UTC().Truncate(time.Second)
	asset.CreatedAt = now
	asset.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, name, type, status, value, description,
		 location, server_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.Name, string(asset.Type), string(asset.Status),
		nullString(asset.Value), nullString(asset.Description),
		nullString(asset.Location), nullString(asset.ServerID),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("creating asset: %w", err)
	}
	return nil
}

// GetByID retrieves an asset by ID.
func (r *SQLiteAssetRepository) GetByID(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	return scanAsset(row)
}

// List returns a page of assets plus the total count matching the filter.
// Keyword matches name or value substrings. The result slice is never nil.
func (r *SQLiteAssetRepository) List(ctx context.Context, filter AssetFilter) ([]Asset, int, error) {
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	var where []string
	var args []any
	if filter.Keyword != "" {
		where = append(where, "(name LIKE ? OR value LIKE ?)")
		kw := "%" + filter.Keyword + "%"
		args = append(args, kw, kw)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting assets: %w", err)
	}

	query := "SELECT " + assetColumns + " FROM assets" + clause +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	assets := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating assets: %w", err)
	}

	return assets, total, nil
}

// Update applies a partial update and returns the updated row. Updating a
// missing ID is a no-op returning (nil, nil).
func (r *SQLiteAssetRepository) Update(ctx context.Context, id string, update AssetUpdate) (*Asset, error) {
	var sets []string
	var args []any

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*update.Type))
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Value != nil {
		sets = append(sets, "value = ?")
		args = append(args, nullString(*update.Value))
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*update.Description))
	}
	if update.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, nullString(*update.Location))
	}
	if update.ServerID != nil {
		sets = append(sets, "server_id = ?")
		args = append(args, nullString(*update.ServerID))
	}

	if len(sets) == 0 {
		asset, err := r.GetByID(ctx, id)
		if errors.Is(err, ErrAssetNotFound) {
			return nil, nil
		}
		return asset, err
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()), id)

	result, err := r.db.ExecContext(ctx,
		"UPDATE assets SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating asset: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete removes an asset by ID. Deleting a missing ID is a no-op.
func (r *SQLiteAssetRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return nil
}

// Stats returns utilisation totals for racks, IP blocks and bandwidth.
// Retired assets are excluded from the totals.
func (r *SQLiteAssetRepository) Stats(ctx context.Context) (*AssetStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, status, COUNT(*)
		FROM assets
		WHERE status != 'retired'
		GROUP BY type, status`)
	if err != nil {
		return nil, fmt.Errorf("querying asset stats: %w", err)
	}
	defer rows.Close()

	stats := &AssetStats{}
	for rows.Next() {
		var typ, status string
		var count int
		if err := rows.Scan(&typ, &status, &count); err != nil {
			return nil, fmt.Errorf("scanning asset stats: %w", err)
		}

		inUse := AssetStatus(status) == AssetInUse
		switch AssetType(typ) {
		case AssetRack:
			stats.RacksTotal += count
			if inUse {
				stats.RacksInUse += count
			}
		case AssetIP:
			stats.IPsTotal += count
			if inUse {
				stats.IPsInUse += count
			}
		case AssetBandwidth:
			stats.BandwidthTotal += count
			if inUse {
				stats.BandwidthInUse += count
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating asset stats: %w", err)
	}
	return stats, nil
}

// scanAsset scans an asset from any scanner (Row or Rows).
func scanAsset(s scanner) (*Asset, error) {
	var a Asset
	var value, description, location, serverID sql.NullString
	var typ, status, createdAt, updatedAt string

	err := s.Scan(&a.ID, &a.Name, &typ, &status, &value, &description,
		&location, &serverID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("scanning asset: %w", err)
	}

	a.Type = AssetType(typ)
	a.Status = AssetStatus(status)
	a.Value = value.String
	a.Description = description.String
	a.Location = location.String
	a.ServerID = serverID.String

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &a, nil
}
