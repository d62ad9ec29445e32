package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default pagination bounds for ticket listings.
const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// Repository defines the interface for ticket persistence.
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context, filter Filter) ([]Ticket, int, error)
	Update(ctx context.Context, id string, update Update) (*Ticket, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed ticket repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ticketSelect joins requester and assignee usernames for display. Either
// user may have been deleted, so both joins are LEFT.
const ticketSelect = `SELECT t.id, t.title, t.description, t.type, t.priority,
	t.status, t.requester_id, t.assignee_id, t.resolved_at,
	t.created_at, t.updated_at, req.username, asn.username
	FROM tickets t
	LEFT JOIN users req ON req.id = t.requester_id
	LEFT JOIN users asn ON asn.id = t.assignee_id`

// Create inserts a new ticket. The ID is generated if empty; new tickets
// default to medium priority and open status.
func (r *SQLiteRepository) Create(ctx context.Context, t *Ticket) error {
	if t.ID == "" {
		t.ID = "tkt-" + uuid.NewString()[:8]
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}

	now := time.Now().UTC().Truncate(time.Second)
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (id, title, description, type, priority, status,
			requester_id, assignee_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Type), string(t.Priority),
		string(t.Status), nullString(t.RequesterID), nullString(t.AssigneeID),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("creating ticket: %w", err)
	}
	return nil
}

// GetByID retrieves a ticket by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Ticket, error) {
	row := r.db.QueryRowContext(ctx, ticketSelect+" WHERE t.id = ?", id)
	return scanTicket(row)
}

// List returns a filtered page of tickets, newest first, plus the total
// matching count. The result slice is never nil.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Ticket, int, error) {
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	var conds []string
	var args []any

	if filter.Keyword != "" {
		conds = append(conds, "(t.title LIKE ? OR t.description LIKE ?)")
		kw := "%" + filter.Keyword + "%"
		args = append(args, kw, kw)
	}
	if filter.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Priority != "" {
		conds = append(conds, "t.priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, string(filter.Status))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM tickets t" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tickets: %w", err)
	}

	query := ticketSelect + where + " ORDER BY t.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	tickets := []Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tickets: %w", err)
	}

	return tickets, total, nil
}

// Update applies a partial update and returns the updated row. Moving a
// ticket into resolved or closed status stamps resolved_at; moving it back
// out clears the stamp. Updating a missing ID is a no-op returning
// (nil, nil).
func (r *SQLiteRepository) Update(ctx context.Context, id string, update Update) (*Ticket, error) {
	var sets []string
	var args []any

	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*update.Type))
	}
	if update.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*update.Priority))
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))

		switch *update.Status {
		case StatusResolved, StatusClosed:
			sets = append(sets, "resolved_at = COALESCE(resolved_at, ?)")
			args = append(args, formatTime(time.Now()))
		default:
			sets = append(sets, "resolved_at = NULL")
		}
	}
	if update.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, nullString(*update.AssigneeID))
	}

	if len(sets) == 0 {
		t, err := r.GetByID(ctx, id)
		if errors.Is(err, ErrTicketNotFound) {
			return nil, nil
		}
		return t, err
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	result, err := r.db.ExecContext(ctx,
		"UPDATE tickets SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating ticket: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete removes a ticket by ID. Deleting a missing ID is a no-op.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}
	return nil
}

// Stats summarises the ticket queue. Open counts tickets not yet resolved
// or closed; urgent counts unfinished urgent-priority tickets.
func (r *SQLiteRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			SUM(CASE WHEN status IN ('open', 'assigned') THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END),
			SUM(CASE WHEN priority = 'urgent'
				AND status NOT IN ('resolved', 'closed') THEN 1 ELSE 0 END)
		FROM tickets`).Scan(
		&stats.Total,
		&nullableInt{&stats.Open},
		&nullableInt{&stats.InProgress},
		&nullableInt{&stats.Urgent},
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating ticket stats: %w", err)
	}
	return stats, nil
}

// nullableInt scans a SUM() result that is NULL when the table is empty.
type nullableInt struct {
	dest *int
}

func (n *nullableInt) Scan(src any) error {
	var v sql.NullInt64
	if err := v.Scan(src); err != nil {
		return err
	}
	*n.dest = int(v.Int64)
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanTicket scans a ticket from any scanner (Row or Rows).
func scanTicket(s scanner) (*Ticket, error) {
	var t Ticket
	var typ, priority, status, createdAt, updatedAt string
	var requesterID, assigneeID, resolvedAt, reqName, asnName sql.NullString

	err := s.Scan(&t.ID, &t.Title, &t.Description, &typ, &priority, &status,
		&requesterID, &assigneeID, &resolvedAt, &createdAt, &updatedAt,
		&reqName, &asnName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}

	t.Type = Type(typ)
	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.RequesterID = requesterID.String
	t.AssigneeID = assigneeID.String
	t.RequesterName = reqName.String
	t.AssigneeName = asnName.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	if resolvedAt.Valid {
		ts, err := time.Parse(time.RFC3339, resolvedAt.String)
		if err == nil {
			t.ResolvedAt = &ts
		}
	}

	return &t, nil
}

// Helper functions.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
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
