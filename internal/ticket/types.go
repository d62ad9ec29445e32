package ticket

import (
	"errors"
	"time"
)

// Type categorises what a ticket is about.
type Type string

const (
	TypeIncident    Type = "incident"
	TypeRequest     Type = "request"
	TypeMaintenance Type = "maintenance"
)

// IsValidType returns true for a recognised ticket type.
func IsValidType(t Type) bool {
	switch t {
	case TypeIncident, TypeRequest, TypeMaintenance:
		return true
	}
	return false
}

// Priority orders tickets by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValidPriority returns true for a recognised priority.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status tracks a ticket through its lifecycle.
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// IsValidStatus returns true for a recognised ticket status.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Ticket is a work item raised against the data center.
type Ticket struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        Type       `json:"type"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	RequesterID string     `json:"requester_id,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Joined display fields, populated by listings.
	RequesterName string `json:"requester_name,omitempty"`
	AssigneeName  string `json:"assignee_name,omitempty"`
}

// Update carries optional fields for partial ticket updates. Nil fields
// are left unchanged.
type Update struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        *Type     `json:"type,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	AssigneeID  *string   `json:"assignee_id,omitempty"`
}

// Filter narrows ticket listings.
type Filter struct {
	Keyword  string
	Type     Type
	Priority Priority
	Status   Status
	Page     int
	PageSize int
}

// Stats summarises the ticket queue for the dashboard.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Urgent     int `json:"urgent"`
}

// ErrTicketNotFound is returned when a ticket lookup matches no row.
var ErrTicketNotFound = errors.New("ticket not found")
