package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleViewer has read-only access to dashboards, inventory and alerts.
	RoleViewer Role = "viewer"

	// RoleOperator can acknowledge alerts, manage tickets and edit inventory.
	RoleOperator Role = "operator"

	// RoleAdmin has full control including user management.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles assignable to a user account.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if the role is a valid role for a user account.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Status represents a user account lifecycle state.
type Status string

const (
	// StatusActive accounts may log in normally.
	StatusActive Status = "active"

	// StatusInactive accounts are disabled by an administrator.
	StatusInactive Status = "inactive"

	// StatusLocked accounts are blocked pending review.
	StatusLocked Status = "locked"
)

// ValidStatuses is the set of valid account states.
var ValidStatuses = []Status{StatusActive, StatusInactive, StatusLocked}

// IsValidStatus returns true if the status is a recognised account state.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// User represents an operator console account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"` // never serialised
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserUpdate carries a partial update to a user account.
// Nil fields are left unchanged.
type UserUpdate struct {
	Email  *string `json:"email,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// UserFilter narrows a paginated user listing.
type UserFilter struct {
	// Keyword matches username or email substrings.
	Keyword string

	Page     int
	PageSize int
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUsernameExists     = errors.New("username already exists")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenInvalid       = errors.New("invalid token")
)
