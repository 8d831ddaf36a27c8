package auth

import "time"

// User represents an authenticated user account. RoleID is zero when no
// role has been assigned yet; such accounts can log in but every
// authorization check denies them.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	RoleID       int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
