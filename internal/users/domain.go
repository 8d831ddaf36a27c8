package users

import "time"

// User represents a user account as shown in administrative listings.
type User struct {
	ID        int64
	Email     string
	Name      string
	RoleID    int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
