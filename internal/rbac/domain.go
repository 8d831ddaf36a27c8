package rbac

import (
	"errors"
	"time"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Role represents a high-level permission grouping. DefaultPath is where a
// principal holding the role lands after login.
type Role struct {
	ID          int64
	Name        string
	DefaultPath string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability such as "work-orders:update".
// Resource and Action are optional classification fields. An inactive
// permission is invisible to authorization even while still attached to
// roles.
type Permission struct {
	ID       int64
	Name     string
	Resource string
	Action   string
	IsActive bool
}

// RolePermission ties a permission to a role. Associations are
// soft-disabled rather than deleted so grants can shrink without losing
// history.
type RolePermission struct {
	RoleID       int64
	PermissionID int64
	IsActive     bool
}

// DenyReason classifies why access was refused.
type DenyReason string

const (
	DenyUnauthenticated   DenyReason = "unauthenticated"
	DenyNoRole            DenyReason = "no role assigned"
	DenyRoleInactive      DenyReason = "role inactive"
	DenyMissingPermission DenyReason = "missing permission"
	DenyRoleMismatch      DenyReason = "role mismatch"
	DenyNotOwner          DenyReason = "not resource owner"
	DenyLookupFailure     DenyReason = "lookup failure"
	DenyRouteUnmatched    DenyReason = "route unmatched"
)

// Decision is the outcome of an authorization evaluation. Missing carries
// the first unmet permission name when Reason is DenyMissingPermission; it
// is meant for internal logs only, never for user-facing responses.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Missing string
}

// Allowed returns an allow decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a deny decision with the given reason.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// DenyMissing returns a deny decision naming the first missing permission.
func DenyMissing(name string) Decision {
	return Decision{Reason: DenyMissingPermission, Missing: name}
}

// String renders the decision for logging.
func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	if d.Reason == DenyMissingPermission && d.Missing != "" {
		return string(d.Reason) + ": " + d.Missing
	}
	return string(d.Reason)
}
