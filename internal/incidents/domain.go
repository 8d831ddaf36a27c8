package incidents

import "time"

// Incident severities.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Incident statuses.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
)

// Incident records an operational problem reported at a center.
type Incident struct {
	ID          int64
	CenterID    int64
	Title       string
	Description string
	Severity    string
	Status      string
	ReportedBy  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}
