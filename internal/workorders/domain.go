package workorders

import "time"

// Work order lifecycle states.
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// WorkOrder is a maintenance or inspection job scheduled at a center.
type WorkOrder struct {
	ID           int64
	CenterID     int64
	VehiclePlate string
	Description  string
	Status       string
	AssignedTo   int64
	ReportedBy   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
