package shared

// Incident permissions.
const (
	PermIncidentsRead   = "incidents:read"
	PermIncidentsCreate = "incidents:create"
	PermIncidentsUpdate = "incidents:update"
)

// IncidentScopes lists all permissions related to incidents.
func IncidentScopes() []string {
	return []string{
		PermIncidentsRead,
		PermIncidentsCreate,
		PermIncidentsUpdate,
	}
}
