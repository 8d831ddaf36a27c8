package shared

// Work order permissions.
const (
	PermWorkOrdersRead   = "work-orders:read"
	PermWorkOrdersCreate = "work-orders:create"
	PermWorkOrdersUpdate = "work-orders:update"
	PermWorkOrdersDelete = "work-orders:delete"
)

// WorkOrderScopes lists all permissions related to work orders.
func WorkOrderScopes() []string {
	return []string{
		PermWorkOrdersRead,
		PermWorkOrdersCreate,
		PermWorkOrdersUpdate,
		PermWorkOrdersDelete,
	}
}
