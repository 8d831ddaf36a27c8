package shared

// AdministratorRole is the reserved role with implicit universal access.
// A principal carrying an active role with this name bypasses every
// permission and route check.
const AdministratorRole = "ADMINISTRADOR"

// Core platform permissions.
const (
	PermUsersRead   = "users:read"
	PermUsersCreate = "users:create"
	PermUsersUpdate = "users:update"
	PermUsersDelete = "users:delete"

	PermRolesRead   = "roles:read"
	PermRolesUpdate = "roles:update"
	PermRolesAssign = "roles:assign"

	PermPermissionsRead   = "permissions:read"
	PermPermissionsUpdate = "permissions:update"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersRead,
		PermUsersCreate,
		PermUsersUpdate,
		PermUsersDelete,
		PermRolesRead,
		PermRolesUpdate,
		PermRolesAssign,
		PermPermissionsRead,
		PermPermissionsUpdate,
	}
}
