package app

import (
	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
)

// PublicPrefixes lists paths the edge gate never evaluates. Everything
// else must carry a matching rule in RouteRules or the gate denies it.
var PublicPrefixes = []string{
	"/healthz",
	"/metrics",
	"/auth",
	"/unauthorized",
}

// RouteRules is the route access table enforced at the edge. Rules are
// declared here as one flat literal so the whole permission surface can
// be reviewed in a single place. Match specificity is decided by the
// table, not by declaration order.
var RouteRules = []rbac.RouteRule{
	{Pattern: "/users", RequiredPermissions: []string{shared.PermUsersRead}},
	{Pattern: "/users/:id", RequiredPermissions: []string{shared.PermUsersRead}},
	{Pattern: "/users/:id/profile", RequiredPermissions: nil},
	{Pattern: "/users/:id/role", RequiredPermissions: []string{shared.PermUsersUpdate, shared.PermRolesAssign}},

	{Pattern: "/work-orders", RequiredPermissions: []string{shared.PermWorkOrdersRead}},
	{Pattern: "/work-orders/:id", RequiredPermissions: []string{shared.PermWorkOrdersRead}},
	{Pattern: "/work-orders/:id/status", RequiredPermissions: nil},

	{Pattern: "/incidents", RequiredPermissions: []string{shared.PermIncidentsRead}},
	{Pattern: "/incidents/:id", RequiredPermissions: []string{shared.PermIncidentsRead}},
	{Pattern: "/incidents/:id/resolve", RequiredPermissions: []string{shared.PermIncidentsUpdate}},

	{Pattern: "/admin/*", RequiredPermissions: []string{shared.PermRolesRead}},
}

// NewRouteTable compiles the static table. Ownership endpoints declare
// an empty requirement at the edge so an authenticated user reaches the
// handler guard, which applies the owner-or-permission check.
func NewRouteTable() (*rbac.RouteTable, error) {
	return rbac.NewRouteTable(RouteRules)
}
