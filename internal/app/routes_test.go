package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vicops/vicops/internal/shared"
)

func TestRouteTableCompiles(t *testing.T) {
	table, err := NewRouteTable()
	require.NoError(t, err)
	require.NotNil(t, table)
}

func TestRouteTableCoversMountedModules(t *testing.T) {
	table, err := NewRouteTable()
	require.NoError(t, err)

	rule := table.Resolve("/users/42")
	require.NotNil(t, rule)
	require.Equal(t, []string{shared.PermUsersRead}, rule.RequiredPermissions)

	rule = table.Resolve("/users/42/role")
	require.NotNil(t, rule)
	require.ElementsMatch(t, []string{shared.PermUsersUpdate, shared.PermRolesAssign}, rule.RequiredPermissions)

	// Ownership endpoints declare an empty requirement at the edge; the
	// handler guard applies the owner-or-permission check.
	rule = table.Resolve("/work-orders/7/status")
	require.NotNil(t, rule)
	require.Empty(t, rule.RequiredPermissions)

	rule = table.Resolve("/admin/roles/3/permissions")
	require.NotNil(t, rule)
	require.Equal(t, []string{shared.PermRolesRead}, rule.RequiredPermissions)

	require.Nil(t, table.Resolve("/not-declared"))
}
