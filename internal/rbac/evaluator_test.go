package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
)

type fakeStore struct {
	roles   map[int64]rbac.Role
	perms   map[int64][]string
	failure error
}

func (f *fakeStore) GetRole(ctx context.Context, roleID int64) (rbac.Role, error) {
	if f.failure != nil {
		return rbac.Role{}, f.failure
	}
	role, ok := f.roles[roleID]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	return role, nil
}

func (f *fakeStore) EffectivePermissions(ctx context.Context, roleID int64) ([]string, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	return f.perms[roleID], nil
}

func newTechnicianStore() *fakeStore {
	return &fakeStore{
		roles: map[int64]rbac.Role{
			1: {ID: 1, Name: "ADMINISTRADOR", DefaultPath: "/admin", IsActive: true},
			2: {ID: 2, Name: "TECHNICIAN", DefaultPath: "/work-orders", IsActive: true},
			3: {ID: 3, Name: "AUDITOR", DefaultPath: "/incidents", IsActive: false},
		},
		perms: map[int64][]string{
			2: {shared.PermWorkOrdersRead, shared.PermWorkOrdersUpdate},
		},
	}
}

func TestEvaluateAllowsWhenAllPermissionsPresent(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	technician := shared.Principal{ID: 10, RoleID: 2}

	dec := e.Evaluate(context.Background(), technician, []string{shared.PermWorkOrdersUpdate})
	require.True(t, dec.Allowed)

	dec = e.Evaluate(context.Background(), technician, []string{shared.PermWorkOrdersRead, shared.PermWorkOrdersUpdate})
	require.True(t, dec.Allowed)
}

func TestEvaluateDeniesMissingPermission(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	technician := shared.Principal{ID: 10, RoleID: 2}

	dec := e.Evaluate(context.Background(), technician, []string{shared.PermUsersDelete})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyMissingPermission, dec.Reason)
	require.Equal(t, shared.PermUsersDelete, dec.Missing)
}

func TestEvaluateAllOfSemantics(t *testing.T) {
	// Holding one of two required permissions is not enough.
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	technician := shared.Principal{ID: 10, RoleID: 2}

	dec := e.Evaluate(context.Background(), technician, []string{shared.PermWorkOrdersRead, shared.PermUsersDelete})
	require.False(t, dec.Allowed)
	require.Equal(t, shared.PermUsersDelete, dec.Missing)
}

func TestEvaluateEmptyRequirementAllowsRoleHolder(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	technician := shared.Principal{ID: 10, RoleID: 2}

	dec := e.Evaluate(context.Background(), technician, nil)
	require.True(t, dec.Allowed)
}

func TestEvaluateDeniesWithoutRoleEvenForEmptyRequirement(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	noRole := shared.Principal{ID: 10}

	dec := e.Evaluate(context.Background(), noRole, nil)
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyNoRole, dec.Reason)
}

func TestEvaluateDeniesUnauthenticated(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)

	dec := e.Evaluate(context.Background(), shared.Principal{}, []string{shared.PermUsersRead})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyUnauthenticated, dec.Reason)
}

func TestEvaluateDeniesInactiveRole(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	auditor := shared.Principal{ID: 10, RoleID: 3}

	dec := e.Evaluate(context.Background(), auditor, nil)
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyRoleInactive, dec.Reason)
}

func TestEvaluateDeniesUnknownRole(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	orphan := shared.Principal{ID: 10, RoleID: 99}

	dec := e.Evaluate(context.Background(), orphan, nil)
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyNoRole, dec.Reason)
}

func TestEvaluateAdministratorBypass(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)
	admin := shared.Principal{ID: 1, RoleID: 1}

	// The administrator role has no explicit grants, yet any requirement
	// passes.
	dec := e.Evaluate(context.Background(), admin, []string{shared.PermUsersDelete, shared.PermIncidentsCreate})
	require.True(t, dec.Allowed)
}

func TestEvaluateLookupFailureDenies(t *testing.T) {
	store := newTechnicianStore()
	store.failure = errors.New("connection refused")
	e := rbac.NewEvaluator(store, nil)

	dec := e.Evaluate(context.Background(), shared.Principal{ID: 10, RoleID: 2}, []string{shared.PermWorkOrdersRead})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyLookupFailure, dec.Reason)
}

func TestEvaluateReflectsGrantChangesImmediately(t *testing.T) {
	// Soft-disabling a grant must be visible on the very next evaluation;
	// the evaluator itself holds no state between calls.
	store := newTechnicianStore()
	e := rbac.NewEvaluator(store, nil)
	technician := shared.Principal{ID: 10, RoleID: 2}

	dec := e.Evaluate(context.Background(), technician, []string{shared.PermWorkOrdersUpdate})
	require.True(t, dec.Allowed)

	store.perms[2] = []string{shared.PermWorkOrdersRead}
	dec = e.Evaluate(context.Background(), technician, []string{shared.PermWorkOrdersUpdate})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyMissingPermission, dec.Reason)
}

func TestIsAdministrator(t *testing.T) {
	e := rbac.NewEvaluator(newTechnicianStore(), nil)

	require.True(t, e.IsAdministrator(context.Background(), shared.Principal{ID: 1, RoleID: 1}))
	require.False(t, e.IsAdministrator(context.Background(), shared.Principal{ID: 10, RoleID: 2}))
	require.False(t, e.IsAdministrator(context.Background(), shared.Principal{}))
}

// grantStore derives the effective set from permission and association
// rows the way the repository join does: a name counts only while both
// the permission and its role association are active.
type grantStore struct {
	roles       map[int64]rbac.Role
	permissions map[int64]rbac.Permission
	grants      []rbac.RolePermission
}

func (s *grantStore) GetRole(ctx context.Context, roleID int64) (rbac.Role, error) {
	role, ok := s.roles[roleID]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	return role, nil
}

func (s *grantStore) EffectivePermissions(ctx context.Context, roleID int64) ([]string, error) {
	var out []string
	for _, g := range s.grants {
		if g.RoleID != roleID || !g.IsActive {
			continue
		}
		perm, ok := s.permissions[g.PermissionID]
		if !ok || !perm.IsActive {
			continue
		}
		out = append(out, perm.Name)
	}
	return out, nil
}

func newSupervisorGrantStore() *grantStore {
	return &grantStore{
		roles: map[int64]rbac.Role{
			5: {ID: 5, Name: "SUPERVISOR", DefaultPath: "/work-orders", IsActive: true},
		},
		permissions: map[int64]rbac.Permission{
			1: {ID: 1, Name: shared.PermIncidentsCreate, Resource: "incidents", Action: "create", IsActive: true},
			2: {ID: 2, Name: shared.PermIncidentsRead, Resource: "incidents", Action: "read", IsActive: true},
		},
		grants: []rbac.RolePermission{
			{RoleID: 5, PermissionID: 1, IsActive: true},
			{RoleID: 5, PermissionID: 2, IsActive: true},
		},
	}
}

func TestEvaluateDeniesWhenAssociationSoftDisabled(t *testing.T) {
	store := newSupervisorGrantStore()
	e := rbac.NewEvaluator(store, nil)
	supervisor := shared.Principal{ID: 20, RoleID: 5}

	dec := e.Evaluate(context.Background(), supervisor, []string{shared.PermIncidentsCreate})
	require.True(t, dec.Allowed)

	// Revoking a grant disables the association row, never deletes it.
	store.grants[0].IsActive = false

	dec = e.Evaluate(context.Background(), supervisor, []string{shared.PermIncidentsCreate})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyMissingPermission, dec.Reason)
	require.Equal(t, shared.PermIncidentsCreate, dec.Missing)

	dec = e.Evaluate(context.Background(), supervisor, []string{shared.PermIncidentsRead})
	require.True(t, dec.Allowed, "other grants of the role must be unaffected")
}

func TestEvaluateDeniesWhenPermissionDisabledGlobally(t *testing.T) {
	store := newSupervisorGrantStore()
	e := rbac.NewEvaluator(store, nil)
	supervisor := shared.Principal{ID: 20, RoleID: 5}

	// The association row stays active; only the permission itself is
	// switched off.
	perm := store.permissions[1]
	perm.IsActive = false
	store.permissions[1] = perm

	dec := e.Evaluate(context.Background(), supervisor, []string{shared.PermIncidentsCreate})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyMissingPermission, dec.Reason)
	require.Equal(t, shared.PermIncidentsCreate, dec.Missing)

	dec = e.Evaluate(context.Background(), supervisor, []string{shared.PermIncidentsRead})
	require.True(t, dec.Allowed)
}
