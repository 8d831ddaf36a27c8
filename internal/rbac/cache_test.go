package rbac_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
)

type countingStore struct {
	*fakeStore
	roleCalls int
	permCalls int
}

func (c *countingStore) GetRole(ctx context.Context, roleID int64) (rbac.Role, error) {
	c.roleCalls++
	return c.fakeStore.GetRole(ctx, roleID)
}

func (c *countingStore) EffectivePermissions(ctx context.Context, roleID int64) ([]string, error) {
	c.permCalls++
	return c.fakeStore.EffectivePermissions(ctx, roleID)
}

func newCache(t *testing.T) (*rbac.PermissionCache, *countingStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &countingStore{fakeStore: newTechnicianStore()}
	return rbac.NewPermissionCache(store, client, time.Minute, nil), store
}

func TestPermissionCacheServesFromCache(t *testing.T) {
	cache, store := newCache(t)
	ctx := context.Background()

	first, err := cache.EffectivePermissions(ctx, 2)
	require.NoError(t, err)
	second, err := cache.EffectivePermissions(ctx, 2)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, store.permCalls)

	_, err = cache.GetRole(ctx, 2)
	require.NoError(t, err)
	_, err = cache.GetRole(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, store.roleCalls)
}

func TestPermissionCacheInvalidateForcesRefresh(t *testing.T) {
	cache, store := newCache(t)
	ctx := context.Background()

	perms, err := cache.EffectivePermissions(ctx, 2)
	require.NoError(t, err)
	require.Contains(t, perms, shared.PermWorkOrdersUpdate)

	// Mutation path: grant set shrinks, cache is invalidated.
	store.perms[2] = []string{shared.PermWorkOrdersRead}
	require.NoError(t, cache.Invalidate(ctx, 2))

	perms, err = cache.EffectivePermissions(ctx, 2)
	require.NoError(t, err)
	require.NotContains(t, perms, shared.PermWorkOrdersUpdate)
	require.Equal(t, 2, store.permCalls)
}

func TestPermissionCacheInvalidateAll(t *testing.T) {
	cache, store := newCache(t)
	ctx := context.Background()

	_, err := cache.EffectivePermissions(ctx, 2)
	require.NoError(t, err)
	_, err = cache.GetRole(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateAll(ctx))

	_, err = cache.EffectivePermissions(ctx, 2)
	require.NoError(t, err)
	_, err = cache.GetRole(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, store.permCalls)
	require.Equal(t, 2, store.roleCalls)
}

func TestPermissionCacheCachesNegativeRoleLookup(t *testing.T) {
	cache, store := newCache(t)
	ctx := context.Background()

	_, err := cache.GetRole(ctx, 99)
	require.ErrorIs(t, err, rbac.ErrNotFound)
	_, err = cache.GetRole(ctx, 99)
	require.ErrorIs(t, err, rbac.ErrNotFound)
	require.Equal(t, 1, store.roleCalls)
}

func TestPermissionCacheEvaluatorIntegration(t *testing.T) {
	// The evaluator re-queries per evaluation; with the cache in front a
	// disable becomes visible as soon as the mutation invalidates.
	cache, store := newCache(t)
	e := rbac.NewEvaluator(cache, nil)
	ctx := context.Background()
	technician := shared.Principal{ID: 10, RoleID: 2}

	require.True(t, e.Evaluate(ctx, technician, []string{shared.PermWorkOrdersUpdate}).Allowed)

	store.perms[2] = nil
	require.NoError(t, cache.Invalidate(ctx, 2))
	dec := e.Evaluate(ctx, technician, []string{shared.PermWorkOrdersUpdate})
	require.False(t, dec.Allowed)
	require.Equal(t, rbac.DenyMissingPermission, dec.Reason)
}
