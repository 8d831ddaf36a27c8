package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PermissionCache decorates a PermissionStore with a short-lived Redis
// cache keyed by role ID. Concurrent lookups for the same role collapse
// into a single store query. Cache errors fall through to the store so a
// Redis outage degrades latency, not correctness; invalidation runs on
// every role-permission or permission mutation.
type PermissionCache struct {
	store  PermissionStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewPermissionCache constructs a PermissionCache.
func NewPermissionCache(store PermissionStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *PermissionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionCache{store: store, client: client, ttl: ttl, logger: logger}
}

type cachedRole struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DefaultPath string    `json:"default_path"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Missing     bool      `json:"missing,omitempty"`
}

// GetRole implements PermissionStore. Negative results are cached too so
// repeated lookups for a deleted role do not hammer the database.
func (c *PermissionCache) GetRole(ctx context.Context, roleID int64) (Role, error) {
	key := c.roleKey(roleID)
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var stored cachedRole
		if err := json.Unmarshal(data, &stored); err == nil {
			if stored.Missing {
				return Role{}, ErrNotFound
			}
			return Role{
				ID:          stored.ID,
				Name:        stored.Name,
				DefaultPath: stored.DefaultPath,
				IsActive:    stored.IsActive,
				CreatedAt:   stored.CreatedAt,
				UpdatedAt:   stored.UpdatedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("rbac: role cache read failed", slog.Any("error", err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		role, err := c.store.GetRole(ctx, roleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.set(ctx, key, cachedRole{Missing: true})
			}
			return Role{}, err
		}
		c.set(ctx, key, cachedRole{
			ID:          role.ID,
			Name:        role.Name,
			DefaultPath: role.DefaultPath,
			IsActive:    role.IsActive,
			CreatedAt:   role.CreatedAt,
			UpdatedAt:   role.UpdatedAt,
		})
		return role, nil
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

// EffectivePermissions implements PermissionStore.
func (c *PermissionCache) EffectivePermissions(ctx context.Context, roleID int64) ([]string, error) {
	key := c.permsKey(roleID)
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var names []string
		if err := json.Unmarshal(data, &names); err == nil {
			return names, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("rbac: permission cache read failed", slog.Any("error", err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		names, err := c.store.EffectivePermissions(ctx, roleID)
		if err != nil {
			return nil, err
		}
		if names == nil {
			names = []string{}
		}
		c.set(ctx, key, names)
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Invalidate drops cached entries for a single role.
func (c *PermissionCache) Invalidate(ctx context.Context, roleID int64) error {
	return c.client.Del(ctx, c.roleKey(roleID), c.permsKey(roleID)).Err()
}

// InvalidateAll drops every cached authorization entry. Used after global
// permission mutations, which affect an unknown set of roles.
func (c *PermissionCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "authz:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *PermissionCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("rbac: cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *PermissionCache) roleKey(roleID int64) string {
	return fmt.Sprintf("authz:role:%d", roleID)
}

func (c *PermissionCache) permsKey(roleID int64) string {
	return fmt.Sprintf("authz:perms:%d", roleID)
}

var _ PermissionStore = (*PermissionCache)(nil)
