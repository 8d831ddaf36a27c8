package rbac

import (
	"context"
	"log/slog"
)

// CacheInvalidator is implemented by PermissionCache. Mutations must not
// leave stale authorization state behind, so every write path invalidates
// before returning.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, roleID int64) error
	InvalidateAll(ctx context.Context) error
}

// Service orchestrates administrative RBAC operations. The evaluator side
// never goes through Service; it reads via PermissionStore only.
type Service struct {
	repo   *Repository
	cache  CacheInvalidator
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil when no cache is
// configured.
func NewService(repo *Repository, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// RolePermissions returns the effective permission names of a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	return s.repo.EffectivePermissions(ctx, roleID)
}

// EnsurePermission upserts a permission by name.
func (s *Service) EnsurePermission(ctx context.Context, name, resource, action string) (Permission, error) {
	return s.repo.EnsurePermission(ctx, name, resource, action)
}

// SetRolePermissions replaces the active grants of a role and drops any
// cached decisions for it.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if err := s.repo.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.invalidate(ctx, roleID)
	return nil
}

// SetPermissionActive toggles a permission globally. Since any role may
// reference it, the whole cache is flushed.
func (s *Service) SetPermissionActive(ctx context.Context, permissionID int64, active bool) error {
	if err := s.repo.SetPermissionActive(ctx, permissionID, active); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Error("rbac: cache invalidation failed", slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, roleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, roleID); err != nil {
		s.logger.Error("rbac: cache invalidation failed",
			slog.Int64("role_id", roleID),
			slog.Any("error", err))
	}
}
