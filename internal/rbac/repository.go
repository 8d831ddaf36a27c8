package rbac

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vicops/vicops/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles,
// permissions and their associations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, roleID int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, default_path, is_active, created_at, updated_at FROM roles WHERE id = $1`,
		roleID,
	).Scan(&role.ID, &role.Name, &role.DefaultPath, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// EffectivePermissions returns the permission names granted to a role.
// Both the permission and the association must be active: soft-disabling
// either side removes the grant without deleting rows.
func (r *Repository) EffectivePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND p.is_active AND rp.is_active
		ORDER BY p.name`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, default_path, is_active, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.DefaultPath, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(resource, ''), COALESCE(action, ''), is_active FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.IsActive); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// EnsurePermission upserts a permission by name.
func (r *Repository) EnsurePermission(ctx context.Context, name, resource, action string) (Permission, error) {
	name = strings.TrimSpace(name)
	var p Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, resource, action, is_active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), TRUE)
		ON CONFLICT (name) DO UPDATE SET resource = EXCLUDED.resource, action = EXCLUDED.action
		RETURNING id, name, COALESCE(resource, ''), COALESCE(action, ''), is_active`,
		name, strings.TrimSpace(resource), strings.TrimSpace(action),
	).Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.IsActive)
	if err != nil {
		return Permission{}, err
	}
	return p, nil
}

// SetPermissionActive toggles the global active flag of a permission.
// Disabling removes the permission from every role's effective set while
// leaving role associations untouched.
func (r *Repository) SetPermissionActive(ctx context.Context, permissionID int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET is_active = $2 WHERE id = $1`,
		permissionID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRolePermissions replaces the active grant set of a role. Existing
// associations are soft-disabled, never deleted; re-granting reactivates
// the original row.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE role_permissions SET is_active = FALSE WHERE role_id = $1`,
			roleID); err != nil {
			return err
		}
		for _, permissionID := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id, is_active)
				VALUES ($1, $2, TRUE)
				ON CONFLICT (role_id, permission_id) DO UPDATE SET is_active = TRUE`,
				roleID, permissionID); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ PermissionStore = (*Repository)(nil)
