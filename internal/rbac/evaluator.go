package rbac

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vicops/vicops/internal/shared"
)

// PermissionStore is the read-side capability the evaluator depends on.
// Production code backs it with PostgreSQL (optionally wrapped in the Redis
// cache); tests substitute an in-memory fake.
type PermissionStore interface {
	// GetRole fetches a role by ID, returning ErrNotFound when absent.
	GetRole(ctx context.Context, roleID int64) (Role, error)
	// EffectivePermissions returns the permission names active for the
	// role: both the permission and the role association must be active.
	EffectivePermissions(ctx context.Context, roleID int64) ([]string, error)
}

// Evaluator is the single decision point shared by the edge gate and the
// handler gate. Evaluation is a pure read: any store failure maps to a
// deny, never an allow.
type Evaluator struct {
	store         PermissionStore
	logger        *slog.Logger
	lookupTimeout time.Duration
}

// EvaluatorOption customises evaluator construction.
type EvaluatorOption func(*Evaluator)

// WithLookupTimeout bounds each permission-lookup query.
func WithLookupTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		if d > 0 {
			e.lookupTimeout = d
		}
	}
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(store PermissionStore, logger *slog.Logger, opts ...EvaluatorOption) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Evaluator{store: store, logger: logger, lookupTimeout: 3 * time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate decides whether the principal may perform an operation that
// requires every permission in required (all-of semantics). An empty
// required list allows any principal that passes the role checks.
func (e *Evaluator) Evaluate(ctx context.Context, p shared.Principal, required []string) Decision {
	role, dec := e.resolveRole(ctx, p)
	if !dec.Allowed {
		return dec
	}
	if role.Name == shared.AdministratorRole {
		return Allow()
	}
	if len(required) == 0 {
		return Allow()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()
	granted, err := e.store.EffectivePermissions(lookupCtx, p.RoleID)
	if err != nil {
		e.logger.Error("rbac: permission lookup failed",
			slog.Int64("role_id", p.RoleID),
			slog.Any("error", err))
		return Deny(DenyLookupFailure)
	}

	set := make(map[string]struct{}, len(granted))
	for _, name := range granted {
		set[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := set[name]; !ok {
			return DenyMissing(name)
		}
	}
	return Allow()
}

// resolveRole runs the checks shared by every evaluation: the principal
// must be authenticated and carry an active role.
func (e *Evaluator) resolveRole(ctx context.Context, p shared.Principal) (Role, Decision) {
	if p.ID == 0 {
		return Role{}, Deny(DenyUnauthenticated)
	}
	if !p.HasRole() {
		return Role{}, Deny(DenyNoRole)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()
	role, err := e.store.GetRole(lookupCtx, p.RoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, Deny(DenyNoRole)
		}
		e.logger.Error("rbac: role lookup failed",
			slog.Int64("role_id", p.RoleID),
			slog.Any("error", err))
		return Role{}, Deny(DenyLookupFailure)
	}
	if !role.IsActive {
		return Role{}, Deny(DenyRoleInactive)
	}
	return role, Allow()
}

// IsAdministrator reports whether the principal holds the active
// administrator role. Lookup failures report false.
func (e *Evaluator) IsAdministrator(ctx context.Context, p shared.Principal) bool {
	role, dec := e.resolveRole(ctx, p)
	return dec.Allowed && role.Name == shared.AdministratorRole
}
