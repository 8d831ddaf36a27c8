package rbac

import (
	"context"

	"github.com/vicops/vicops/internal/shared"
)

// Action identifies a handler-level operation together with the
// permissions it requires. SelfEditable marks the narrow set of actions
// where the resource owner is granted access without a permission lookup.
//
// Actions are declared as plain data, one table per module, so the
// permission mapping stays readable and testable without reflection.
type Action struct {
	Name                string
	RequiredPermissions []string
	SelfEditable        bool
}

// Actions exercised by the core modules.
var (
	// ActionUserProfileUpdate lets a user edit their own profile; anyone
	// else needs users:update.
	ActionUserProfileUpdate = Action{
		Name:                "users:update-own-profile",
		RequiredPermissions: []string{shared.PermUsersUpdate},
		SelfEditable:        true,
	}

	// ActionWorkOrderProgress lets the assigned technician progress their
	// own work order; anyone else needs work-orders:update.
	ActionWorkOrderProgress = Action{
		Name:                "work-orders:update-own",
		RequiredPermissions: []string{shared.PermWorkOrdersUpdate},
		SelfEditable:        true,
	}
)

// CanActViaOwnership reports whether the principal owns the resource and
// the action admits the ownership fast-path. It deliberately ignores
// permission state: owners of self-editable resources always pass.
func CanActViaOwnership(p shared.Principal, resourceOwnerID int64, action Action) bool {
	return action.SelfEditable && p.ID != 0 && p.ID == resourceOwnerID
}

// EvaluateOwned applies the ownership override ahead of permission
// evaluation. Ownership is checked first; only on a mismatch does the
// standard evaluation run, so a non-owner with full permissions is still
// evaluated normally.
//
// A self-editable action that declares no required permissions stays
// closed to non-owners: absence of a requirement is not an open door here.
// Administrators still pass through the role bypass.
func (e *Evaluator) EvaluateOwned(ctx context.Context, p shared.Principal, resourceOwnerID int64, action Action) Decision {
	if CanActViaOwnership(p, resourceOwnerID, action) {
		return Allow()
	}
	if action.SelfEditable && len(action.RequiredPermissions) == 0 {
		role, dec := e.resolveRole(ctx, p)
		if !dec.Allowed {
			return dec
		}
		if role.Name == shared.AdministratorRole {
			return Allow()
		}
		return Deny(DenyNotOwner)
	}
	return e.Evaluate(ctx, p, action.RequiredPermissions)
}
