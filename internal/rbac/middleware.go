package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vicops/vicops/internal/observability"
	"github.com/vicops/vicops/internal/platform/httpx"
	"github.com/vicops/vicops/internal/shared"
)

// OwnerResolver extracts the owner ID of the resource addressed by the
// request, typically via a repository lookup on a path parameter.
type OwnerResolver func(r *http.Request) (int64, error)

// Middleware wires the handler-level authorization gate. It is the second
// enforcement point behind the edge gate; both call the same Evaluator so
// the decision logic cannot diverge.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// RequireAll ensures the current principal holds every listed permission.
// An empty list allows any authenticated request through unchanged.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.record("handler", Deny(DenyUnauthenticated))
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			dec := m.Evaluator.Evaluate(r.Context(), principal, perms)
			m.record("handler", dec)
			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			m.logDeny(r, principal, dec)
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// RequireOwnerOr grants access when the principal owns the addressed
// resource, falling back to the action's permission requirements
// otherwise. A resolver failure denies: a gate that cannot establish
// ownership must not guess.
func (m Middleware) RequireOwnerOr(action Action, owner OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.record("handler", Deny(DenyUnauthenticated))
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			ownerID, err := owner(r)
			if err != nil {
				if errors.Is(err, ErrNotFound) || errors.Is(err, shared.ErrNotFound) {
					httpx.RespondError(w, httpx.ErrNotFound)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("rbac: owner resolution failed",
						slog.String("action", action.Name),
						slog.String("path", r.URL.Path),
						slog.Any("error", err))
				}
				m.record("handler", Deny(DenyLookupFailure))
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			dec := m.Evaluator.EvaluateOwned(r.Context(), principal, ownerID, action)
			m.record("handler", dec)
			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			m.logDeny(r, principal, dec)
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func (m Middleware) record(gate string, dec Decision) {
	if m.Metrics != nil {
		m.Metrics.AuthzDecision(gate, dec.Allowed, string(dec.Reason))
	}
}

// logDeny records the specific reason internally. The response body stays
// generic so the permission catalog is not disclosed.
func (m Middleware) logDeny(r *http.Request, p shared.Principal, dec Decision) {
	if m.Logger == nil {
		return
	}
	level := slog.LevelWarn
	if dec.Reason == DenyLookupFailure {
		level = slog.LevelError
	}
	m.Logger.Log(r.Context(), level, "authorization denied",
		slog.String("gate", "handler"),
		slog.String("path", r.URL.Path),
		slog.Int64("user_id", p.ID),
		slog.Int64("role_id", p.RoleID),
		slog.String("decision", dec.String()))
}
