package rbac

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vicops/vicops/internal/platform/httpx"
	"github.com/vicops/vicops/internal/shared"
)

const (
	// LoginPath receives unauthenticated browser requests, carrying the
	// originally requested path for post-login redirect.
	LoginPath = "/auth/login"
	// UnauthorizedPath receives authenticated-but-forbidden browser
	// requests.
	UnauthorizedPath = "/unauthorized"
)

// Gate is the edge enforcement point: it runs ahead of every non-public
// route and decides on whole paths via the route access table before any
// handler executes. Handler-level guards repeat the check with
// finer-grained permission lists; neither gate is the sole line of
// defense.
//
// Every failure mode denies. A lookup error, an inactive role, or a path
// with no matching rule all short-circuit the request.
func (m Middleware) Gate(table *RouteTable, publicPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			for _, prefix := range publicPrefixes {
				if path == prefix || strings.HasPrefix(path, prefix+"/") {
					next.ServeHTTP(w, r)
					return
				}
			}

			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.record("edge", Deny(DenyUnauthenticated))
				m.rejectUnauthenticated(w, r)
				return
			}

			role, dec := m.Evaluator.resolveRole(r.Context(), principal)
			if !dec.Allowed {
				m.record("edge", dec)
				m.logEdgeDeny(r, principal, dec)
				m.rejectForbidden(w, r)
				return
			}

			// Administrator bypasses the route table entirely, including
			// paths no rule covers.
			if role.Name == shared.AdministratorRole {
				m.record("edge", Allow())
				next.ServeHTTP(w, r)
				return
			}

			rule := table.Resolve(path)
			if rule == nil {
				// Deny-by-default. Logged as a configuration gap: a
				// protected path should always have a declared rule.
				dec := Deny(DenyRouteUnmatched)
				m.record("edge", dec)
				if m.Logger != nil {
					m.Logger.Warn("no route rule for protected path",
						slog.String("path", path))
				}
				m.rejectForbidden(w, r)
				return
			}

			if rule.RequiredRoleID != 0 {
				if role.ID == rule.RequiredRoleID {
					m.record("edge", Allow())
					next.ServeHTTP(w, r)
					return
				}
				dec := Deny(DenyRoleMismatch)
				m.record("edge", dec)
				m.logEdgeDeny(r, principal, dec)
				m.rejectForbidden(w, r)
				return
			}

			dec = m.Evaluator.Evaluate(r.Context(), principal, rule.RequiredPermissions)
			m.record("edge", dec)
			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			m.logEdgeDeny(r, principal, dec)
			m.rejectForbidden(w, r)
		})
	}
}

func (m Middleware) rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	httpx.RespondError(w, httpx.ErrUnauthorized)
}

func (m Middleware) rejectForbidden(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
		return
	}
	httpx.RespondError(w, httpx.ErrForbidden)
}

func (m Middleware) logEdgeDeny(r *http.Request, p shared.Principal, dec Decision) {
	if m.Logger == nil {
		return
	}
	level := slog.LevelWarn
	if dec.Reason == DenyLookupFailure {
		level = slog.LevelError
	}
	m.Logger.Log(r.Context(), level, "authorization denied",
		slog.String("gate", "edge"),
		slog.String("path", r.URL.Path),
		slog.Int64("user_id", p.ID),
		slog.Int64("role_id", p.RoleID),
		slog.String("decision", dec.String()))
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
