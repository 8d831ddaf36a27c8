package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vicops/vicops/internal/observability"
	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
)

func gateMiddleware(t *testing.T, store rbac.PermissionStore) func(http.Handler) http.Handler {
	t.Helper()
	table := mustTable(t, []rbac.RouteRule{
		{Pattern: "/admin/users", RequiredPermissions: []string{shared.PermUsersRead}},
		{Pattern: "/admin/users/:id", RequiredPermissions: []string{shared.PermUsersRead}},
		{Pattern: "/admin/work-orders/*", RequiredPermissions: []string{shared.PermWorkOrdersRead}},
	})
	mw := rbac.Middleware{Evaluator: rbac.NewEvaluator(store, nil)}
	return mw.Gate(table, []string{"/auth", "/healthz"})
}

func TestGateRedirectsUnauthenticatedBrowserToLogin(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin/users/42", nil)
	req.Header.Set("Accept", "text/html")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if *called {
		t.Fatal("handler must not run")
	}
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", res.Code)
	}
	loc := res.Header().Get("Location")
	if !strings.HasPrefix(loc, rbac.LoginPath) || !strings.Contains(loc, "next=%2Fadmin%2Fusers%2F42") {
		t.Fatalf("expected login redirect carrying the original path, got %q", loc)
	}
}

func TestGateReturns401ForUnauthenticatedAPIClient(t *testing.T) {
	next, _ := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Accept", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestGateRedirectsForbiddenBrowserToUnauthorized(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	// Technician lacks users:read.
	req := requestWithPrincipal(http.MethodGet, "/admin/users/42", &shared.Principal{ID: 10, RoleID: 2})
	req.Header.Set("Accept", "text/html")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if *called {
		t.Fatal("handler must not run")
	}
	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != rbac.UnauthorizedPath {
		t.Fatalf("expected redirect to %s, got %d %q", rbac.UnauthorizedPath, res.Code, res.Header().Get("Location"))
	}
}

func TestGateAllowsPermittedPrincipal(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	req := requestWithPrincipal(http.MethodGet, "/admin/work-orders/7", &shared.Principal{ID: 10, RoleID: 2})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if !*called || res.Code != http.StatusOK {
		t.Fatalf("expected pass-through, called=%v code=%d", *called, res.Code)
	}
}

func TestGateDeniesUnmatchedProtectedPath(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	req := requestWithPrincipal(http.MethodGet, "/admin/settings", &shared.Principal{ID: 10, RoleID: 2})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if *called {
		t.Fatal("unmatched protected path must deny, never allow")
	}
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestGateAdministratorBypassesRouteTable(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	// No rule matches /admin/settings, the administrator passes anyway.
	req := requestWithPrincipal(http.MethodGet, "/admin/settings", &shared.Principal{ID: 1, RoleID: 1})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if !*called {
		t.Fatal("administrator must bypass the route table")
	}
}

func TestGateSkipsPublicPrefixes(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	for _, target := range []string{"/healthz", "/auth/login"} {
		*called = false
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, target, nil))
		if !*called {
			t.Fatalf("public path %s should not be gated", target)
		}
	}
}

func TestGateDeniesInactiveRole(t *testing.T) {
	next, called := okHandler()
	handler := gateMiddleware(t, newTechnicianStore())(next)

	req := requestWithPrincipal(http.MethodGet, "/admin/users", &shared.Principal{ID: 10, RoleID: 3})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if *called || res.Code != http.StatusForbidden {
		t.Fatalf("inactive role must be denied, called=%v code=%d", *called, res.Code)
	}
}

func TestGateRequiredRoleRule(t *testing.T) {
	table := mustTable(t, []rbac.RouteRule{
		{Pattern: "/admin/replication/*", RequiredRoleID: 4},
	})
	store := newTechnicianStore()
	store.roles[4] = rbac.Role{ID: 4, Name: "OPERATOR", IsActive: true}
	mw := rbac.Middleware{Evaluator: rbac.NewEvaluator(store, nil)}
	handler := mw.Gate(table, nil)

	next, called := okHandler()
	res := httptest.NewRecorder()
	handler(next).ServeHTTP(res, requestWithPrincipal(http.MethodGet, "/admin/replication/status", &shared.Principal{ID: 5, RoleID: 4}))
	if !*called {
		t.Fatal("matching role should be allowed")
	}

	next, called = okHandler()
	res = httptest.NewRecorder()
	handler(next).ServeHTTP(res, requestWithPrincipal(http.MethodGet, "/admin/replication/status", &shared.Principal{ID: 10, RoleID: 2}))
	if *called || res.Code != http.StatusForbidden {
		t.Fatalf("other roles must be denied, called=%v code=%d", *called, res.Code)
	}
}

func TestGateRoleRuleMismatchReportsRoleMismatch(t *testing.T) {
	table := mustTable(t, []rbac.RouteRule{
		{Pattern: "/admin/replication/*", RequiredRoleID: 4},
	})
	metrics := observability.NewMetrics()
	mw := rbac.Middleware{Evaluator: rbac.NewEvaluator(newTechnicianStore(), nil), Metrics: metrics}
	handler := mw.Gate(table, nil)

	next, called := okHandler()
	res := httptest.NewRecorder()
	handler(next).ServeHTTP(res, requestWithPrincipal(http.MethodGet, "/admin/replication/status", &shared.Principal{ID: 10, RoleID: 2}))
	if *called || res.Code != http.StatusForbidden {
		t.Fatalf("role mismatch must be denied, called=%v code=%d", *called, res.Code)
	}

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	if !strings.Contains(body, `vicops_authz_decisions_total{gate="edge",outcome="deny",reason="role mismatch"} 1`) {
		t.Fatalf("expected role mismatch reason in metrics, got: %s", body)
	}
	if strings.Contains(body, `reason="missing permission"`) {
		t.Fatalf("role rule mismatch must not be labelled as a permission miss: %s", body)
	}
}
