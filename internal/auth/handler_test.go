package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/vicops/vicops/internal/auth"
	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
	_ "github.com/vicops/vicops/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type stubRoles struct {
	roles map[int64]rbac.Role
	perms map[int64][]string
}

func (s *stubRoles) GetRole(ctx context.Context, roleID int64) (rbac.Role, error) {
	role, ok := s.roles[roleID]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	return role, nil
}

func (s *stubRoles) EffectivePermissions(ctx context.Context, roleID int64) ([]string, error) {
	return s.perms[roleID], nil
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Email:        "tech@vic.local",
		Name:         "Technician",
		PasswordHash: string(hashed),
		RoleID:       2,
		IsActive:     true,
	}
}

func newHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *auth.Service, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	tokens := auth.NewTokenManager("tokensecret", 15*time.Minute)
	service := auth.NewService(repo, tokens)
	roles := &stubRoles{
		roles: map[int64]rbac.Role{2: {ID: 2, Name: "TECHNICIAN", DefaultPath: "/work-orders", IsActive: true}},
		perms: map[int64][]string{2: {shared.PermWorkOrdersRead}},
	}
	handler := auth.NewHandler(nil, service, roles, sessionManager)
	return handler, service, sessionManager
}

func postJSON(t *testing.T, target, body string, sess *shared.Session) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	return req
}

func TestLoginSuccessReturnsRoleDefaultPath(t *testing.T) {
	handler, _, sessionManager := newHandler(t, &stubRepo{user: activeUser(t)})

	req := postJSON(t, "/login", `{"email":"tech@vic.local","password":"correctpass"}`, nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.MountRoutesForTest().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["redirect_to"] != "/work-orders" {
		t.Fatalf("expected role default path, got %v", out["redirect_to"])
	}
	if sess.User() != "1" {
		t.Fatalf("expected session bound to user 1, got %q", sess.User())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, _, sessionManager := newHandler(t, &stubRepo{user: activeUser(t)})

	req := postJSON(t, "/login", `{"email":"tech@vic.local","password":"wrongpass1"}`, nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.MountRoutesForTest().ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatal("session must not be bound on failed login")
	}
}

func TestLoginInactiveUserRejected(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	handler, _, sessionManager := newHandler(t, &stubRepo{user: user})

	req := postJSON(t, "/login", `{"email":"tech@vic.local","password":"correctpass"}`, nil)
	sess, _ := sessionManager.Load(context.Background(), req)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.MountRoutesForTest().ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestTokenIssueAndResolvePrincipal(t *testing.T) {
	_, service, _ := newHandler(t, &stubRepo{user: activeUser(t)})

	token, err := service.IssueToken(context.Background(), "tech@vic.local", "correctpass")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	principal, ok := service.PrincipalFromToken(context.Background(), token)
	if !ok {
		t.Fatal("expected principal from valid token")
	}
	if principal.ID != 1 || principal.RoleID != 2 {
		t.Fatalf("unexpected principal %+v", principal)
	}

	if _, ok := service.PrincipalFromToken(context.Background(), token+"tampered"); ok {
		t.Fatal("tampered token must not resolve")
	}
}

func TestPrincipalFromSessionRejectsInactiveUser(t *testing.T) {
	user := activeUser(t)
	repo := &stubRepo{user: user}
	_, service, sessionManager := newHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sessionManager.Load(context.Background(), req)
	sess.SetUser("1")

	if _, ok := service.PrincipalFromSession(context.Background(), sess); !ok {
		t.Fatal("active user should resolve")
	}

	user.IsActive = false
	if _, ok := service.PrincipalFromSession(context.Background(), sess); ok {
		t.Fatal("deactivated user must stop resolving immediately")
	}
}
