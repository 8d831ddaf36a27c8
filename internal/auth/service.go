package auth

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vicops/vicops/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService constructs a new Service. tokens may be nil when bearer
// tokens are disabled.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// IssueToken authenticates credentials and returns a signed bearer token.
func (s *Service) IssueToken(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	if s.tokens == nil {
		return "", ErrInvalidToken
	}
	return s.tokens.Issue(user.ID)
}

// ResolvePrincipal loads the current principal state for a user ID. The
// role is read fresh so role changes and deactivations take effect on the
// next request.
func (s *Service) ResolvePrincipal(ctx context.Context, userID int64) (shared.Principal, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return shared.Principal{}, err
	}
	if !user.IsActive {
		return shared.Principal{}, shared.ErrNotFound
	}
	return shared.Principal{ID: user.ID, RoleID: user.RoleID}, nil
}

// PrincipalFromSession resolves the principal referenced by a session,
// returning false when the session carries no valid user.
func (s *Service) PrincipalFromSession(ctx context.Context, sess *shared.Session) (shared.Principal, bool) {
	if sess == nil {
		return shared.Principal{}, false
	}
	raw := sess.User()
	if raw == "" {
		return shared.Principal{}, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return shared.Principal{}, false
	}
	principal, err := s.ResolvePrincipal(ctx, userID)
	if err != nil {
		return shared.Principal{}, false
	}
	return principal, true
}

// PrincipalFromToken verifies a bearer token and resolves its principal.
func (s *Service) PrincipalFromToken(ctx context.Context, tokenStr string) (shared.Principal, bool) {
	if s.tokens == nil || tokenStr == "" {
		return shared.Principal{}, false
	}
	userID, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return shared.Principal{}, false
	}
	principal, err := s.ResolvePrincipal(ctx, userID)
	if err != nil {
		return shared.Principal{}, false
	}
	return principal, true
}
