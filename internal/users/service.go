package users

import (
	"context"
	"strings"

	"github.com/vicops/vicops/internal/platform/httpx"
)

// Service wraps user administration rules.
type Service struct {
	repo *Repository
}

// NewService constructs a new Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ListUsers returns one page of users plus the total count.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	return s.repo.ListUsers(ctx, page, perPage)
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateProfile validates and applies a profile change.
func (s *Service) UpdateProfile(ctx context.Context, id int64, name, email string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return User{}, httpx.ErrValidation
	}
	return s.repo.UpdateProfile(ctx, id, name, email)
}

// AssignRole sets or clears a user's role. The change takes effect on the
// user's next request since principals are resolved per request.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}
