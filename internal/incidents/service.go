package incidents

import (
	"context"
	"strings"

	"github.com/vicops/vicops/internal/platform/httpx"
)

// Service wraps incident business rules.
type Service struct {
	repo *Repository
}

// NewService constructs a Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, page, perPage int) ([]Incident, int, error) {
	return s.repo.List(ctx, page, perPage)
}

func (s *Service) Get(ctx context.Context, id int64) (Incident, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new incident.
func (s *Service) Create(ctx context.Context, in Incident) (Incident, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.CenterID <= 0 || in.Title == "" || !ValidSeverity(in.Severity) {
		return Incident{}, httpx.ErrValidation
	}
	return s.repo.Create(ctx, in)
}

// Resolve closes an open incident. Resolving twice is a validation error.
func (s *Service) Resolve(ctx context.Context, id int64) (Incident, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Incident{}, err
	}
	if current.Status == StatusResolved {
		return Incident{}, httpx.ErrValidation
	}
	return s.repo.Resolve(ctx, id)
}
