package workorders

import (
	"context"
	"strings"

	"github.com/vicops/vicops/internal/platform/httpx"
)

// Service wraps work order business rules.
type Service struct {
	repo *Repository
}

// NewService constructs a Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, page, perPage int) ([]WorkOrder, int, error) {
	return s.repo.List(ctx, page, perPage)
}

func (s *Service) Get(ctx context.Context, id int64) (WorkOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) AssignedTo(ctx context.Context, id int64) (int64, error) {
	return s.repo.AssignedTo(ctx, id)
}

// Create validates and stores a new work order. New orders always start
// in the OPEN state.
func (s *Service) Create(ctx context.Context, wo WorkOrder) (WorkOrder, error) {
	wo.VehiclePlate = strings.ToUpper(strings.TrimSpace(wo.VehiclePlate))
	wo.Description = strings.TrimSpace(wo.Description)
	if wo.CenterID <= 0 || wo.VehiclePlate == "" || wo.Description == "" {
		return WorkOrder{}, httpx.ErrValidation
	}
	wo.Status = StatusOpen
	return s.repo.Create(ctx, wo)
}

// Update rewrites a work order's mutable fields.
func (s *Service) Update(ctx context.Context, wo WorkOrder) (WorkOrder, error) {
	wo.Description = strings.TrimSpace(wo.Description)
	if wo.Description == "" || !ValidStatus(wo.Status) {
		return WorkOrder{}, httpx.ErrValidation
	}
	return s.repo.Update(ctx, wo)
}

// Progress moves a work order to the given state. Cancelled and
// completed orders are terminal.
func (s *Service) Progress(ctx context.Context, id int64, status string) (WorkOrder, error) {
	if !ValidStatus(status) {
		return WorkOrder{}, httpx.ErrValidation
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return WorkOrder{}, err
	}
	if current.Status == StatusCompleted || current.Status == StatusCancelled {
		return WorkOrder{}, httpx.ErrValidation
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
