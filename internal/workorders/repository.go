package workorders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vicops/vicops/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workOrderColumns = `id, center_id, vehicle_plate, description, status, COALESCE(assigned_to, 0), reported_by, created_at, updated_at`

func scanWorkOrder(row pgx.Row) (WorkOrder, error) {
	var wo WorkOrder
	err := row.Scan(&wo.ID, &wo.CenterID, &wo.VehiclePlate, &wo.Description, &wo.Status,
		&wo.AssignedTo, &wo.ReportedBy, &wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, shared.ErrNotFound
		}
		return WorkOrder{}, err
	}
	return wo, nil
}

// List returns one page of work orders plus the total count.
func (r *Repository) List(ctx context.Context, page, perPage int) ([]WorkOrder, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+workOrderColumns+` FROM work_orders ORDER BY id DESC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, wo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a work order by ID.
func (r *Repository) Get(ctx context.Context, id int64) (WorkOrder, error) {
	return scanWorkOrder(r.pool.QueryRow(ctx,
		`SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id))
}

// AssignedTo returns the user a work order is assigned to, zero when
// unassigned. Used by the ownership resolver on the progress endpoint.
func (r *Repository) AssignedTo(ctx context.Context, id int64) (int64, error) {
	var assignee int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(assigned_to, 0) FROM work_orders WHERE id = $1`, id,
	).Scan(&assignee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return assignee, nil
}

// Create inserts a work order and returns the stored row.
func (r *Repository) Create(ctx context.Context, wo WorkOrder) (WorkOrder, error) {
	return scanWorkOrder(r.pool.QueryRow(ctx, `
		INSERT INTO work_orders (center_id, vehicle_plate, description, status, assigned_to, reported_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6)
		RETURNING `+workOrderColumns,
		wo.CenterID, wo.VehiclePlate, wo.Description, wo.Status, wo.AssignedTo, wo.ReportedBy))
}

// Update rewrites the mutable fields of a work order.
func (r *Repository) Update(ctx context.Context, wo WorkOrder) (WorkOrder, error) {
	return scanWorkOrder(r.pool.QueryRow(ctx, `
		UPDATE work_orders
		SET description = $2, status = $3, assigned_to = NULLIF($4, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING `+workOrderColumns,
		wo.ID, wo.Description, wo.Status, wo.AssignedTo))
}

// UpdateStatus moves a work order through its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) (WorkOrder, error) {
	return scanWorkOrder(r.pool.QueryRow(ctx, `
		UPDATE work_orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workOrderColumns,
		id, status))
}

// Delete removes a work order.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
