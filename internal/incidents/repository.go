package incidents

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

const incidentColumns = `id, center_id, title, description, severity, status, reported_by, created_at, updated_at`

func scanIncident(row pgx.Row) (Incident, error) {
	var in Incident
	err := row.Scan(&in.ID, &in.CenterID, &in.Title, &in.Description, &in.Severity,
		&in.Status, &in.ReportedBy, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Incident{}, shared.ErrNotFound
		}
		return Incident{}, err
	}
	return in, nil
}

// List returns one page of incidents plus the total count.
func (r *Repository) List(ctx context.Context, page, perPage int) ([]Incident, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+incidentColumns+` FROM incidents ORDER BY id DESC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches an incident by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Incident, error) {
	return scanIncident(r.pool.QueryRow(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id))
}

// Create inserts an incident in the OPEN state.
func (r *Repository) Create(ctx context.Context, in Incident) (Incident, error) {
	return scanIncident(r.pool.QueryRow(ctx, `
		INSERT INTO incidents (center_id, title, description, severity, status, reported_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+incidentColumns,
		in.CenterID, in.Title, in.Description, in.Severity, StatusOpen, in.ReportedBy))
}

// Resolve marks an incident resolved.
func (r *Repository) Resolve(ctx context.Context, id int64) (Incident, error) {
	return scanIncident(r.pool.QueryRow(ctx, `
		UPDATE incidents SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+incidentColumns,
		id, StatusResolved))
}
