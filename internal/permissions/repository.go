package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Repository defines persistence operations for permissions.
type Repository interface {
	Create(ctx context.Context, name, description string) (rbac.Permission, error)
	List(ctx context.Context) ([]rbac.Permission, error)
	FindByID(ctx context.Context, id int64) (rbac.Permission, error)
	Update(ctx context.Context, p rbac.Permission) (rbac.Permission, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a permission.
func (r *PGRepository) Create(ctx context.Context, name, description string) (rbac.Permission, error) {
	p := rbac.Permission{Name: name, Description: description}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, description) VALUES ($1, NULLIF($2, '')) RETURNING id`,
		name, description,
	).Scan(&p.ID)
	if err != nil {
		return rbac.Permission{}, db.TranslateError(err)
	}
	return p, nil
}

// List returns every permission in storage order.
func (r *PGRepository) List(ctx context.Context) ([]rbac.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM permissions ORDER BY id`)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	defer rows.Close()
	var out []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID fetches a permission by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (rbac.Permission, error) {
	p := rbac.Permission{ID: id}
	err := r.pool.QueryRow(ctx, `SELECT name, COALESCE(description, '') FROM permissions WHERE id = $1`, id).
		Scan(&p.Name, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.Permission{}, shared.NotFound("Permission", "id", id)
	}
	if err != nil {
		return rbac.Permission{}, db.TranslateError(err)
	}
	return p, nil
}

// Update overwrites name and description.
func (r *PGRepository) Update(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET name = $2, description = NULLIF($3, '') WHERE id = $1`,
		p.ID, p.Name, p.Description,
	)
	if err != nil {
		return rbac.Permission{}, db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return rbac.Permission{}, shared.NotFound("Permission", "id", p.ID)
	}
	return p, nil
}

var _ Repository = (*PGRepository)(nil)
