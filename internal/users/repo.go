package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Repository defines persistence operations for users.
type Repository interface {
	List(ctx context.Context) ([]rbac.Principal, error)
	FindByID(ctx context.Context, id int64) (rbac.Principal, error)
	Update(ctx context.Context, p rbac.Principal) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns every user with its role resolved through the role graph.
func (r *PGRepository) List(ctx context.Context) ([]rbac.Principal, error) {
	graph, err := rbac.LoadGraph(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email, role_id FROM users ORDER BY id`)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	var (
		out     []rbac.Principal
		p       rbac.Principal
		roleID  int64
		missing []int64
	)
	_, err = pgx.ForEachRow(rows, []any{&p.ID, &p.Email, &roleID}, func() error {
		graph.Assign(p.ID, roleID)
		role, ok := graph.RoleOf(p.ID)
		if !ok {
			missing = append(missing, p.ID)
		}
		out = append(out, rbac.Principal{ID: p.ID, Email: p.Email, Role: role})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("users: role graph inconsistent for users %v", missing)
	}
	return out, nil
}

// FindByID loads a user with its role and permissions.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (rbac.Principal, error) {
	p := rbac.Principal{ID: id}
	var roleID int64
	err := r.pool.QueryRow(ctx, `SELECT email, password_hash, role_id FROM users WHERE id = $1`, id).
		Scan(&p.Email, &p.PasswordHash, &roleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.Principal{}, shared.NotFound("User", "id", id)
	}
	if err != nil {
		return rbac.Principal{}, db.TranslateError(err)
	}
	graph, err := rbac.LoadGraph(ctx, r.pool)
	if err != nil {
		return rbac.Principal{}, err
	}
	graph.Assign(id, roleID)
	role, ok := graph.RoleOf(id)
	if !ok {
		return rbac.Principal{}, shared.NotFound("Role", "id", roleID)
	}
	p.Role = role
	return p, nil
}

// Update writes email, password hash and role.
func (r *PGRepository) Update(ctx context.Context, p rbac.Principal) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, password_hash = $3, role_id = $4 WHERE id = $1`,
		p.ID, p.Email, p.PasswordHash, p.Role.ID,
	)
	if err != nil {
		return db.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("User", "id", p.ID)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
