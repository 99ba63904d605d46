package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Repository defines persistence operations for roles.
type Repository interface {
	// Create stores the role and its grants atomically.
	Create(ctx context.Context, role rbac.Role) (rbac.Role, error)
	// Update rewrites name and description and, when replaceGrants is set,
	// the full grant set, in one transaction.
	Update(ctx context.Context, role rbac.Role, replaceGrants bool) (rbac.Role, error)
	FindByID(ctx context.Context, id int64) (rbac.Role, error)
	FindIDByName(ctx context.Context, name string) (int64, error)
	Graph(ctx context.Context) (*rbac.Snapshot, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts the role and its permission grants.
func (r *PGRepository) Create(ctx context.Context, role rbac.Role) (rbac.Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO roles (name, description) VALUES ($1, NULLIF($2, '')) RETURNING id`,
			role.Name, role.Description,
		).Scan(&role.ID); err != nil {
			return err
		}
		return insertGrants(ctx, tx, role)
	})
	if err != nil {
		return rbac.Role{}, err
	}
	return role, nil
}

// Update overwrites the role row and optionally its grants.
func (r *PGRepository) Update(ctx context.Context, role rbac.Role, replaceGrants bool) (rbac.Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET name = $2, description = NULLIF($3, '') WHERE id = $1`,
			role.ID, role.Name, role.Description,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFound("Role", "id", role.ID)
		}
		if !replaceGrants {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return err
		}
		return insertGrants(ctx, tx, role)
	})
	if err != nil {
		return rbac.Role{}, err
	}
	if !replaceGrants {
		return r.FindByID(ctx, role.ID)
	}
	return role, nil
}

func insertGrants(ctx context.Context, tx pgx.Tx, role rbac.Role) error {
	batch := &pgx.Batch{}
	for _, p := range role.Permissions {
		batch.Queue(`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, role.ID, p.ID)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// FindByID loads a role with its permissions in grant order.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (rbac.Role, error) {
	role := rbac.Role{ID: id}
	err := r.pool.QueryRow(ctx, `SELECT name, COALESCE(description, '') FROM roles WHERE id = $1`, id).
		Scan(&role.Name, &role.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.Role{}, shared.NotFound("Role", "id", id)
	}
	if err != nil {
		return rbac.Role{}, db.TranslateError(err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, '')
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.id`, id)
	if err != nil {
		return rbac.Role{}, db.TranslateError(err)
	}
	perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rbac.Permission, error) {
		var p rbac.Permission
		err := row.Scan(&p.ID, &p.Name, &p.Description)
		return p, err
	})
	if err != nil {
		return rbac.Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

// FindIDByName resolves an exact role name to its id.
func (r *PGRepository) FindIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.NotFound("Roles", "name", name)
	}
	if err != nil {
		return 0, db.TranslateError(err)
	}
	return id, nil
}

// Graph loads the full role graph.
func (r *PGRepository) Graph(ctx context.Context) (*rbac.Snapshot, error) {
	return rbac.LoadGraph(ctx, r.pool)
}

var _ Repository = (*PGRepository)(nil)
