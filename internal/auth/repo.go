package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Repository is the credential store used by login, registration and the
// authentication gate.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (rbac.Principal, error)
	CreateUser(ctx context.Context, email, passwordHash string, roleID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const principalByEmail = `
SELECT u.id, u.email, u.password_hash,
       r.id, r.name, COALESCE(r.description, ''),
       p.id, p.name, p.description
FROM users u
JOIN roles r ON r.id = u.role_id
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
WHERE u.email = $1
ORDER BY p.id`

// FindByEmail loads the principal with its role and the role's permissions.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (rbac.Principal, error) {
	rows, err := r.pool.Query(ctx, principalByEmail, email)
	if err != nil {
		return rbac.Principal{}, db.TranslateError(err)
	}
	var (
		out      rbac.Principal
		found    bool
		permID   *int64
		permName *string
		permDesc *string
	)
	_, err = pgx.ForEachRow(rows, []any{
		&out.ID, &out.Email, &out.PasswordHash,
		&out.Role.ID, &out.Role.Name, &out.Role.Description,
		&permID, &permName, &permDesc,
	}, func() error {
		found = true
		if permID == nil {
			return nil
		}
		p := rbac.Permission{ID: *permID}
		if permName != nil {
			p.Name = *permName
		}
		if permDesc != nil {
			p.Description = *permDesc
		}
		out.Role.Permissions = append(out.Role.Permissions, p)
		return nil
	})
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("auth: scan principal: %w", err)
	}
	if !found {
		return rbac.Principal{}, shared.NotFound("User", "email", email)
	}
	return out, nil
}

// CreateUser inserts an account and returns its id. A taken email surfaces as
// an IntegrityError on the email field.
func (r *PGRepository) CreateUser(ctx context.Context, email, passwordHash string, roleID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, role_id) VALUES ($1, $2, $3) RETURNING id`,
		email, passwordHash, roleID,
	).Scan(&id)
	if err != nil {
		return 0, db.TranslateError(err)
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
