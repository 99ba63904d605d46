package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	selectPermissions = `SELECT id, name, COALESCE(description, '') FROM permissions ORDER BY id`
	selectRoles       = `SELECT id, name, COALESCE(description, '') FROM roles ORDER BY id`
	selectGrants      = `SELECT role_id, permission_id FROM role_permissions ORDER BY role_id, permission_id`
)

// LoadGraph reads permissions, roles and their grants into a Snapshot.
func LoadGraph(ctx context.Context, q Querier) (*Snapshot, error) {
	snap := NewSnapshot()

	rows, err := q.Query(ctx, selectPermissions)
	if err != nil {
		return nil, fmt.Errorf("rbac: load permissions: %w", err)
	}
	var perm Permission
	_, err = pgx.ForEachRow(rows, []any{&perm.ID, &perm.Name, &perm.Description}, func() error {
		snap.AddPermission(perm)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rbac: scan permissions: %w", err)
	}

	rows, err = q.Query(ctx, selectRoles)
	if err != nil {
		return nil, fmt.Errorf("rbac: load roles: %w", err)
	}
	var role Role
	_, err = pgx.ForEachRow(rows, []any{&role.ID, &role.Name, &role.Description}, func() error {
		snap.AddRole(role)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rbac: scan roles: %w", err)
	}

	rows, err = q.Query(ctx, selectGrants)
	if err != nil {
		return nil, fmt.Errorf("rbac: load grants: %w", err)
	}
	var roleID, permID int64
	_, err = pgx.ForEachRow(rows, []any{&roleID, &permID}, func() error {
		snap.Grant(roleID, permID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rbac: scan grants: %w", err)
	}
	return snap, nil
}
