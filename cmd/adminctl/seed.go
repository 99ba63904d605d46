package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Fixture is the seed file format.
type Fixture struct {
	Permissions []PermissionFixture `yaml:"permissions"`
	Roles       []RoleFixture       `yaml:"roles"`
	Admin       *AdminFixture       `yaml:"admin,omitempty"`
}

// PermissionFixture declares one permission.
type PermissionFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// RoleFixture declares a role and the names of its permissions.
type RoleFixture struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

// AdminFixture declares an account to create if missing.
type AdminFixture struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// DefaultFixture seeds the two platform permissions with an Admin role
// holding both and a Guest role that can only read.
func DefaultFixture() Fixture {
	return Fixture{
		Permissions: []PermissionFixture{
			{Name: shared.PermReadAll, Description: "Read every admin resource"},
			{Name: shared.PermWriteAll, Description: "Create and update every admin resource"},
		},
		Roles: []RoleFixture{
			{Name: "Admin", Description: "Full access", Permissions: shared.CoreScopes()},
			{Name: shared.DefaultRoleName, Description: "Self-registered accounts", Permissions: []string{shared.PermReadAll}},
		},
	}
}

// LoadFixture reads a fixture file. An empty path yields DefaultFixture.
func LoadFixture(path string) (Fixture, error) {
	if path == "" {
		return DefaultFixture(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, err
	}
	defer f.Close()
	return decodeFixture(f)
}

func decodeFixture(r io.Reader) (Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return fx, fx.Validate()
}

// Validate checks that every role references a declared permission and the
// admin account references a declared role.
func (fx Fixture) Validate() error {
	perms := make(map[string]bool, len(fx.Permissions))
	for _, p := range fx.Permissions {
		if p.Name == "" {
			return errors.New("permission without name")
		}
		perms[p.Name] = true
	}
	roles := make(map[string]bool, len(fx.Roles))
	for _, r := range fx.Roles {
		if r.Name == "" {
			return errors.New("role without name")
		}
		if len(r.Permissions) == 0 {
			return fmt.Errorf("role %s: at least one permission required", r.Name)
		}
		for _, name := range r.Permissions {
			if !perms[name] {
				return fmt.Errorf("role %s: unknown permission %s", r.Name, name)
			}
		}
		roles[r.Name] = true
	}
	if fx.Admin != nil {
		if fx.Admin.Email == "" || fx.Admin.Password == "" {
			return errors.New("admin: email and password required")
		}
		if !roles[fx.Admin.Role] {
			return fmt.Errorf("admin: unknown role %s", fx.Admin.Role)
		}
	}
	return nil
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Permissions int
	Roles       int
	Admin       bool
}

// Seed upserts the fixture in one transaction. Existing rows keep their ids.
func Seed(ctx context.Context, pool *pgxpool.Pool, fx Fixture) (SeedResult, error) {
	var res SeedResult
	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		permIDs := make(map[string]int64, len(fx.Permissions))
		for _, p := range fx.Permissions {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO permissions (name, description) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
				RETURNING id`, p.Name, p.Description).Scan(&id)
			if err != nil {
				return fmt.Errorf("permission %s: %w", p.Name, err)
			}
			permIDs[p.Name] = id
			res.Permissions++
		}
		roleIDs := make(map[string]int64, len(fx.Roles))
		for _, r := range fx.Roles {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO roles (name, description) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
				RETURNING id`, r.Name, r.Description).Scan(&id)
			if err != nil {
				return fmt.Errorf("role %s: %w", r.Name, err)
			}
			batch := &pgx.Batch{}
			for _, name := range r.Permissions {
				batch.Queue(`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, permIDs[name])
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("role %s grants: %w", r.Name, err)
			}
			roleIDs[r.Name] = id
			res.Roles++
		}
		if fx.Admin == nil {
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(fx.Admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO users (email, password_hash, role_id) VALUES ($1, $2, $3)
			ON CONFLICT (email) DO NOTHING`, fx.Admin.Email, string(hash), roleIDs[fx.Admin.Role])
		if err != nil {
			return fmt.Errorf("admin %s: %w", fx.Admin.Email, err)
		}
		res.Admin = tag.RowsAffected() == 1
		return nil
	})
	return res, err
}
