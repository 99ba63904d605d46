package roles

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/odyssey-erp/commerce-admin/internal/listing"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// PermissionLookup resolves permission ids.
type PermissionLookup interface {
	FindByID(ctx context.Context, id int64) (rbac.Permission, error)
}

// Service handles role business logic and acts as the role resolver for
// registration and user updates.
type Service struct {
	repo   Repository
	perms  PermissionLookup
	audit  shared.AuditRecorder
	logger *slog.Logger
	names  *cache.Cache
}

// NewService builds a Service. A nil audit recorder discards entries.
func NewService(repo Repository, perms PermissionLookup, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		perms:  perms,
		audit:  audit,
		logger: logger,
		names:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Source describes how roles are listed.
func Source() listing.Source[rbac.Role] {
	return listing.Source[rbac.Role]{
		Context:  ListContext,
		MaxLimit: 50,
		SortKey:  func(r rbac.Role) string { return r.Name },
		Filters: map[string]func(rbac.Role) string{
			"name": func(r rbac.Role) string { return r.Name },
		},
		Flat: func(r rbac.Role) any { return FlatView{ID: r.ID, Name: r.Name} },
		Full: func(r rbac.Role) any { return toView(r) },
	}
}

// ResolvePermissions looks up every id. Duplicates collapse onto their first
// occurrence; the first unknown id fails the whole call.
func (s *Service) ResolvePermissions(ctx context.Context, ids []int64) ([]rbac.Permission, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]rbac.Permission, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p, err := s.perms.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Create stores a role with at least one existing permission.
func (s *Service) Create(ctx context.Context, in CreateInput) (rbac.Role, error) {
	if len(in.Permission) == 0 {
		return rbac.Role{}, &shared.ValidationError{Fields: map[string]string{"permission": "must contain at least 1 item(s)"}}
	}
	perms, err := s.ResolvePermissions(ctx, in.Permission)
	if err != nil {
		return rbac.Role{}, err
	}
	role, err := s.repo.Create(ctx, rbac.Role{Name: in.Name, Description: in.Description, Permissions: perms})
	if err != nil {
		return rbac.Role{}, err
	}
	s.names.Set(role.Name, role.ID, cache.DefaultExpiration)
	s.record(ctx, "role.create", role)
	return role, nil
}

// List runs a listing query over every role.
func (s *Service) List(ctx context.Context, q listing.Query) (listing.Envelope, error) {
	graph, err := s.repo.Graph(ctx)
	if err != nil {
		return listing.Envelope{}, err
	}
	return listing.Run(graph.Roles(), q, Source())
}

// Detail returns the single-element detail body of a role.
func (s *Service) Detail(ctx context.Context, id int64) ([]View, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return []View{toView(role)}, nil
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (rbac.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return rbac.Role{}, err
	}
	previousName := role.Name
	if in.Name != nil {
		role.Name = *in.Name
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	replace := in.Permission != nil
	if replace {
		if len(in.Permission) == 0 {
			return rbac.Role{}, &shared.ValidationError{Fields: map[string]string{"permission": "must contain at least 1 item(s)"}}
		}
		if role.Permissions, err = s.ResolvePermissions(ctx, in.Permission); err != nil {
			return rbac.Role{}, err
		}
	}
	updated, err := s.repo.Update(ctx, role, replace)
	if err != nil {
		return rbac.Role{}, err
	}
	s.names.Delete(previousName)
	s.record(ctx, "role.update", updated)
	return updated, nil
}

// FindByID returns a role with its permissions.
func (s *Service) FindByID(ctx context.Context, id int64) (rbac.Role, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByName resolves a role by exact name. Name to id mappings are cached.
func (s *Service) FindByName(ctx context.Context, name string) (rbac.Role, error) {
	if cached, ok := s.names.Get(name); ok {
		role, err := s.repo.FindByID(ctx, cached.(int64))
		if err == nil && role.Name == name {
			return role, nil
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return rbac.Role{}, err
		}
		s.names.Delete(name)
	}
	id, err := s.repo.FindIDByName(ctx, name)
	if err != nil {
		return rbac.Role{}, err
	}
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return rbac.Role{}, err
	}
	s.names.Set(name, id, cache.DefaultExpiration)
	return role, nil
}

func (s *Service) record(ctx context.Context, action string, role rbac.Role) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  rbac.PrincipalID(ctx),
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(role.ID, 10),
		Meta:     map[string]any{"name": role.Name, "permissions": role.PermissionNames()},
	})
	if err != nil {
		s.logger.Warn("audit role", slog.String("action", action), slog.Any("error", err))
	}
}
