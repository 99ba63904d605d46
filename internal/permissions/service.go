package permissions

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/commerce-admin/internal/listing"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Service wraps permission registry rules.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service. A nil audit recorder discards entries.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Source describes how permissions are listed.
func Source() listing.Source[rbac.Permission] {
	return listing.Source[rbac.Permission]{
		Context:  ListContext,
		MaxLimit: 50,
		SortKey:  func(p rbac.Permission) string { return p.Name },
		Filters: map[string]func(rbac.Permission) string{
			"name": func(p rbac.Permission) string { return p.Name },
		},
		Flat: func(p rbac.Permission) any { return FlatView{ID: p.ID, Name: p.Name} },
		Full: func(p rbac.Permission) any { return toView(p) },
	}
}

// Create registers a new permission. Duplicate names surface as integrity errors.
func (s *Service) Create(ctx context.Context, in CreateInput) (rbac.Permission, error) {
	p, err := s.repo.Create(ctx, in.Name, in.Description)
	if err != nil {
		return rbac.Permission{}, err
	}
	s.record(ctx, "permission.create", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

// List runs a listing query over every permission.
func (s *Service) List(ctx context.Context, q listing.Query) (listing.Envelope, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return listing.Envelope{}, err
	}
	return listing.Run(all, q, Source())
}

// FindByID returns a permission or a not-found error.
func (s *Service) FindByID(ctx context.Context, id int64) (rbac.Permission, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (rbac.Permission, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return rbac.Permission{}, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return rbac.Permission{}, err
	}
	s.record(ctx, "permission.update", id, map[string]any{"name": updated.Name})
	return updated, nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  rbac.PrincipalID(ctx),
		Action:   action,
		Entity:   "permission",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit permission", slog.String("action", action), slog.Any("error", err))
	}
}
