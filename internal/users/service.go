package users

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/commerce-admin/internal/listing"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// RoleResolver resolves role ids.
type RoleResolver interface {
	FindByID(ctx context.Context, id int64) (rbac.Role, error)
}

// Service handles user business logic.
type Service struct {
	repo       Repository
	roles      RoleResolver
	audit      shared.AuditRecorder
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds Service instance. A nil audit recorder discards entries.
func NewService(repo Repository, roles RoleResolver, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, audit: audit, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// Source describes how users are listed.
func Source() listing.Source[rbac.Principal] {
	return listing.Source[rbac.Principal]{
		Context:  ListContext,
		MaxLimit: 100,
		SortKey:  func(p rbac.Principal) string { return p.Email },
		Filters: map[string]func(rbac.Principal) string{
			"email": func(p rbac.Principal) string { return p.Email },
			"roles": func(p rbac.Principal) string { return p.Role.Name },
		},
		Flat: func(p rbac.Principal) any { return FlatView{ID: p.ID, Email: p.Email} },
		Full: func(p rbac.Principal) any { return toView(p) },
	}
}

// List runs a listing query over every user.
func (s *Service) List(ctx context.Context, q listing.Query) (listing.Envelope, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return listing.Envelope{}, err
	}
	return listing.Run(all, q, Source())
}

// Update applies the non-nil fields of in. Passwords are re-hashed and a new
// role must exist.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (rbac.Principal, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return rbac.Principal{}, err
	}
	changed := []string{}
	if in.Email != nil {
		p.Email = *in.Email
		changed = append(changed, "email")
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return rbac.Principal{}, err
		}
		p.PasswordHash = string(hash)
		changed = append(changed, "password")
	}
	if in.Role != nil {
		role, err := s.roles.FindByID(ctx, *in.Role)
		if err != nil {
			return rbac.Principal{}, err
		}
		p.Role = role
		changed = append(changed, "role")
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return rbac.Principal{}, err
	}
	s.record(ctx, p, changed)
	return p, nil
}

func (s *Service) record(ctx context.Context, p rbac.Principal, changed []string) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  rbac.PrincipalID(ctx),
		Action:   "user.update",
		Entity:   "user",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta:     map[string]any{"fields": changed, "role": p.Role.Name},
	})
	if err != nil {
		s.logger.Warn("audit user", slog.Int64("user_id", p.ID), slog.Any("error", err))
	}
}
