package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
	"github.com/odyssey-erp/commerce-admin/internal/token"
)

// RoleFinder resolves the role assigned at registration.
type RoleFinder interface {
	FindByName(ctx context.Context, name string) (rbac.Role, error)
}

// TokenIssuer signs tokens for authenticated principals.
type TokenIssuer interface {
	Issue(sub token.Subject) (string, error)
}

// WelcomeQueue schedules the registration greeting.
type WelcomeQueue interface {
	EnqueueWelcomeEmail(ctx context.Context, email string) error
}

// LoginObserver records login outcomes.
type LoginObserver interface {
	ObserveLogin(ok bool)
}

// Config collects Service dependencies. Welcome, Observer and Audit are optional.
type Config struct {
	Repo        Repository
	Roles       RoleFinder
	Tokens      TokenIssuer
	Welcome     WelcomeQueue
	Observer    LoginObserver
	Audit       shared.AuditRecorder
	Logger      *slog.Logger
	DefaultRole string
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	roles       RoleFinder
	tokens      TokenIssuer
	welcome     WelcomeQueue
	observer    LoginObserver
	audit       shared.AuditRecorder
	logger      *slog.Logger
	defaultRole string
	bcryptCost  int
}

// NewService constructs a new Service.
func NewService(cfg Config) *Service {
	if cfg.Audit == nil {
		cfg.Audit = shared.NopAudit{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = shared.DefaultRoleName
	}
	return &Service{
		repo:        cfg.Repo,
		roles:       cfg.Roles,
		tokens:      cfg.Tokens,
		welcome:     cfg.Welcome,
		observer:    cfg.Observer,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
		defaultRole: cfg.DefaultRole,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// Register creates an account holding the default role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (rbac.Principal, error) {
	email := strings.TrimSpace(in.Email)
	role, err := s.roles.FindByName(ctx, s.defaultRole)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("auth: default role %q: %w", s.defaultRole, stripNotFound(err))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("auth: hash password: %w", err)
	}
	id, err := s.repo.CreateUser(ctx, email, string(hash), role.ID)
	if err != nil {
		return rbac.Principal{}, err
	}
	p := rbac.Principal{ID: id, Email: email, PasswordHash: string(hash), Role: role}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  id,
		Action:   "user.register",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"email": email, "role": role.Name},
	}); err != nil {
		s.logger.Warn("audit register", slog.Any("error", err))
	}
	if s.welcome != nil {
		if err := s.welcome.EnqueueWelcomeEmail(ctx, email); err != nil {
			s.logger.Warn("enqueue welcome email", slog.String("email", email), slog.Any("error", err))
		}
	}
	return p, nil
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (rbac.Principal, error) {
	p, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("load principal", slog.Any("error", err))
		}
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	return p, nil
}

// Login authenticates and issues a token carrying the principal's authorities.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	p, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		s.observe(false)
		return "", err
	}
	raw, err := s.tokens.Issue(token.Subject{Identifier: p.Email, Permissions: p.Authorities()})
	if err != nil {
		s.observe(false)
		return "", fmt.Errorf("auth: issue token: %w", err)
	}
	s.observe(true)
	return raw, nil
}

func (s *Service) observe(ok bool) {
	if s.observer != nil {
		s.observer.ObserveLogin(ok)
	}
}

// stripNotFound keeps a missing default role from reading as a client 404.
func stripNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return errors.New(err.Error())
	}
	return err
}
