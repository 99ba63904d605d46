package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
	"github.com/odyssey-erp/commerce-admin/internal/token"
)

var guestRole = rbac.Role{ID: 2, Name: "Guest", Permissions: []rbac.Permission{{ID: 1, Name: shared.PermReadAll}}}

type memoryRepository struct {
	users  map[string]rbac.Principal
	nextID int64
	err    error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: map[string]rbac.Principal{}, nextID: 1}
}

func (m *memoryRepository) FindByEmail(_ context.Context, email string) (rbac.Principal, error) {
	if m.err != nil {
		return rbac.Principal{}, m.err
	}
	p, ok := m.users[email]
	if !ok {
		return rbac.Principal{}, shared.NotFound("User", "email", email)
	}
	return p, nil
}

func (m *memoryRepository) CreateUser(_ context.Context, email, hash string, roleID int64) (int64, error) {
	if _, ok := m.users[email]; ok {
		return 0, &shared.IntegrityError{Field: "email", Message: "Key (email)=(" + email + ") already exists."}
	}
	id := m.nextID
	m.nextID++
	role := guestRole
	role.ID = roleID
	m.users[email] = rbac.Principal{ID: id, Email: email, PasswordHash: hash, Role: role}
	return id, nil
}

type stubRoles struct {
	err error
}

func (s stubRoles) FindByName(_ context.Context, name string) (rbac.Role, error) {
	if s.err != nil {
		return rbac.Role{}, s.err
	}
	if name != guestRole.Name {
		return rbac.Role{}, shared.NotFound("Role", "name", name)
	}
	return guestRole, nil
}

type recordingQueue struct {
	emails []string
	err    error
}

func (q *recordingQueue) EnqueueWelcomeEmail(_ context.Context, email string) error {
	q.emails = append(q.emails, email)
	return q.err
}

type loginCounter struct{ ok, failed int }

func (c *loginCounter) ObserveLogin(ok bool) {
	if ok {
		c.ok++
		return
	}
	c.failed++
}

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	secret := base64.StdEncoding.EncodeToString([]byte("auth-service-test-secret-32-bytes"))
	svc, err := token.NewService(secret, time.Hour)
	require.NoError(t, err)
	return svc
}

type fixture struct {
	svc      *Service
	repo     *memoryRepository
	queue    *recordingQueue
	observer *loginCounter
	tokens   *token.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		repo:     newMemoryRepository(),
		queue:    &recordingQueue{},
		observer: &loginCounter{},
		tokens:   newTokenService(t),
	}
	f.svc = NewService(Config{
		Repo:     f.repo,
		Roles:    stubRoles{},
		Tokens:   f.tokens,
		Welcome:  f.queue,
		Observer: f.observer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.svc.bcryptCost = bcrypt.MinCost
	return f
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Register(context.Background(), RegisterInput{Email: " ann@example.com ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", p.Email)
	assert.Equal(t, "Guest", p.Role.Name)
	assert.NotEqual(t, "s3cret", p.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("s3cret")))
	assert.Equal(t, []string{"ann@example.com"}, f.queue.emails)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ann@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "ann@example.com", Password: "y"})
	var integrity *shared.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "email", integrity.Field)
	assert.Len(t, f.queue.emails, 1)
}

func TestRegisterSurvivesQueueFailure(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errors.New("redis down")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ann@example.com", Password: "x"})
	assert.NoError(t, err)
}

func TestRegisterMissingDefaultRoleIsInternal(t *testing.T) {
	f := newFixture(t)
	f.svc.defaultRole = "Nobody"

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ann@example.com", Password: "x"})
	require.Error(t, err)
	assert.False(t, shared.IsDomainError(err))
}

func TestLoginIssuesTokenWithAuthorities(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ann@example.com", Password: "s3cret"})
	require.NoError(t, err)

	raw, err := f.svc.Login(context.Background(), LoginInput{Email: "ann@example.com", Password: "s3cret"})
	require.NoError(t, err)

	claims, err := f.tokens.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", claims.Subject)
	assert.Equal(t, []string{shared.PermReadAll}, claims.Permissions)
	assert.Equal(t, 1, f.observer.ok)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ann@example.com", Password: "s3cret"})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "bob@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	f.repo.err = errors.New("connection reset")
	_, err = f.svc.Login(context.Background(), LoginInput{Email: "ann@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	assert.Equal(t, 3, f.observer.failed)
	assert.Zero(t, f.observer.ok)
}
