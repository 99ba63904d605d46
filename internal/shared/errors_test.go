package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("Permission", "id", 5)
	assert.EqualError(t, err, "Permission with id = 5 not found.")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrNotFound)
}

func TestValidationErrorIsSortedAndInvalidArgument(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"name": "is required", "email": "must be a valid email"}}
	assert.EqualError(t, err, "validation failed: email: must be a valid email; name: is required")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIntegrityError(t *testing.T) {
	cause := errors.New("duplicate key")
	err := &IntegrityError{Field: "email", Message: "Key (email)=(a@b.c) already exists.", Err: cause}
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, map[string]string{"email": "Key (email)=(a@b.c) already exists."}, err.Fields())

	anonymous := &IntegrityError{Message: "violation"}
	assert.Equal(t, map[string]string{"error": "violation"}, anonymous.Fields())
	assert.EqualError(t, anonymous, "violation")
}

func TestUserSafeMessage(t *testing.T) {
	assert.Empty(t, UserSafeMessage(nil))
	assert.Equal(t, "invalid credentials", UserSafeMessage(ErrInvalidCredentials))
	assert.Equal(t, "invalid argument: limit too large", UserSafeMessage(InvalidArgument("limit too large")))
	assert.Equal(t, "Unexpected Error", UserSafeMessage(errors.New("pq: connection refused")))
}

func TestIsDomainError(t *testing.T) {
	for _, err := range []error{ErrNotFound, ErrForbidden, ErrUnauthenticated, NotFound("Role", "name", "x"), &ValidationError{}} {
		assert.True(t, IsDomainError(err), err.Error())
	}
	assert.False(t, IsDomainError(context.DeadlineExceeded))
}

func TestAuditLogValidation(t *testing.T) {
	assert.Error(t, AuditLog{Action: "role.create", Entity: "role"}.validate())
	assert.NoError(t, AuditLog{Action: "role.create", Entity: "role", EntityID: "1"}.validate())
	assert.NoError(t, NopAudit{}.Record(context.Background(), AuditLog{}))
	assert.Error(t, (*AuditLogger)(nil).Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
}
