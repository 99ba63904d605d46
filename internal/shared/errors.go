package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidArgument indicates a client supplied an unusable value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIntegrity indicates a storage constraint rejected a write.
	ErrIntegrity = errors.New("integrity violation")
	// ErrUnauthenticated indicates the request carries no usable identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the identity lacks the required permission.
	ErrForbidden = errors.New("forbidden")
)

// IntegrityError carries the offending field of a rejected write.
type IntegrityError struct {
	Field   string
	Message string
	Err     error
}

func (e *IntegrityError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrIntegrity and the underlying driver error.
func (e *IntegrityError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIntegrity}
	}
	return []error{ErrIntegrity, e.Err}
}

// Fields returns the field-keyed message map exposed to clients.
func (e *IntegrityError) Fields() map[string]string {
	key := e.Field
	if key == "" {
		key = "error"
	}
	return map[string]string{key: e.Message}
}

// ValidationError groups per-field input problems. It matches ErrInvalidArgument.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes ErrInvalidArgument.
func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// InvalidArgument wraps ErrInvalidArgument with a message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

// NotFound reports a missing entity looked up by field, e.g.
// "Permission with id = 5 not found.". It matches ErrNotFound.
func NotFound(entity, field string, value any) error {
	return &notFoundError{msg: fmt.Sprintf("%s with %s = %v not found.", entity, field, value)}
}

// IsDomainError reports whether err belongs to the client-facing taxonomy.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrIntegrity) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrForbidden)
}

// UserSafeMessage strips internal details from an error before showing it to clients.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsDomainError(err):
		return err.Error()
	default:
		return "Unexpected Error"
	}
}
