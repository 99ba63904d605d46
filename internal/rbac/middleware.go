package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/commerce-admin/internal/observability"
	"github.com/odyssey-erp/commerce-admin/internal/platform/httpx"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
	"github.com/odyssey-erp/commerce-admin/internal/token"
)

// PrincipalFinder looks principals up by their token subject.
type PrincipalFinder interface {
	FindByEmail(ctx context.Context, email string) (Principal, error)
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(raw string) (token.Claims, error)
	IsValid(raw, expectedIdentifier string) bool
}

// GateObserver receives one outcome per authenticated request.
type GateObserver interface {
	ObserveGate(outcome string)
}

// Middleware wires authentication and authorization helpers for HTTP handlers.
type Middleware struct {
	Tokens     TokenValidator
	Principals PrincipalFinder
	Logger     *slog.Logger
	Observer   GateObserver
}

// Authenticate resolves the bearer token on the request into an Identity.
// Requests without a usable token continue anonymously; it never rejects.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		raw := BearerToken(r)
		if raw == "" {
			m.observe(observability.GateAnonymous)
			next.ServeHTTP(w, r)
			return
		}
		id, ok := m.resolve(r.Context(), raw)
		if !ok {
			m.observe(observability.GateRejected)
			next.ServeHTTP(w, r)
			return
		}
		m.observe(observability.GateAuthenticated)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m Middleware) resolve(ctx context.Context, raw string) (Identity, bool) {
	claims, err := m.Tokens.Validate(raw)
	if err != nil {
		m.debug("rbac token rejected", slog.Any("error", err))
		return Identity{}, false
	}
	principal, err := m.Principals.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && m.Logger != nil {
			m.Logger.Error("rbac principal lookup", slog.String("subject", claims.Subject), slog.Any("error", err))
		}
		return Identity{}, false
	}
	if !m.Tokens.IsValid(raw, principal.Email) {
		return Identity{}, false
	}
	return Identity{Principal: &principal, Authorities: claims.Permissions}, true
}

// RequirePermission rejects requests whose identity lacks the permission:
// 401 when anonymous, 403 when authenticated without it.
func (m Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if Require(id, permission) != Allow {
				m.debug("rbac denied", slog.String("permission", permission), slog.Int64("principal", id.Principal.ID))
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

func (m Middleware) observe(outcome string) {
	if m.Observer != nil {
		m.Observer.ObserveGate(outcome)
	}
}

func (m Middleware) debug(msg string, attrs ...any) {
	if m.Logger != nil {
		m.Logger.Debug(msg, attrs...)
	}
}
