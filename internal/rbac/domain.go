package rbac

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []Permission
}

// PermissionNames returns the names of the role's permissions in order.
func (r Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// Principal is a user account as seen by the authorization layer.
// Exactly one role is assigned to each principal.
type Principal struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
}

// Authorities are derived from the role, never stored on the principal.
func (p Principal) Authorities() []string {
	return p.Role.PermissionNames()
}

// Identity is the per-request authentication state. The zero value is anonymous.
type Identity struct {
	Principal   *Principal
	Authorities []string
}

// Authenticated reports whether a principal is bound.
func (i Identity) Authenticated() bool {
	return i.Principal != nil
}

// Has reports whether the identity carries the named authority.
func (i Identity) Has(permission string) bool {
	for _, a := range i.Authorities {
		if a == permission {
			return true
		}
	}
	return false
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Deny is the zero Decision.
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}
