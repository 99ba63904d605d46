package rbac

// Require decides whether id may perform an operation guarded by permission.
// Anonymous identities are always denied.
func Require(id Identity, permission string) Decision {
	if !id.Authenticated() {
		return Deny
	}
	if id.Has(permission) {
		return Allow
	}
	return Deny
}
