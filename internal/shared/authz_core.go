package shared

// Core platform permissions.
const (
	PermReadAll  = "read.all"
	PermWriteAll = "write.all"
)

// DefaultRoleName is assigned to self-registered accounts.
const DefaultRoleName = "Guest"

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermReadAll,
		PermWriteAll,
	}
}
