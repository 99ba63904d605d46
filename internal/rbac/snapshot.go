package rbac

// Snapshot is an id-indexed view of the role graph. Roles reference
// permissions and principals reference roles by id only, so the graph can be
// loaded in any order and queried without back-references.
type Snapshot struct {
	permissions   map[int64]Permission
	roles         map[int64]Role
	roleOrder     []int64
	rolePerms     map[int64][]int64
	principalRole map[int64]int64
}

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		permissions:   map[int64]Permission{},
		roles:         map[int64]Role{},
		rolePerms:     map[int64][]int64{},
		principalRole: map[int64]int64{},
	}
}

// AddPermission indexes a permission.
func (s *Snapshot) AddPermission(p Permission) {
	s.permissions[p.ID] = p
}

// AddRole indexes a role. Any permissions set on r are ignored; use Grant.
func (s *Snapshot) AddRole(r Role) {
	if _, ok := s.roles[r.ID]; !ok {
		s.roleOrder = append(s.roleOrder, r.ID)
	}
	r.Permissions = nil
	s.roles[r.ID] = r
}

// Grant links a permission to a role. Duplicate grants are ignored.
func (s *Snapshot) Grant(roleID, permissionID int64) {
	for _, id := range s.rolePerms[roleID] {
		if id == permissionID {
			return
		}
	}
	s.rolePerms[roleID] = append(s.rolePerms[roleID], permissionID)
}

// Assign records the role held by a principal.
func (s *Snapshot) Assign(principalID, roleID int64) {
	s.principalRole[principalID] = roleID
}

// Permission looks up a permission by id.
func (s *Snapshot) Permission(id int64) (Permission, bool) {
	p, ok := s.permissions[id]
	return p, ok
}

// Role materialises a role with its permissions in grant order. Grants to
// unknown permission ids are skipped.
func (s *Snapshot) Role(id int64) (Role, bool) {
	r, ok := s.roles[id]
	if !ok {
		return Role{}, false
	}
	grants := s.rolePerms[id]
	r.Permissions = make([]Permission, 0, len(grants))
	for _, pid := range grants {
		if p, ok := s.permissions[pid]; ok {
			r.Permissions = append(r.Permissions, p)
		}
	}
	return r, true
}

// Roles materialises every role in insertion order.
func (s *Snapshot) Roles() []Role {
	out := make([]Role, 0, len(s.roleOrder))
	for _, id := range s.roleOrder {
		r, _ := s.Role(id)
		out = append(out, r)
	}
	return out
}

// RoleOf returns the role assigned to a principal.
func (s *Snapshot) RoleOf(principalID int64) (Role, bool) {
	roleID, ok := s.principalRole[principalID]
	if !ok {
		return Role{}, false
	}
	return s.Role(roleID)
}

// AuthoritiesOf derives the permission names of a principal. Unknown
// principals have none.
func (s *Snapshot) AuthoritiesOf(principalID int64) []string {
	r, ok := s.RoleOf(principalID)
	if !ok {
		return []string{}
	}
	return r.PermissionNames()
}
