package auth

import "sync"

// Permission is a single bit in the 16-bit RBAC mask.
type Permission uint16

const (
	PermReadMarket Permission = 1 << iota
	PermReadOrders
	PermReadAccount
	PermReadConfig
	PermWriteOrders
	PermWriteCancel
	PermAdminKeys
	PermAdminUsers
	PermAdminConfig
)

var permissionNames = map[Permission]string{
	PermReadMarket:  "read_market",
	PermReadOrders:  "read_orders",
	PermReadAccount: "read_account",
	PermReadConfig:  "read_config",
	PermWriteOrders: "write_orders",
	PermWriteCancel: "write_cancel",
	PermAdminKeys:   "admin_keys",
	PermAdminUsers:  "admin_users",
	PermAdminConfig: "admin_config",
}

var nameToPermission = func() map[string]Permission {
	m := make(map[string]Permission, len(permissionNames))
	for p, name := range permissionNames {
		m[name] = p
	}
	return m
}()

// String returns the permission's canonical name, or "" if p is not a
// single recognized bit.
func (p Permission) String() string {
	return permissionNames[p]
}

// ParsePermission looks up a permission by its canonical name.
func ParsePermission(name string) (Permission, bool) {
	p, ok := nameToPermission[name]
	return p, ok
}

// AllPermissions returns every defined permission bit, in ascending order.
func AllPermissions() []Permission {
	return []Permission{
		PermReadMarket,
		PermReadOrders,
		PermReadAccount,
		PermReadConfig,
		PermWriteOrders,
		PermWriteCancel,
		PermAdminKeys,
		PermAdminUsers,
		PermAdminConfig,
	}
}

// RoleStore maps role names to permission masks.
type RoleStore struct {
	mu    sync.RWMutex
	roles map[string]Permission
}

// NewRoleStore returns an empty role store.
func NewRoleStore() *RoleStore {
	return &RoleStore{roles: make(map[string]Permission)}
}

// SetRole assigns (or replaces) the permission mask for a role name.
func (s *RoleStore) SetRole(name string, mask Permission) {
	s.mu.Lock()
	s.roles[name] = mask
	s.mu.Unlock()
}

// Mask returns the permission mask for a role name.
func (s *RoleStore) Mask(name string) (Permission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mask, ok := s.roles[name]
	return mask, ok
}

// Names returns every registered role name.
func (s *RoleStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.roles))
	for name := range s.roles {
		names = append(names, name)
	}
	return names
}

// UserStore maps user ids to their assigned role names.
type UserStore struct {
	mu    sync.RWMutex
	roles map[string]map[string]struct{}
}

// NewUserStore returns an empty user→roles store.
func NewUserStore() *UserStore {
	return &UserStore{roles: make(map[string]map[string]struct{})}
}

// AssignRole grants userID the named role.
func (s *UserStore) AssignRole(userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.roles[userID]
	if !ok {
		set = make(map[string]struct{})
		s.roles[userID] = set
	}
	set[role] = struct{}{}
}

// RevokeRole removes a role previously granted to userID.
func (s *UserStore) RevokeRole(userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.roles[userID]; ok {
		delete(set, role)
	}
}

// Roles returns the role names assigned to userID.
func (s *UserStore) Roles(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.roles[userID]
	names := make([]string, 0, len(set))
	for role := range set {
		names = append(names, role)
	}
	return names
}

// RBAC composes a RoleStore and UserStore into effective permission checks.
type RBAC struct {
	roles *RoleStore
	users *UserStore
}

// NewRBAC builds an RBAC view over the given stores.
func NewRBAC(roles *RoleStore, users *UserStore) *RBAC {
	return &RBAC{roles: roles, users: users}
}

// EffectiveMask ORs together the masks of every role assigned to userID.
func (r *RBAC) EffectiveMask(userID string) Permission {
	var mask Permission
	for _, role := range r.users.Roles(userID) {
		if m, ok := r.roles.Mask(role); ok {
			mask |= m
		}
	}
	return mask
}

// HasPermission reports whether userID's effective mask includes p.
func (r *RBAC) HasPermission(userID string, p Permission) bool {
	return r.EffectiveMask(userID)&p != 0
}
