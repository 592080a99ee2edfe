package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionNameRoundTrip(t *testing.T) {
	tests := []Permission{
		PermReadMarket, PermReadOrders, PermReadAccount, PermReadConfig,
		PermWriteOrders, PermWriteCancel, PermAdminKeys, PermAdminUsers, PermAdminConfig,
	}
	for _, p := range tests {
		name := p.String()
		assert.NotEmpty(t, name)
		parsed, ok := ParsePermission(name)
		assert.True(t, ok)
		assert.Equal(t, p, parsed)
	}
}

func TestParsePermissionUnknown(t *testing.T) {
	_, ok := ParsePermission("not_a_real_permission")
	assert.False(t, ok)
}

func TestRBACEffectiveMaskCombinesRoles(t *testing.T) {
	roles := NewRoleStore()
	roles.SetRole("trader", PermReadMarket|PermReadOrders|PermWriteOrders)
	roles.SetRole("viewer", PermReadAccount)

	users := NewUserStore()
	users.AssignRole("user-1", "trader")
	users.AssignRole("user-1", "viewer")

	rbac := NewRBAC(roles, users)
	mask := rbac.EffectiveMask("user-1")

	assert.True(t, mask&PermReadMarket != 0)
	assert.True(t, mask&PermReadAccount != 0)
	assert.False(t, mask&PermAdminKeys != 0)
}

func TestRBACHasPermission(t *testing.T) {
	roles := NewRoleStore()
	roles.SetRole("trader", PermWriteOrders)
	users := NewUserStore()
	users.AssignRole("user-1", "trader")

	rbac := NewRBAC(roles, users)

	assert.True(t, rbac.HasPermission("user-1", PermWriteOrders))
	assert.False(t, rbac.HasPermission("user-1", PermAdminUsers))
	assert.False(t, rbac.HasPermission("unknown-user", PermWriteOrders))
}

func TestUserStoreRevokeRole(t *testing.T) {
	users := NewUserStore()
	users.AssignRole("user-1", "trader")
	users.RevokeRole("user-1", "trader")

	assert.Empty(t, users.Roles("user-1"))
}
