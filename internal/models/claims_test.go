package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserClaims_HasPermission(t *testing.T) {
	t.Run("explicit permission list wins", func(t *testing.T) {
		c := UserClaims{Role: "user", Perms: []string{PermissionWalletRead}}
		assert.True(t, c.HasPermission(PermissionWalletRead))
		assert.False(t, c.HasPermission(PermissionStockBuy), "explicit list must not widen to role defaults")
	})

	t.Run("empty list falls back to role defaults", func(t *testing.T) {
		c := UserClaims{Role: "user"}
		assert.True(t, c.HasPermission(PermissionStockBuy))
		assert.True(t, c.HasPermission(PermissionFundingRequest))
		assert.False(t, c.HasPermission(PermissionAdminWrite))
	})

	t.Run("unknown role has no permissions", func(t *testing.T) {
		c := UserClaims{Role: "service"}
		assert.False(t, c.HasPermission(PermissionWalletRead))
	})
}

func TestUserClaims_IsAdmin(t *testing.T) {
	assert.True(t, (&UserClaims{Role: "admin"}).IsAdmin())
	assert.True(t, (&UserClaims{Role: "user", Perms: []string{PermissionAdminWrite}}).IsAdmin())
	assert.False(t, (&UserClaims{Role: "user"}).IsAdmin())
}

func TestDefaultPermissions(t *testing.T) {
	admin := DefaultPermissions("admin")
	assert.Contains(t, admin, PermissionAdminWrite)
	assert.Contains(t, admin, PermissionStockBuy)

	user := DefaultPermissions("user")
	assert.NotContains(t, user, PermissionAdminWrite)
	assert.Contains(t, user, PermissionSaleWrite)

	assert.Empty(t, DefaultPermissions("other"))
}
