package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	// Admin permissions
	PermissionAdminRead  = "admin:read"
	PermissionAdminWrite = "admin:write"

	// User permissions
	PermissionWalletRead     = "wallet:read"
	PermissionWalletWrite    = "wallet:write"
	PermissionStockBuy       = "stock:buy"
	PermissionSaleWrite      = "sale:write"
	PermissionFundingRequest = "funding:request"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint     `json:"user_id"`
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	Perms  []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission.
// Tokens minted without an explicit permission list carry their role's
// defaults.
func (c *UserClaims) HasPermission(permission string) bool {
	perms := c.Perms
	if len(perms) == 0 {
		perms = DefaultPermissions(c.Role)
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsAdmin is the single capability check used by the admin-only routes
// (freeze, funding confirmation, balance adjustments).
func (c *UserClaims) IsAdmin() bool {
	return c.Role == "admin" || c.HasPermission(PermissionAdminWrite)
}

// DefaultPermissions returns permissions granted per role.
func DefaultPermissions(role string) []string {
	switch role {
	case "admin":
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionStockBuy,
			PermissionSaleWrite,
			PermissionFundingRequest,
			PermissionAdminRead,
			PermissionAdminWrite,
		}
	case "user":
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionStockBuy,
			PermissionSaleWrite,
			PermissionFundingRequest,
		}
	default:
		return []string{}
	}
}
