package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the staff roles known to the RBAC middleware.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleModerator  UserRole = "MODERATOR"
)

// StaffRoles may review and moderate submissions.
var StaffRoles = []UserRole{RoleSuperAdmin, RoleAdmin, RoleModerator}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	for _, role := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// JWTClaims represents the JWT payload for staff access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
