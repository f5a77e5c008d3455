// Package user defines the portal user account model.
package user

import "time"

// Roles. The role is the sole authorization discriminant in the portal.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is a registered portal account.
type User struct {
	ID           string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the recognised roles.
func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}
