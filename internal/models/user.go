package models

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

var roleTiers = map[UserRole]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// IsValidRole reports whether the role is one of the known tiers.
func IsValidRole(role UserRole) bool {
	_, ok := roleTiers[role]
	return ok
}

// HasAtLeast reports whether role meets or exceeds the required tier.
func HasAtLeast(role, required UserRole) bool {
	return roleTiers[role] >= roleTiers[required]
}

// User binds an authenticated identity to exactly one account. The ID is the
// identity provider's subject id; at most one User exists per identity.
type User struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Role      UserRole  `json:"role"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
