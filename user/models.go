package user

import "time"

type Role string

const (
	RoleBuyer Role = "buyer"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether role is one of the enumerated user roles.
func ValidRole(role Role) bool {
	switch role {
	case RoleBuyer, RoleAgent, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the domain representation of an account row. It mirrors the users
// table and carries no JSON annotations so it can be reused by different
// presentation layers.
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// CreateParams contains write parameters for creating users.
type CreateParams struct {
	Username string
	Email    string
	Role     Role
}

// UpdateParams carries the mutable user fields for an update. Empty strings
// leave the stored value untouched.
type UpdateParams struct {
	Username string
	Email    string
	Role     Role
}
