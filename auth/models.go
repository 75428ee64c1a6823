package auth

import "time"

// Account is the credential-bearing view of a users row. Role values follow
// the user package enumeration (buyer, agent, admin).
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// RegisterRequest contains account registration data supplied by callers.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
