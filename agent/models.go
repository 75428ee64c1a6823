package agent

import "time"

// Agent mirrors the agents table joined with the owning user's username.
// Exactly one user owns each agent; the username is denormalized into the
// domain struct because every caller wants it alongside the license data.
type Agent struct {
	ID        int64
	UserID    int64
	Username  string
	LicenseNo string
	Region    string
	CreatedAt time.Time
}

// CreateParams contains write parameters for registering an agent.
type CreateParams struct {
	Username  string
	LicenseNo string
	Region    string
}

// UpdateParams carries mutable agent fields. Empty strings leave the stored
// value untouched; Username renames the owning user.
type UpdateParams struct {
	Username  string
	LicenseNo string
	Region    string
}
