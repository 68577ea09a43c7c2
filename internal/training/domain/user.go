package domain

import "time"

// Platform roles. A user carries a set of these; ADMIN and ORGADMIN bypass
// the training gates entirely.
const (
	RoleAdmin    = "ADMIN"
	RoleOrgAdmin = "ORGADMIN"
	RoleTrainer  = "TRAINER"
	RoleTrainee  = "TRAINEE"
	RoleUser     = "USER"
)

type User struct {
	ID            string
	Email         string // case-normalized, unique
	Username      string
	Name          string
	PasswordHash  string // argon2 encoded
	Roles         []string
	EmailVerified bool
	ExpiresAt     *time.Time // generated trainee accounts only
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// WithRole returns the user's role set with role added, without duplicates.
func WithRole(roles []string, role string) []string {
	for _, r := range roles {
		if r == role {
			return roles
		}
	}
	return append(roles, role)
}

// WithoutRole returns the user's role set with role removed.
func WithoutRole(roles []string, role string) []string {
	out := roles[:0:0]
	for _, r := range roles {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}
