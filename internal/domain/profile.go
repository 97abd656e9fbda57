package domain

import "time"

// Role differentiates managers from requesters.
type Role string

const (
	RoleManager   Role = "manager"
	RoleRequester Role = "requester"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleRequester
}

// Profile is an authenticated account.
type Profile struct {
	ID           string
	Name         string
	Email        string
	Phone        *string
	Organ        *string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsManager reports whether the profile has the manager role.
func (p *Profile) IsManager() bool {
	return p != nil && p.Role == RoleManager
}
