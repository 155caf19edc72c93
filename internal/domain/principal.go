package domain

import "time"

// RoleAdmin is the only role a session can carry.
const RoleAdmin = "admin"

// Principal is the verified identity behind a session token.
type Principal struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
