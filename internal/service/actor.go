package service

import "github.com/campushub/codeathon-api/internal/models"

// Actor identifies the authenticated caller of a service operation. Handlers
// build it from JWT claims; services re-check ownership against it on every
// mutation rather than trusting route-level role gates alone.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
