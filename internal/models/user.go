package models

import "time"

// UserRole drives route-level RBAC. Students submit, proctors decide for
// their own proctees, admins see everything.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleProctor UserRole = "PROCTOR"
	RoleStudent UserRole = "STUDENT"
)

// User is a login account. Role-specific data hangs off Student or Proctor
// profiles keyed by UserID.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination is the list-response metadata block.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
