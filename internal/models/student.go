package models

import "time"

// Student represents a learner tracked by the participation system. Credits is
// the running ledger total; it is mutated only by participation decisions.
type Student struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	RegisterNo   string    `db:"register_no" json:"register_no"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Department   string    `db:"department" json:"department"`
	YearOfStudy  int       `db:"year_of_study" json:"year_of_study"`
	CGPA         float64   `db:"cgpa" json:"cgpa"`
	Credits      int       `db:"credits" json:"credits"`
	ProctorID    *string   `db:"proctor_id" json:"proctor_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	Year       *int
	ProctorID  string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Proctor represents a staff member holding approval authority over students,
// primarily scoped by department.
type Proctor struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
