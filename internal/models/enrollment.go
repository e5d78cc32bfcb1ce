package models

import "time"

// EnrollmentStatus is the decision state of an enrollment request.
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "PENDING"
	EnrollmentApproved EnrollmentStatus = "APPROVED"
	EnrollmentDeclined EnrollmentStatus = "DECLINED"
)

// Enrollment is a student's request to take part in an upcoming hackathon,
// independent of team formation. Student details are denormalized so the
// request survives later profile changes.
type Enrollment struct {
	ID                  string           `db:"id" json:"id"`
	StudentID           string           `db:"student_id" json:"student_id"`
	UpcomingHackathonID string           `db:"upcoming_hackathon_id" json:"upcoming_hackathon_id"`
	StudentName         string           `db:"student_name" json:"student_name"`
	StudentRegisterNo   string           `db:"student_register_no" json:"student_register_no"`
	StudentDepartment   string           `db:"student_department" json:"student_department"`
	StudentYear         int              `db:"student_year" json:"student_year"`
	Status              EnrollmentStatus `db:"status" json:"status"`
	RejectionReason     *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ProctorID           *string          `db:"proctor_id" json:"proctor_id,omitempty"`
	DecidedAt           *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter captures query parameters for listing enrollment requests.
type EnrollmentFilter struct {
	StudentID           string
	UpcomingHackathonID string
	Status              EnrollmentStatus
	ProctorID           string
	Page                int
	PageSize            int
}
