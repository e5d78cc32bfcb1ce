package models

import "time"

// TeamStatus is the lifecycle state of a team.
type TeamStatus string

const (
	TeamDraft           TeamStatus = "DRAFT"
	TeamPendingApproval TeamStatus = "PENDING_APPROVAL"
	TeamApproved        TeamStatus = "APPROVED"
	TeamDeclined        TeamStatus = "DECLINED"
)

// CertificateStatus tracks a member's certificate through verification.
type CertificateStatus string

const (
	CertificatePending  CertificateStatus = "PENDING"
	CertificateUploaded CertificateStatus = "UPLOADED"
	CertificateVerified CertificateStatus = "VERIFIED"
)

// Team represents a multi-student group formed for one upcoming hackathon.
// The code is the join handle; a student belongs to at most one team per
// upcoming hackathon.
type Team struct {
	ID                  string     `db:"id" json:"id"`
	Code                string     `db:"code" json:"code"`
	Name                string     `db:"name" json:"name"`
	UpcomingHackathonID string     `db:"upcoming_hackathon_id" json:"upcoming_hackathon_id"`
	LeaderID            string     `db:"leader_id" json:"leader_id"`
	ProctorID           *string    `db:"proctor_id" json:"proctor_id,omitempty"`
	Status              TeamStatus `db:"status" json:"status"`
	RejectionReason     *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	SubmittedAt         *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt          *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// TeamMember is a membership row carrying a snapshot of student identity plus
// the member's certificate state.
type TeamMember struct {
	ID                string            `db:"id" json:"id"`
	TeamID            string            `db:"team_id" json:"team_id"`
	StudentID         string            `db:"student_id" json:"student_id"`
	StudentName       string            `db:"student_name" json:"student_name"`
	StudentRegisterNo string            `db:"student_register_no" json:"student_register_no"`
	CertificateStatus CertificateStatus `db:"certificate_status" json:"certificate_status"`
	CertificatePath   *string           `db:"certificate_path" json:"certificate_path,omitempty"`
	JoinedAt          time.Time         `db:"joined_at" json:"joined_at"`
}

// TeamDetail bundles a team with its member roster.
type TeamDetail struct {
	Team
	Members []TeamMember `json:"members"`
}

// TeamFilter captures query parameters for listing teams.
type TeamFilter struct {
	UpcomingHackathonID string
	Status              TeamStatus
	ProctorID           string
	Page                int
	PageSize            int
}

// UpcomingHackathon is an event announced for enrollment and team formation.
type UpcomingHackathon struct {
	ID               string    `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Organizer        string    `db:"organizer" json:"organizer"`
	Venue            string    `db:"venue" json:"venue"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	RegistrationLink string    `db:"registration_link" json:"registration_link"`
	PosterPath       *string   `db:"poster_path" json:"poster_path,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
