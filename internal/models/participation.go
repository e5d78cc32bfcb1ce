package models

import "time"

// AttendanceStatus describes whether the student actually attended the event.
type AttendanceStatus string

const (
	AttendanceAttended     AttendanceStatus = "ATTENDED"
	AttendanceRegistered   AttendanceStatus = "REGISTERED"
	AttendanceDidNotAttend AttendanceStatus = "DID_NOT_ATTEND"
)

// AchievementLevel describes the outcome the student claims for the event.
type AchievementLevel string

const (
	AchievementWinner        AchievementLevel = "WINNER"
	AchievementRunnerUp      AchievementLevel = "RUNNER_UP"
	AchievementParticipation AchievementLevel = "PARTICIPATION"
	AchievementNone          AchievementLevel = "NONE"
)

// ParticipationStatus is the proctor decision state of a submission.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "PENDING"
	ParticipationAccepted ParticipationStatus = "ACCEPTED"
	ParticipationDeclined ParticipationStatus = "DECLINED"
)

// Valid reports whether the status is a known decision state.
func (s ParticipationStatus) Valid() bool {
	switch s {
	case ParticipationPending, ParticipationAccepted, ParticipationDeclined:
		return true
	}
	return false
}

// Participation represents one student's claim of participation in one named
// hackathon for one year. The proctor id is snapshot-resolved at submission
// time and may go stale; authorization always re-checks the student's current
// proctor.
type Participation struct {
	ID               string              `db:"id" json:"id"`
	StudentID        string              `db:"student_id" json:"student_id"`
	HackathonTitle   string              `db:"hackathon_title" json:"hackathon_title"`
	Year             int                 `db:"year" json:"year"`
	AttendanceStatus AttendanceStatus    `db:"attendance_status" json:"attendance_status"`
	AchievementLevel AchievementLevel    `db:"achievement_level" json:"achievement_level"`
	Status           ParticipationStatus `db:"status" json:"status"`
	RejectionReason  *string             `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ProctorID        *string             `db:"proctor_id" json:"proctor_id,omitempty"`
	CertificatePath  *string             `db:"certificate_path" json:"certificate_path,omitempty"`
	DecidedAt        *time.Time          `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
}

// ParticipationDetail joins the owning student onto the record for dashboards.
type ParticipationDetail struct {
	Participation
	StudentName       string  `db:"student_name" json:"student_name"`
	StudentRegisterNo string  `db:"student_register_no" json:"student_register_no"`
	StudentDepartment string  `db:"student_department" json:"student_department"`
	StudentProctorID  *string `db:"student_proctor_id" json:"student_proctor_id,omitempty"`
}

// ParticipationFilter captures query parameters for listing submissions.
type ParticipationFilter struct {
	StudentID  string
	Status     ParticipationStatus
	Year       *int
	Department string
	ProctorID  string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// BulkDecisionFailure records one failed item in a bulk decision batch.
type BulkDecisionFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkDecisionResult aggregates per-item outcomes of a bulk decision. Items in
// Failed did not mutate; items in Success committed independently.
type BulkDecisionResult struct {
	Success []string              `json:"success"`
	Failed  []BulkDecisionFailure `json:"failed"`
}
