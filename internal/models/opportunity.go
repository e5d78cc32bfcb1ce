package models

import "time"

// OpportunityStatus gates whether students may still mark interest.
type OpportunityStatus string

const (
	OpportunityOpen   OpportunityStatus = "OPEN"
	OpportunityClosed OpportunityStatus = "CLOSED"
)

// EligibilityCriteria is the declarative predicate used to filter candidate
// students. Empty department/year lists match everything.
type EligibilityCriteria struct {
	MinCGPA            float64  `json:"min_cgpa"`
	MinCredits         int      `json:"min_credits"`
	AllowedDepartments []string `json:"allowed_departments"`
	EligibleYears      []int    `json:"eligible_years"`
}

// Matches reports whether the student satisfies every criterion.
func (c EligibilityCriteria) Matches(s *Student) bool {
	if s.CGPA < c.MinCGPA {
		return false
	}
	if s.Credits < c.MinCredits {
		return false
	}
	if len(c.AllowedDepartments) > 0 && !containsString(c.AllowedDepartments, s.Department) {
		return false
	}
	if len(c.EligibleYears) > 0 && !containsInt(c.EligibleYears, s.YearOfStudy) {
		return false
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Opportunity is an admin-declared external opportunity with eligibility
// criteria and two monotonically growing student-id sets.
type Opportunity struct {
	ID          string              `db:"id" json:"id"`
	Title       string              `db:"title" json:"title"`
	Description string              `db:"description" json:"description"`
	Deadline    *time.Time          `db:"deadline" json:"deadline,omitempty"`
	Status      OpportunityStatus   `db:"status" json:"status"`
	PosterPath  *string             `db:"poster_path" json:"poster_path,omitempty"`
	Criteria    EligibilityCriteria `db:"-" json:"criteria"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// OpportunityDetail includes the invitation and interest sets.
type OpportunityDetail struct {
	Opportunity
	InvitedStudents    []string `json:"invited_students"`
	InterestedStudents []string `json:"interested_students"`
}

// RadarEntry is one row of a proctor's opportunity radar: an invited student
// owned by the proctor, with whether they accepted the invitation.
type RadarEntry struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Department  string `json:"department"`
	HasAccepted bool   `json:"has_accepted"`
}
