package dto

import "time"

// DepartmentCreditRow is one aggregated line of the credit summary report.
type DepartmentCreditRow struct {
	Department   string  `json:"department"`
	StudentCount int     `json:"student_count"`
	TotalCredits int     `json:"total_credits"`
	AvgCredits   float64 `json:"avg_credits"`
}

// ReportFileResponse points a client at a generated report artifact.
type ReportFileResponse struct {
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DashboardResponse carries the admin overview counters.
type DashboardResponse struct {
	PendingSubmissions    int `json:"pending_submissions"`
	AcceptedSubmissions   int `json:"accepted_submissions"`
	DeclinedSubmissions   int `json:"declined_submissions"`
	PendingWithoutProctor int `json:"pending_without_proctor"`
	TotalStudents         int `json:"total_students"`
}
