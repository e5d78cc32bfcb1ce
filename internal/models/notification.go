package models

// NotificationKind selects the template used for an outbound message.
type NotificationKind string

const (
	NotificationSubmissionAccepted NotificationKind = "SUBMISSION_ACCEPTED"
	NotificationSubmissionDeclined NotificationKind = "SUBMISSION_DECLINED"
	NotificationTeamApproved       NotificationKind = "TEAM_APPROVED"
	NotificationTeamDeclined       NotificationKind = "TEAM_DECLINED"
	NotificationEnrollmentDecision NotificationKind = "ENROLLMENT_DECISION"
	NotificationOpportunityInvite  NotificationKind = "OPPORTUNITY_INVITE"
	NotificationPasswordReset      NotificationKind = "PASSWORD_RESET"
)

// Notification is a rendered intent handed to the delivery queue. Delivery is
// fire-and-forget: failures are logged and counted, never surfaced to the
// operation that produced the intent.
type Notification struct {
	Kind           NotificationKind  `json:"kind"`
	RecipientName  string            `json:"recipient_name"`
	RecipientEmail string            `json:"recipient_email"`
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	Payload        map[string]string `json:"payload,omitempty"`
}
