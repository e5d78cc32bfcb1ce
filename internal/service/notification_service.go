package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/models"
	"github.com/campushub/codeathon-api/pkg/jobs"
)

// Sender delivers a rendered notification to its recipient.
type Sender interface {
	Send(ctx context.Context, notification models.Notification) error
}

// NotificationService renders notification intents and pushes them through an
// in-memory queue. Delivery is fire-and-forget: Notify never returns an error
// and enqueue/delivery failures are logged and counted only.
type NotificationService struct {
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics *MetricsService
}

// NewNotificationService wires the sender behind a worker queue.
func NewNotificationService(sender Sender, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{logger: logger, metrics: metrics}
	handler := func(ctx context.Context, job jobs.Job) error {
		notification, ok := job.Payload.(models.Notification)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		if err := sender.Send(ctx, notification); err != nil {
			if metrics != nil {
				metrics.IncNotificationFailed()
			}
			return err
		}
		return nil
	}
	cfg.Logger = logger
	svc.queue = jobs.NewQueue("notifications", handler, cfg)
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification. Failures never propagate to the caller.
func (s *NotificationService) Notify(notification models.Notification) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(notification.Kind),
		Payload: notification,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("kind", string(notification.Kind)),
			zap.String("recipient", notification.RecipientEmail),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.IncNotificationFailed()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncNotificationEnqueued()
	}
}

// SubmissionDecided builds the intent for a participation decision.
func (s *NotificationService) SubmissionDecided(student *models.Student, record *models.Participation) models.Notification {
	kind := models.NotificationSubmissionAccepted
	subject := fmt.Sprintf("Participation accepted: %s %d", record.HackathonTitle, record.Year)
	body := fmt.Sprintf("Hi %s, your participation in %s (%d) has been accepted.", student.FullName, record.HackathonTitle, record.Year)
	if record.Status == models.ParticipationDeclined {
		kind = models.NotificationSubmissionDeclined
		reason := ""
		if record.RejectionReason != nil {
			reason = *record.RejectionReason
		}
		subject = fmt.Sprintf("Participation declined: %s %d", record.HackathonTitle, record.Year)
		body = fmt.Sprintf("Hi %s, your participation in %s (%d) was declined. Reason: %s", student.FullName, record.HackathonTitle, record.Year, reason)
	}
	return models.Notification{
		Kind:           kind,
		RecipientName:  student.FullName,
		RecipientEmail: student.Email,
		Subject:        subject,
		Body:           body,
		Payload:        map[string]string{"participation_id": record.ID},
	}
}

// TeamDecided builds the intent for a team decision, addressed per member.
func (s *NotificationService) TeamDecided(team *models.Team, member models.TeamMember, email string) models.Notification {
	kind := models.NotificationTeamApproved
	subject := fmt.Sprintf("Team %s approved", team.Name)
	body := fmt.Sprintf("Hi %s, your team %s has been approved.", member.StudentName, team.Name)
	if team.Status == models.TeamDeclined {
		kind = models.NotificationTeamDeclined
		reason := ""
		if team.RejectionReason != nil {
			reason = *team.RejectionReason
		}
		subject = fmt.Sprintf("Team %s declined", team.Name)
		body = fmt.Sprintf("Hi %s, your team %s was declined. Reason: %s", member.StudentName, team.Name, reason)
	}
	return models.Notification{
		Kind:           kind,
		RecipientName:  member.StudentName,
		RecipientEmail: email,
		Subject:        subject,
		Body:           body,
		Payload:        map[string]string{"team_id": team.ID},
	}
}

// EnrollmentDecided builds the intent for an enrollment decision.
func (s *NotificationService) EnrollmentDecided(enrollment *models.Enrollment, email string) models.Notification {
	verdict := "approved"
	if enrollment.Status == models.EnrollmentDeclined {
		verdict = "declined"
	}
	return models.Notification{
		Kind:           models.NotificationEnrollmentDecision,
		RecipientName:  enrollment.StudentName,
		RecipientEmail: email,
		Subject:        fmt.Sprintf("Enrollment %s", verdict),
		Body:           fmt.Sprintf("Hi %s, your enrollment request has been %s.", enrollment.StudentName, verdict),
		Payload:        map[string]string{"enrollment_id": enrollment.ID},
	}
}

// OpportunityInvite builds the intent for an opportunity invitation.
func (s *NotificationService) OpportunityInvite(student *models.Student, opportunity *models.Opportunity) models.Notification {
	return models.Notification{
		Kind:           models.NotificationOpportunityInvite,
		RecipientName:  student.FullName,
		RecipientEmail: student.Email,
		Subject:        fmt.Sprintf("You are invited: %s", opportunity.Title),
		Body:           fmt.Sprintf("Hi %s, you have been shortlisted for %s. Mark your interest in the portal.", student.FullName, opportunity.Title),
		Payload:        map[string]string{"opportunity_id": opportunity.ID},
	}
}

// PasswordReset builds the intent carrying a reset code.
func (s *NotificationService) PasswordReset(name, email, code string) models.Notification {
	return models.Notification{
		Kind:           models.NotificationPasswordReset,
		RecipientName:  name,
		RecipientEmail: email,
		Subject:        "Password reset code",
		Body:           fmt.Sprintf("Hi %s, your password reset code is %s. It expires shortly.", name, code),
	}
}
