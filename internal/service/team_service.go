package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/models"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
)

const minTeamSize = 2

type teamRepository interface {
	List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error)
	FindByID(ctx context.Context, id string) (*models.Team, error)
	FindByCode(ctx context.Context, code string) (*models.Team, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Members(ctx context.Context, teamID string) ([]models.TeamMember, error)
	FindMembership(ctx context.Context, upcomingHackathonID, studentID string) (*models.TeamMember, error)
	Create(ctx context.Context, team *models.Team, creator *models.TeamMember) error
	AddMember(ctx context.Context, member *models.TeamMember) error
	UpdateMemberCertificate(ctx context.Context, teamID, studentID string, status models.CertificateStatus, path *string) error
	UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.TeamStatus, reason *string, submittedAt, approvedAt *time.Time) error
}

type teamStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type teamHackathonReader interface {
	FindByID(ctx context.Context, id string) (*models.UpcomingHackathon, error)
}

type teamNotifier interface {
	Notify(notification models.Notification)
	TeamDecided(team *models.Team, member models.TeamMember, email string) models.Notification
}

// CreateTeamRequest starts a new draft team for an upcoming hackathon.
type CreateTeamRequest struct {
	Name                string `json:"name" validate:"required,min=3,max=80"`
	UpcomingHackathonID string `json:"upcoming_hackathon_id" validate:"required"`
}

// JoinTeamRequest adds the caller to a draft team by code.
type JoinTeamRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// DecideTeamRequest carries the proctor's verdict on a submitted team.
type DecideTeamRequest struct {
	Status          models.TeamStatus `json:"status" validate:"required,oneof=APPROVED DECLINED"`
	RejectionReason string            `json:"rejection_reason"`
}

// TeamService manages the team formation lifecycle: draft, membership,
// submission, per-member certificate tracking and the proctor decision. Team
// approval deliberately has no credit-ledger effect.
type TeamService struct {
	repo       teamRepository
	students   teamStudentRepository
	hackathons teamHackathonReader
	proctors   submissionProctorResolver
	notifier   teamNotifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTeamService constructs a TeamService.
func NewTeamService(repo teamRepository, students teamStudentRepository, hackathons teamHackathonReader, proctors submissionProctorResolver, notifier teamNotifier, validate *validator.Validate, logger *zap.Logger) *TeamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{repo: repo, students: students, hackathons: hackathons, proctors: proctors, notifier: notifier, validator: validate, logger: logger}
}

// Create opens a draft team with the caller as leader and first member. The
// proctor is snapshot-bound from the creator's department.
func (s *TeamService) Create(ctx context.Context, actor Actor, req CreateTeamRequest) (*models.TeamDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.hackathons.FindByID(ctx, req.UpcomingHackathonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "upcoming hackathon not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hackathon")
	}

	if _, err := s.repo.FindMembership(ctx, req.UpcomingHackathonID, student.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already belongs to a team for this hackathon")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing membership")
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate team code")
	}

	proctorID, err := s.proctors.ResolveAtSubmission(ctx, student)
	if err != nil {
		return nil, err
	}

	team := &models.Team{
		Code:                code,
		Name:                req.Name,
		UpcomingHackathonID: req.UpcomingHackathonID,
		LeaderID:            student.ID,
		ProctorID:           proctorID,
		Status:              models.TeamDraft,
	}
	creator := &models.TeamMember{
		StudentID:         student.ID,
		StudentName:       student.FullName,
		StudentRegisterNo: student.RegisterNo,
		CertificateStatus: models.CertificatePending,
	}
	if err := s.repo.Create(ctx, team, creator); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}
	return &models.TeamDetail{Team: *team, Members: []models.TeamMember{*creator}}, nil
}

// Join adds the caller to a draft team by code. Joining is closed once the
// team leaves Draft, and a student can hold one membership per hackathon.
func (s *TeamService) Join(ctx context.Context, actor Actor, req JoinTeamRequest) (*models.TeamDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	team, err := s.repo.FindByCode(ctx, strings.ToUpper(req.Code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	if team.Status != models.TeamDraft {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "team is no longer accepting members")
	}

	// exclusivity is per hackathon, not per team: membership in any other
	// team for the same event blocks the join
	if _, err := s.repo.FindMembership(ctx, team.UpcomingHackathonID, student.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already belongs to a team for this hackathon")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing membership")
	}

	member := &models.TeamMember{
		TeamID:            team.ID,
		StudentID:         student.ID,
		StudentName:       student.FullName,
		StudentRegisterNo: student.RegisterNo,
		CertificateStatus: models.CertificatePending,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join team")
	}
	return s.detail(ctx, team)
}

// Submit moves a draft team into the proctor's approval queue. Leader only,
// and the roster must hold at least two members.
func (s *TeamService) Submit(ctx context.Context, actor Actor, teamID string) (*models.TeamDetail, error) {
	student, team, err := s.loadActorTeam(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the team leader may submit")
	}
	if team.Status != models.TeamDraft {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "team already submitted")
	}
	members, err := s.repo.Members(ctx, team.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load members")
	}
	if len(members) < minTeamSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a team needs at least two members before submission")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatusIfUnchanged(ctx, team.ID, models.TeamDraft, models.TeamPendingApproval, nil, &now, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "team was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit team")
	}
	team.Status = models.TeamPendingApproval
	team.SubmittedAt = &now
	return &models.TeamDetail{Team: *team, Members: members}, nil
}

// UploadCertificate marks the caller's own member entry as Uploaded. The entry
// is located by student identity, never by roster position.
func (s *TeamService) UploadCertificate(ctx context.Context, actor Actor, teamID, path string) error {
	student, team, err := s.loadActorTeam(ctx, actor, teamID)
	if err != nil {
		return err
	}
	if path == "" {
		return appErrors.Clone(appErrors.ErrValidation, "certificate path is required")
	}
	if err := s.repo.UpdateMemberCertificate(ctx, team.ID, student.ID, models.CertificateUploaded, &path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "caller is not a member of this team")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record certificate")
	}
	return nil
}

// VerifyCertificate lets the owning proctor confirm an uploaded certificate.
func (s *TeamService) VerifyCertificate(ctx context.Context, actor Actor, teamID, studentID string) error {
	team, err := s.authorizeProctor(ctx, actor, teamID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateMemberCertificate(ctx, team.ID, studentID, models.CertificateVerified, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found in team")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify certificate")
	}
	return nil
}

// Decide settles a pending team. Approval stamps approved_at and clears any
// rejection reason; declining requires one.
func (s *TeamService) Decide(ctx context.Context, actor Actor, teamID string, req DecideTeamRequest) (*models.TeamDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Status == models.TeamDeclined && req.RejectionReason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required when declining")
	}

	team, err := s.authorizeProctor(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if team.Status != models.TeamPendingApproval {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "team is not awaiting approval")
	}

	var reasonPtr *string
	var approvedAt *time.Time
	if req.Status == models.TeamDeclined {
		reasonPtr = &req.RejectionReason
	} else {
		now := time.Now().UTC()
		approvedAt = &now
	}
	if err := s.repo.UpdateStatusIfUnchanged(ctx, team.ID, models.TeamPendingApproval, req.Status, reasonPtr, nil, approvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "team was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update team status")
	}
	team.Status = req.Status
	team.RejectionReason = reasonPtr
	team.ApprovedAt = approvedAt

	members, err := s.repo.Members(ctx, team.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load members")
	}
	if s.notifier != nil {
		for _, member := range members {
			if rosterStudent, err := s.students.FindByID(ctx, member.StudentID); err == nil {
				s.notifier.Notify(s.notifier.TeamDecided(team, member, rosterStudent.Email))
			}
		}
	}
	return &models.TeamDetail{Team: *team, Members: members}, nil
}

// Reopen returns a declined team to draft so the roster can be fixed and
// resubmitted. Only the owning proctor may reopen.
func (s *TeamService) Reopen(ctx context.Context, actor Actor, teamID string) (*models.TeamDetail, error) {
	team, err := s.authorizeProctor(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if team.Status != models.TeamDeclined {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only declined teams can be reopened")
	}
	if err := s.repo.UpdateStatusIfUnchanged(ctx, team.ID, models.TeamDeclined, models.TeamDraft, nil, nil, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "team was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen team")
	}
	team.Status = models.TeamDraft
	team.RejectionReason = nil
	return s.detail(ctx, team)
}

// Get returns a team with its roster.
func (s *TeamService) Get(ctx context.Context, id string) (*models.TeamDetail, error) {
	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return s.detail(ctx, team)
}

// List returns teams with pagination metadata.
func (s *TeamService) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, *models.Pagination, error) {
	teams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teams, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *TeamService) detail(ctx context.Context, team *models.Team) (*models.TeamDetail, error) {
	members, err := s.repo.Members(ctx, team.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load members")
	}
	return &models.TeamDetail{Team: *team, Members: members}, nil
}

func (s *TeamService) loadActorTeam(ctx context.Context, actor Actor, teamID string) (*models.Student, *models.Team, error) {
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return student, team, nil
}

func (s *TeamService) authorizeProctor(ctx context.Context, actor Actor, teamID string) (*models.Team, error) {
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	if actor.IsAdmin() {
		return team, nil
	}
	proctor, err := s.proctors.Profile(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
	}
	if team.ProctorID == nil || *team.ProctorID != proctor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "team is owned by another proctor")
	}
	return team, nil
}

// generateCode produces a 6-character upper-case hex join code and retries on
// the rare collision.
func (s *TeamService) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, 3)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		code := strings.ToUpper(hex.EncodeToString(buf))
		taken, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("exhausted team code attempts")
}
