package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/models"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
)

type participationRepository interface {
	List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Participation, error)
	FindDetailByID(ctx context.Context, id string) (*models.ParticipationDetail, error)
	FindDetailsByIDs(ctx context.Context, ids []string) ([]models.ParticipationDetail, error)
	ExistsByTitleYear(ctx context.Context, studentID, title string, year int, excludeID string) (bool, error)
	Create(ctx context.Context, record *models.Participation) error
	UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.ParticipationStatus, reason *string, decidedAt time.Time) error
	UpdateCertificatePath(ctx context.Context, id, path string) error
	CountPendingWithoutProctor(ctx context.Context) (int, error)
	StatusCounts(ctx context.Context) (map[models.ParticipationStatus]int, error)
}

type ledgerStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	AdjustCredits(ctx context.Context, id string, delta int) error
}

type submissionProctorResolver interface {
	ResolveAtSubmission(ctx context.Context, student *models.Student) (*string, error)
	Profile(ctx context.Context, userID string) (*models.Proctor, error)
}

type decisionNotifier interface {
	Notify(notification models.Notification)
	SubmissionDecided(student *models.Student, record *models.Participation) models.Notification
}

// SubmitParticipationRequest is a student's claim of hackathon participation.
type SubmitParticipationRequest struct {
	HackathonTitle   string                  `json:"hackathon_title" validate:"required"`
	Year             int                     `json:"year" validate:"required,gte=2000,lte=2100"`
	AttendanceStatus models.AttendanceStatus `json:"attendance_status" validate:"required,oneof=ATTENDED REGISTERED DID_NOT_ATTEND"`
	AchievementLevel models.AchievementLevel `json:"achievement_level" validate:"required,oneof=WINNER RUNNER_UP PARTICIPATION NONE"`
	CertificatePath  string                  `json:"certificate_path"`
}

// DecideParticipationRequest carries a proctor's decision on one submission.
type DecideParticipationRequest struct {
	Status          models.ParticipationStatus `json:"status" validate:"required,oneof=ACCEPTED DECLINED"`
	RejectionReason string                     `json:"rejection_reason"`
}

// BulkDecideRequest applies one decision to a set of submissions.
type BulkDecideRequest struct {
	IDs             []string                   `json:"ids" validate:"required,min=1,dive,required"`
	Status          models.ParticipationStatus `json:"status" validate:"required,oneof=ACCEPTED DECLINED"`
	RejectionReason string                     `json:"rejection_reason"`
}

// ParticipationService governs the submission lifecycle and the credit ledger
// that derives from it.
type ParticipationService struct {
	repo      participationRepository
	students  ledgerStudentRepository
	proctors  submissionProctorResolver
	notifier  decisionNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParticipationService constructs a ParticipationService.
func NewParticipationService(repo participationRepository, students ledgerStudentRepository, proctors submissionProctorResolver, notifier decisionNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipationService{repo: repo, students: students, proctors: proctors, notifier: notifier, metrics: metrics, validator: validate, logger: logger}
}

// Submit creates a pending participation record for the calling student. The
// deciding proctor is snapshot-resolved here; it is not re-resolved later.
func (s *ParticipationService) Submit(ctx context.Context, actor Actor, req SubmitParticipationRequest) (*models.Participation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if req.AttendanceStatus == models.AttendanceAttended && req.CertificatePath == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificate is required for attended participation")
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.repo.ExistsByTitleYear(ctx, student.ID, req.HackathonTitle, req.Year, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate submission")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "participation already submitted for this hackathon and year")
	}

	proctorID, err := s.proctors.ResolveAtSubmission(ctx, student)
	if err != nil {
		return nil, err
	}

	record := &models.Participation{
		StudentID:        student.ID,
		HackathonTitle:   req.HackathonTitle,
		Year:             req.Year,
		AttendanceStatus: req.AttendanceStatus,
		AchievementLevel: req.AchievementLevel,
		Status:           models.ParticipationPending,
		ProctorID:        proctorID,
	}
	if req.CertificatePath != "" {
		record.CertificatePath = &req.CertificatePath
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	return record, nil
}

// AttachCertificate records a stored certificate path on the caller's own
// pending submission.
func (s *ParticipationService) AttachCertificate(ctx context.Context, actor Actor, id, path string) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "student profile not found")
	}
	if record.StudentID != student.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
	}
	if err := s.repo.UpdateCertificatePath(ctx, id, path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach certificate")
	}
	return nil
}

// Decide transitions a submission and settles the credit ledger on the edge.
// The authorization check always runs against the student's current proctor,
// not the snapshot on the record.
func (s *ParticipationService) Decide(ctx context.Context, actor Actor, id string, req DecideParticipationRequest) (*models.Participation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Status == models.ParticipationDeclined && req.RejectionReason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required when declining")
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	student, err := s.students.FindByID(ctx, record.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("submission references missing student",
				zap.String("participation_id", record.ID),
				zap.String("student_id", record.StudentID))
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity, "submission references a missing student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if !actor.IsAdmin() {
		proctor, err := s.proctors.Profile(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
		}
		if student.ProctorID == nil || *student.ProctorID != proctor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "submission is owned by another proctor")
		}
	}

	updated, delta, err := s.transition(ctx, record, student, req.Status, req.RejectionReason)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDecision(string(req.Status), delta)
	return updated, nil
}

// BulkDecide applies one decision across a batch. Authorization is all-or-
// nothing and checked before any mutation; transitions then run per item so
// one failure cannot abort or roll back the rest.
func (s *ParticipationService) BulkDecide(ctx context.Context, actor Actor, req BulkDecideRequest) (*models.BulkDecisionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk decision payload")
	}
	if req.Status == models.ParticipationDeclined && req.RejectionReason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required when declining")
	}

	records, err := s.repo.FindDetailsByIDs(ctx, req.IDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}
	found := make(map[string]struct{}, len(records))
	for _, record := range records {
		found[record.ID] = struct{}{}
	}
	for _, id := range req.IDs {
		if _, ok := found[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more submissions do not exist")
		}
	}

	if !actor.IsAdmin() {
		proctor, err := s.proctors.Profile(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
		}
		for _, record := range records {
			// the caller may own the record through the student's live
			// assignment or through the snapshot taken at submission
			ownsStudent := record.StudentProctorID != nil && *record.StudentProctorID == proctor.ID
			ownsRecord := record.ProctorID != nil && *record.ProctorID == proctor.ID
			if !ownsStudent && !ownsRecord {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "batch contains submissions owned by another proctor")
			}
		}
	}

	s.metrics.ObserveBulkBatch(len(records))

	result := &models.BulkDecisionResult{Success: []string{}, Failed: []models.BulkDecisionFailure{}}
	for _, detail := range records {
		record := detail.Participation
		student, err := s.students.FindByID(ctx, record.StudentID)
		if err != nil {
			result.Failed = append(result.Failed, models.BulkDecisionFailure{ID: record.ID, Error: "owning student missing"})
			s.logger.Error("bulk decision skipped record with missing student",
				zap.String("participation_id", record.ID),
				zap.String("student_id", record.StudentID))
			continue
		}
		if _, delta, err := s.transition(ctx, &record, student, req.Status, req.RejectionReason); err != nil {
			result.Failed = append(result.Failed, models.BulkDecisionFailure{ID: record.ID, Error: appErrors.FromError(err).Message})
		} else {
			result.Success = append(result.Success, record.ID)
			s.metrics.ObserveDecision(string(req.Status), delta)
		}
	}
	return result, nil
}

// transition performs one optimistic status change plus its side effects:
// persist first, then settle the ledger, then emit the notification intent.
// Notification delivery is fire-and-forget and never fails the transition.
func (s *ParticipationService) transition(ctx context.Context, record *models.Participation, student *models.Student, next models.ParticipationStatus, reason string) (*models.Participation, int, error) {
	prev := record.Status

	var reasonPtr *string
	if next == models.ParticipationDeclined {
		reasonPtr = &reason
	}
	decidedAt := time.Now().UTC()
	if err := s.repo.UpdateStatusIfUnchanged(ctx, record.ID, prev, next, reasonPtr, decidedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, appErrors.Clone(appErrors.ErrConflict, "submission was modified concurrently")
		}
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission status")
	}

	record.Status = next
	record.RejectionReason = reasonPtr
	record.DecidedAt = &decidedAt

	delta := LedgerDelta(prev, next, CreditValue(record.AttendanceStatus, record.AchievementLevel))
	if delta != 0 {
		if err := s.students.AdjustCredits(ctx, student.ID, delta); err != nil {
			s.logger.Error("ledger adjustment failed after status change",
				zap.String("participation_id", record.ID),
				zap.String("student_id", student.ID),
				zap.Int("delta", delta),
				zap.Error(err))
			return nil, 0, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status, "failed to settle credit ledger")
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(s.notifier.SubmissionDecided(student, record))
	}
	return record, delta, nil
}

// ListForStudent returns the calling student's own submissions.
func (s *ParticipationService) ListForStudent(ctx context.Context, actor Actor, filter models.ParticipationFilter) ([]models.ParticipationDetail, *models.Pagination, error) {
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	filter.StudentID = student.ID
	filter.Department = ""
	filter.ProctorID = ""
	return s.list(ctx, filter)
}

// ListForProctor returns the proctor dashboard. view "mine" scopes to students
// currently assigned to the caller; "all" scopes to the caller's department.
// Both are computed live at query time.
func (s *ParticipationService) ListForProctor(ctx context.Context, actor Actor, view string, filter models.ParticipationFilter) ([]models.ParticipationDetail, *models.Pagination, error) {
	proctor, err := s.proctors.Profile(ctx, actor.UserID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
	}
	filter.StudentID = ""
	switch view {
	case "all":
		filter.Department = proctor.Department
		filter.ProctorID = ""
	default:
		filter.ProctorID = proctor.ID
		filter.Department = ""
	}
	return s.list(ctx, filter)
}

// ListAll returns submissions without ownership scoping, for admins.
func (s *ParticipationService) ListAll(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationDetail, *models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *ParticipationService) list(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return records, pagination, nil
}

// Get returns one submission with ownership enforcement: students see their
// own, proctors see their proctees', admins see everything.
func (s *ParticipationService) Get(ctx context.Context, actor Actor, id string) (*models.ParticipationDetail, error) {
	record, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	switch actor.Role {
	case models.RoleAdmin:
		return record, nil
	case models.RoleProctor:
		proctor, err := s.proctors.Profile(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
		}
		if record.StudentProctorID == nil || *record.StudentProctorID != proctor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "submission is owned by another proctor")
		}
		return record, nil
	default:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil || record.StudentID != student.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
		}
		return record, nil
	}
}
