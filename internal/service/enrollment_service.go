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

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID, upcomingHackathonID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.EnrollmentStatus, reason *string, decidedAt time.Time) error
}

type enrollmentNotifier interface {
	Notify(notification models.Notification)
	EnrollmentDecided(enrollment *models.Enrollment, email string) models.Notification
}

// EnrollRequest asks to take part in an upcoming hackathon.
type EnrollRequest struct {
	UpcomingHackathonID string `json:"upcoming_hackathon_id" validate:"required"`
}

// DecideEnrollmentRequest carries the proctor's verdict on a pending
// enrollment.
type DecideEnrollmentRequest struct {
	Status          models.EnrollmentStatus `json:"status" validate:"required,oneof=APPROVED DECLINED"`
	RejectionReason string                  `json:"rejection_reason"`
}

// EnrollmentService handles enrollment requests for upcoming hackathons. An
// enrollment is one per student per event and carries a snapshot of the
// student's identity taken at request time.
type EnrollmentService struct {
	repo       enrollmentRepository
	students   teamStudentRepository
	hackathons teamHackathonReader
	proctors   submissionProctorResolver
	notifier   enrollmentNotifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students teamStudentRepository, hackathons teamHackathonReader, proctors submissionProctorResolver, notifier enrollmentNotifier, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, hackathons: hackathons, proctors: proctors, notifier: notifier, validator: validate, logger: logger}
}

// Enroll files a pending enrollment for the caller. Duplicate requests for the
// same event are rejected regardless of the earlier request's outcome.
func (s *EnrollmentService) Enroll(ctx context.Context, actor Actor, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
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

	exists, err := s.repo.Exists(ctx, student.ID, req.UpcomingHackathonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled for this hackathon")
	}

	proctorID, err := s.proctors.ResolveAtSubmission(ctx, student)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID:           student.ID,
		UpcomingHackathonID: req.UpcomingHackathonID,
		StudentName:         student.FullName,
		StudentRegisterNo:   student.RegisterNo,
		StudentDepartment:   student.Department,
		StudentYear:         student.YearOfStudy,
		Status:              models.EnrollmentPending,
		ProctorID:           proctorID,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Decide settles a pending enrollment. Only the bound proctor or an admin may
// decide, and declining requires a reason.
func (s *EnrollmentService) Decide(ctx context.Context, actor Actor, id string, req DecideEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Status == models.EnrollmentDeclined && req.RejectionReason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required when declining")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment already decided")
	}
	if !actor.IsAdmin() {
		proctor, err := s.proctors.Profile(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
		}
		if enrollment.ProctorID == nil || *enrollment.ProctorID != proctor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment is owned by another proctor")
		}
	}

	var reasonPtr *string
	if req.Status == models.EnrollmentDeclined {
		reasonPtr = &req.RejectionReason
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateStatusIfUnchanged(ctx, enrollment.ID, models.EnrollmentPending, req.Status, reasonPtr, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	enrollment.Status = req.Status
	enrollment.RejectionReason = reasonPtr
	enrollment.DecidedAt = &now

	if s.notifier != nil {
		if student, err := s.students.FindByID(ctx, enrollment.StudentID); err == nil {
			s.notifier.Notify(s.notifier.EnrollmentDecided(enrollment, student.Email))
		} else {
			s.logger.Warn("enrollment decided for missing student", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		}
	}
	return enrollment, nil
}

// Get returns one enrollment, restricted to its owner for students.
func (s *EnrollmentService) Get(ctx context.Context, actor Actor, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if actor.Role == models.RoleStudent {
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil || student.ID != enrollment.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
		}
	}
	return enrollment, nil
}

// ListMine returns the caller's own enrollment requests.
func (s *EnrollmentService) ListMine(ctx context.Context, actor Actor, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	filter.StudentID = student.ID
	return s.list(ctx, filter)
}

// ListForProctor returns enrollments bound to the calling proctor.
func (s *EnrollmentService) ListForProctor(ctx context.Context, actor Actor, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	proctor, err := s.proctors.Profile(ctx, actor.UserID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a proctor")
	}
	filter.ProctorID = proctor.ID
	return s.list(ctx, filter)
}

// ListAll returns enrollments without ownership restriction, for admins.
func (s *EnrollmentService) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *EnrollmentService) list(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
