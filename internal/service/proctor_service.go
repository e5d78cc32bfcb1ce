package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/models"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
)

type proctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Proctor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Proctor, error)
	FirstByDepartment(ctx context.Context, department string) (*models.Proctor, error)
	ListByDepartment(ctx context.Context, department string) ([]models.Proctor, error)
}

type proctorStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateProctor(ctx context.Context, id string, proctorID *string) error
}

// ProctorService resolves which proctor owns a student and manages explicit
// reassignment.
type ProctorService struct {
	proctors  proctorRepository
	students  proctorStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProctorService constructs a ProctorService.
func NewProctorService(proctors proctorRepository, students proctorStudentRepository, validate *validator.Validate, logger *zap.Logger) *ProctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProctorService{proctors: proctors, students: students, validator: validate, logger: logger}
}

// ResolveAtSubmission picks the proctor to bind to a new submission or
// enrollment: the student's explicit assignment when present, otherwise the
// department fallback. The result is a snapshot; later roster changes do not
// move it. A nil result means the submission proceeds proctor-less and is
// visible to admins only.
func (s *ProctorService) ResolveAtSubmission(ctx context.Context, student *models.Student) (*string, error) {
	if student.ProctorID != nil && *student.ProctorID != "" {
		return student.ProctorID, nil
	}
	proctor, err := s.proctors.FirstByDepartment(ctx, student.Department)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("no proctor available for department",
				zap.String("student_id", student.ID),
				zap.String("department", student.Department))
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department proctor")
	}
	return &proctor.ID, nil
}

// ResolveForView returns the student's current owning proctor id for dashboard
// queries. Unlike ResolveAtSubmission this is recomputed on every call, so a
// reassigned student immediately moves between proctor queues.
func (s *ProctorService) ResolveForView(ctx context.Context, studentID string) (*string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student.ProctorID, nil
}

// Profile loads the proctor profile bound to a user account.
func (s *ProctorService) Profile(ctx context.Context, userID string) (*models.Proctor, error) {
	proctor, err := s.proctors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proctor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proctor")
	}
	return proctor, nil
}

// ReassignStudentRequest moves a student to a different proctor.
type ReassignStudentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	ProctorID *string `json:"proctor_id"`
}

// Reassign changes a student's explicit proctor assignment. Existing
// submissions keep their snapshot proctor; only live views move.
func (s *ProctorService) Reassign(ctx context.Context, req ReassignStudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if req.ProctorID != nil && *req.ProctorID != "" {
		if _, err := s.proctors.FindByID(ctx, *req.ProctorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "proctor not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proctor")
		}
	}
	if err := s.students.UpdateProctor(ctx, req.StudentID, req.ProctorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign proctor")
	}
	return nil
}
