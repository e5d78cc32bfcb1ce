package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/models"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
)

// scanPageSize matches the student repository's page size ceiling. Asking for
// more gets silently clamped, so full-population walks page at this size and
// follow the reported total.
const scanPageSize = 100

type opportunityRepository interface {
	List(ctx context.Context) ([]models.Opportunity, error)
	FindByID(ctx context.Context, id string) (*models.Opportunity, error)
	Create(ctx context.Context, opportunity *models.Opportunity) error
	UpdateStatus(ctx context.Context, id string, status models.OpportunityStatus) error
	UpdatePosterPath(ctx context.Context, id, path string) error
	AddInvited(ctx context.Context, opportunityID string, studentIDs []string) error
	AddInterested(ctx context.Context, opportunityID, studentID string) error
	InvitedStudents(ctx context.Context, opportunityID string) ([]string, error)
	InterestedStudents(ctx context.Context, opportunityID string) ([]string, error)
	IsInvited(ctx context.Context, opportunityID, studentID string) (bool, error)
}

type opportunityStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type opportunityNotifier interface {
	Notify(notification models.Notification)
	OpportunityInvite(student *models.Student, opportunity *models.Opportunity) models.Notification
}

// CreateOpportunityRequest declares a new external opportunity.
type CreateOpportunityRequest struct {
	Title       string                     `json:"title" validate:"required,min=3,max=140"`
	Description string                     `json:"description" validate:"required"`
	Deadline    *time.Time                 `json:"deadline"`
	Criteria    models.EligibilityCriteria `json:"criteria"`
}

// InviteRequest names the students to add to the invitation set.
type InviteRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// OpportunityService manages external opportunities: admin-side declaration
// and invitations, the eligibility scan, and student interest marking. Scan
// results are cached in Redis since the candidate pool changes slowly.
type OpportunityService struct {
	repo      opportunityRepository
	students  opportunityStudentRepository
	notifier  opportunityNotifier
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOpportunityService constructs an OpportunityService. The cache client is
// optional; with a nil client every scan hits the database.
func NewOpportunityService(repo opportunityRepository, students opportunityStudentRepository, notifier opportunityNotifier, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *OpportunityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &OpportunityService{repo: repo, students: students, notifier: notifier, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create declares a new open opportunity.
func (s *OpportunityService) Create(ctx context.Context, req CreateOpportunityRequest) (*models.Opportunity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid opportunity payload")
	}
	opportunity := &models.Opportunity{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Status:      models.OpportunityOpen,
		Criteria:    req.Criteria,
	}
	if err := s.repo.Create(ctx, opportunity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create opportunity")
	}
	return opportunity, nil
}

// Close stops further interest marking.
func (s *OpportunityService) Close(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, models.OpportunityClosed); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close opportunity")
	}
	return nil
}

// AttachPoster records the stored poster path.
func (s *OpportunityService) AttachPoster(ctx context.Context, id, path string) error {
	if path == "" {
		return appErrors.Clone(appErrors.ErrValidation, "poster path is required")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdatePosterPath(ctx, id, path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach poster")
	}
	return nil
}

// Get returns one opportunity with its invitation and interest sets.
func (s *OpportunityService) Get(ctx context.Context, id string) (*models.OpportunityDetail, error) {
	opportunity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	invited, err := s.repo.InvitedStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitations")
	}
	interested, err := s.repo.InterestedStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load interest set")
	}
	return &models.OpportunityDetail{Opportunity: *opportunity, InvitedStudents: invited, InterestedStudents: interested}, nil
}

// List returns all opportunities, newest first.
func (s *OpportunityService) List(ctx context.Context) ([]models.Opportunity, error) {
	opportunities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list opportunities")
	}
	return opportunities, nil
}

// Scan evaluates the eligibility criteria against every student and returns
// those who qualify. Results are cached per opportunity for a short TTL.
func (s *OpportunityService) Scan(ctx context.Context, id string) ([]models.Student, error) {
	opportunity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("opportunity:scan:%s", id)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []models.Student
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	population, err := s.allStudents(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan students")
	}
	var eligible []models.Student
	for i := range population {
		if opportunity.Criteria.Matches(&population[i]) {
			eligible = append(eligible, population[i])
		}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(eligible); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache scan result", zap.String("opportunity_id", id), zap.Error(err))
			}
		}
	}
	return eligible, nil
}

// Invite adds students to the invitation set and notifies them. The set only
// grows; re-inviting an already invited student is a no-op.
func (s *OpportunityService) Invite(ctx context.Context, id string, req InviteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invite payload")
	}
	opportunity, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.AddInvited(ctx, id, req.StudentIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record invitations")
	}
	if s.notifier != nil {
		for _, studentID := range req.StudentIDs {
			student, err := s.students.FindByID(ctx, studentID)
			if err != nil {
				s.logger.Warn("invited unknown student", zap.String("student_id", studentID), zap.Error(err))
				continue
			}
			s.notifier.Notify(s.notifier.OpportunityInvite(student, opportunity))
		}
	}
	return nil
}

// MarkInterest records the caller's acceptance of an invitation. Only invited
// students may accept, and only while the opportunity is open.
func (s *OpportunityService) MarkInterest(ctx context.Context, actor Actor, id string) error {
	opportunity, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if opportunity.Status != models.OpportunityOpen {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "opportunity is closed")
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	invited, err := s.repo.IsInvited(ctx, id, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check invitation")
	}
	if !invited {
		return appErrors.Clone(appErrors.ErrForbidden, "student was not invited to this opportunity")
	}
	if err := s.repo.AddInterested(ctx, id, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record interest")
	}
	return nil
}

// Radar returns, for a proctor, the invited students they supervise along with
// whether each has accepted the invitation.
func (s *OpportunityService) Radar(ctx context.Context, proctorID, opportunityID string) ([]models.RadarEntry, error) {
	if _, err := s.load(ctx, opportunityID); err != nil {
		return nil, err
	}
	invited, err := s.repo.InvitedStudents(ctx, opportunityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitations")
	}
	interested, err := s.repo.InterestedStudents(ctx, opportunityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load interest set")
	}
	invitedSet := make(map[string]struct{}, len(invited))
	for _, id := range invited {
		invitedSet[id] = struct{}{}
	}
	acceptedSet := make(map[string]struct{}, len(interested))
	for _, id := range interested {
		acceptedSet[id] = struct{}{}
	}

	supervised, err := s.allStudents(ctx, models.StudentFilter{ProctorID: proctorID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervised students")
	}

	var entries []models.RadarEntry
	for _, student := range supervised {
		if _, ok := invitedSet[student.ID]; !ok {
			continue
		}
		_, accepted := acceptedSet[student.ID]
		entries = append(entries, models.RadarEntry{
			StudentID:   student.ID,
			StudentName: student.FullName,
			Department:  student.Department,
			HasAccepted: accepted,
		})
	}
	return entries, nil
}

// allStudents pages through the student repository until the total it reports
// is exhausted. The loop keys off total, not batch length, because the
// repository may serve smaller pages than requested.
func (s *OpportunityService) allStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var out []models.Student
	filter.PageSize = scanPageSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.students.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

func (s *OpportunityService) load(ctx context.Context, id string) (*models.Opportunity, error) {
	opportunity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "opportunity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load opportunity")
	}
	return opportunity, nil
}
