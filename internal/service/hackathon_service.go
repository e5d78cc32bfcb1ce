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

type hackathonRepository interface {
	List(ctx context.Context) ([]models.UpcomingHackathon, error)
	FindByID(ctx context.Context, id string) (*models.UpcomingHackathon, error)
	Create(ctx context.Context, hackathon *models.UpcomingHackathon) error
	Update(ctx context.Context, hackathon *models.UpcomingHackathon) error
	Delete(ctx context.Context, id string) error
}

// UpcomingHackathonRequest is the admin payload for announcing or editing an
// upcoming hackathon.
type UpcomingHackathonRequest struct {
	Title            string    `json:"title" validate:"required,min=3,max=140"`
	Organizer        string    `json:"organizer" validate:"required"`
	Venue            string    `json:"venue"`
	StartDate        time.Time `json:"start_date" validate:"required"`
	EndDate          time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	RegistrationLink string    `json:"registration_link" validate:"omitempty,url"`
}

// HackathonService manages the catalog of announced upcoming hackathons that
// enrollments and teams attach to.
type HackathonService struct {
	repo      hackathonRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHackathonService constructs the hackathon service.
func NewHackathonService(repo hackathonRepository, validate *validator.Validate, logger *zap.Logger) *HackathonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HackathonService{repo: repo, validator: validate, logger: logger}
}

// List returns all announced hackathons, soonest first.
func (s *HackathonService) List(ctx context.Context) ([]models.UpcomingHackathon, error) {
	hackathons, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hackathons")
	}
	return hackathons, nil
}

// Get returns one announced hackathon.
func (s *HackathonService) Get(ctx context.Context, id string) (*models.UpcomingHackathon, error) {
	hackathon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hackathon not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hackathon")
	}
	return hackathon, nil
}

// Create announces a new upcoming hackathon.
func (s *HackathonService) Create(ctx context.Context, req UpcomingHackathonRequest) (*models.UpcomingHackathon, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hackathon payload")
	}
	hackathon := &models.UpcomingHackathon{
		Title:            req.Title,
		Organizer:        req.Organizer,
		Venue:            req.Venue,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		RegistrationLink: req.RegistrationLink,
	}
	if err := s.repo.Create(ctx, hackathon); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hackathon")
	}
	return hackathon, nil
}

// Update edits an announced hackathon.
func (s *HackathonService) Update(ctx context.Context, id string, req UpcomingHackathonRequest) (*models.UpcomingHackathon, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hackathon payload")
	}
	hackathon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	hackathon.Title = req.Title
	hackathon.Organizer = req.Organizer
	hackathon.Venue = req.Venue
	hackathon.StartDate = req.StartDate
	hackathon.EndDate = req.EndDate
	hackathon.RegistrationLink = req.RegistrationLink
	if err := s.repo.Update(ctx, hackathon); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hackathon")
	}
	return hackathon, nil
}

// Delete removes an announced hackathon.
func (s *HackathonService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete hackathon")
	}
	return nil
}
