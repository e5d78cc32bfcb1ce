package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/codeathon-api/internal/models"
)

const hackathonColumns = `id, title, organizer, venue, start_date, end_date, registration_link, poster_path, created_at, updated_at`

// HackathonRepository manages persistence for upcoming hackathons.
type HackathonRepository struct {
	db *sqlx.DB
}

// NewHackathonRepository constructs a HackathonRepository.
func NewHackathonRepository(db *sqlx.DB) *HackathonRepository {
	return &HackathonRepository{db: db}
}

// List returns upcoming hackathons ordered by start date.
func (r *HackathonRepository) List(ctx context.Context) ([]models.UpcomingHackathon, error) {
	query := fmt.Sprintf("SELECT %s FROM upcoming_hackathons ORDER BY start_date ASC", hackathonColumns)
	var hackathons []models.UpcomingHackathon
	if err := r.db.SelectContext(ctx, &hackathons, query); err != nil {
		return nil, fmt.Errorf("list upcoming hackathons: %w", err)
	}
	return hackathons, nil
}

// FindByID fetches an upcoming hackathon by ID.
func (r *HackathonRepository) FindByID(ctx context.Context, id string) (*models.UpcomingHackathon, error) {
	query := fmt.Sprintf("SELECT %s FROM upcoming_hackathons WHERE id = $1 LIMIT 1", hackathonColumns)
	var hackathon models.UpcomingHackathon
	if err := r.db.GetContext(ctx, &hackathon, query, id); err != nil {
		return nil, err
	}
	return &hackathon, nil
}

// Create inserts a new upcoming hackathon.
func (r *HackathonRepository) Create(ctx context.Context, hackathon *models.UpcomingHackathon) error {
	if hackathon.ID == "" {
		hackathon.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if hackathon.CreatedAt.IsZero() {
		hackathon.CreatedAt = now
	}
	hackathon.UpdatedAt = now
	const query = `INSERT INTO upcoming_hackathons (id, title, organizer, venue, start_date, end_date, registration_link, poster_path, created_at, updated_at)
        VALUES (:id, :title, :organizer, :venue, :start_date, :end_date, :registration_link, :poster_path, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hackathon); err != nil {
		return fmt.Errorf("create upcoming hackathon: %w", err)
	}
	return nil
}

// Update modifies an existing upcoming hackathon.
func (r *HackathonRepository) Update(ctx context.Context, hackathon *models.UpcomingHackathon) error {
	hackathon.UpdatedAt = time.Now().UTC()
	const query = `UPDATE upcoming_hackathons SET title = :title, organizer = :organizer, venue = :venue, start_date = :start_date, end_date = :end_date, registration_link = :registration_link, poster_path = :poster_path, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, hackathon); err != nil {
		return fmt.Errorf("update upcoming hackathon: %w", err)
	}
	return nil
}

// Delete removes an upcoming hackathon.
func (r *HackathonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM upcoming_hackathons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete upcoming hackathon: %w", err)
	}
	return nil
}
