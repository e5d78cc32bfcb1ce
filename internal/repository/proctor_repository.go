package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/codeathon-api/internal/models"
)

const proctorColumns = `id, user_id, full_name, email, department, created_at, updated_at`

// ProctorRepository manages persistence for proctor records.
type ProctorRepository struct {
	db *sqlx.DB
}

// NewProctorRepository constructs a ProctorRepository.
func NewProctorRepository(db *sqlx.DB) *ProctorRepository {
	return &ProctorRepository{db: db}
}

// FindByID fetches a proctor by ID.
func (r *ProctorRepository) FindByID(ctx context.Context, id string) (*models.Proctor, error) {
	query := fmt.Sprintf("SELECT %s FROM proctors WHERE id = $1 LIMIT 1", proctorColumns)
	var proctor models.Proctor
	if err := r.db.GetContext(ctx, &proctor, query, id); err != nil {
		return nil, err
	}
	return &proctor, nil
}

// FindByUserID fetches the proctor profile bound to a user account.
func (r *ProctorRepository) FindByUserID(ctx context.Context, userID string) (*models.Proctor, error) {
	query := fmt.Sprintf("SELECT %s FROM proctors WHERE user_id = $1 LIMIT 1", proctorColumns)
	var proctor models.Proctor
	if err := r.db.GetContext(ctx, &proctor, query, userID); err != nil {
		return nil, err
	}
	return &proctor, nil
}

// FirstByDepartment returns the longest-serving proctor for a department.
// Ordering by created_at keeps the departmental fallback deterministic.
func (r *ProctorRepository) FirstByDepartment(ctx context.Context, department string) (*models.Proctor, error) {
	query := fmt.Sprintf("SELECT %s FROM proctors WHERE department = $1 ORDER BY created_at ASC LIMIT 1", proctorColumns)
	var proctor models.Proctor
	if err := r.db.GetContext(ctx, &proctor, query, department); err != nil {
		return nil, err
	}
	return &proctor, nil
}

// ListByDepartment returns every proctor in a department.
func (r *ProctorRepository) ListByDepartment(ctx context.Context, department string) ([]models.Proctor, error) {
	query := fmt.Sprintf("SELECT %s FROM proctors WHERE department = $1 ORDER BY full_name ASC", proctorColumns)
	var proctors []models.Proctor
	if err := r.db.SelectContext(ctx, &proctors, query, department); err != nil {
		return nil, fmt.Errorf("list proctors by department: %w", err)
	}
	return proctors, nil
}

// Create inserts a new proctor record.
func (r *ProctorRepository) Create(ctx context.Context, proctor *models.Proctor) error {
	if proctor.ID == "" {
		proctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if proctor.CreatedAt.IsZero() {
		proctor.CreatedAt = now
	}
	proctor.UpdatedAt = now
	const query = `INSERT INTO proctors (id, user_id, full_name, email, department, created_at, updated_at)
        VALUES (:id, :user_id, :full_name, :email, :department, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, proctor); err != nil {
		return fmt.Errorf("create proctor: %w", err)
	}
	return nil
}

// Update modifies an existing proctor.
func (r *ProctorRepository) Update(ctx context.Context, proctor *models.Proctor) error {
	proctor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE proctors SET full_name = :full_name, email = :email, department = :department, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, proctor); err != nil {
		return fmt.Errorf("update proctor: %w", err)
	}
	return nil
}
