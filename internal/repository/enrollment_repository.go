package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/codeathon-api/internal/models"
)

const enrollmentColumns = `id, student_id, upcoming_hackathon_id, student_name, student_register_no, student_department, student_year, status, rejection_reason, proctor_id, decided_at, created_at, updated_at`

// EnrollmentRepository manages persistence for enrollment requests.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollment requests matching the provided filters.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	base := "FROM enrollments WHERE 1=1"
	var args []interface{}
	var conditions []string

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.UpcomingHackathonID != "" {
		conditions = append(conditions, fmt.Sprintf("upcoming_hackathon_id = $%d", len(args)+1))
		args = append(args, filter.UpcomingHackathonID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProctorID != "" {
		conditions = append(conditions, fmt.Sprintf("proctor_id = $%d", len(args)+1))
		args = append(args, filter.ProctorID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", enrollmentColumns, base, size, offset)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID fetches an enrollment request by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1 LIMIT 1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the student already requested enrollment for the
// upcoming hackathon.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, upcomingHackathonID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND upcoming_hackathon_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, upcomingHackathonID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts a new enrollment request.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, upcoming_hackathon_id, student_name, student_register_no, student_department, student_year, status, rejection_reason, proctor_id, decided_at, created_at, updated_at)
        VALUES (:id, :student_id, :upcoming_hackathon_id, :student_name, :student_register_no, :student_department, :student_year, :status, :rejection_reason, :proctor_id, :decided_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatusIfUnchanged transitions an enrollment decision with an optimistic
// status precondition. Returns sql.ErrNoRows on a concurrent change.
func (r *EnrollmentRepository) UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.EnrollmentStatus, reason *string, decidedAt time.Time) error {
	const query = `UPDATE enrollments SET status = $3, rejection_reason = $4, decided_at = $5, updated_at = $6 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, prev, next, reason, decidedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment status result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
