package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushub/codeathon-api/internal/models"
)

type opportunityRow struct {
	ID                 string                   `db:"id"`
	Title              string                   `db:"title"`
	Description        string                   `db:"description"`
	Deadline           *time.Time               `db:"deadline"`
	Status             models.OpportunityStatus `db:"status"`
	PosterPath         *string                  `db:"poster_path"`
	MinCGPA            float64                  `db:"min_cgpa"`
	MinCredits         int                      `db:"min_credits"`
	AllowedDepartments pq.StringArray           `db:"allowed_departments"`
	EligibleYears      pq.Int64Array            `db:"eligible_years"`
	CreatedAt          time.Time                `db:"created_at"`
	UpdatedAt          time.Time                `db:"updated_at"`
}

func (row opportunityRow) toModel() models.Opportunity {
	years := make([]int, len(row.EligibleYears))
	for i, y := range row.EligibleYears {
		years[i] = int(y)
	}
	return models.Opportunity{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Deadline:    row.Deadline,
		Status:      row.Status,
		PosterPath:  row.PosterPath,
		Criteria: models.EligibilityCriteria{
			MinCGPA:            row.MinCGPA,
			MinCredits:         row.MinCredits,
			AllowedDepartments: row.AllowedDepartments,
			EligibleYears:      years,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

const opportunityColumns = `id, title, description, deadline, status, poster_path, min_cgpa, min_credits, allowed_departments, eligible_years, created_at, updated_at`

// OpportunityRepository manages persistence for opportunities and their
// invitation/interest sets.
type OpportunityRepository struct {
	db *sqlx.DB
}

// NewOpportunityRepository constructs an OpportunityRepository.
func NewOpportunityRepository(db *sqlx.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// List returns all opportunities, newest first.
func (r *OpportunityRepository) List(ctx context.Context) ([]models.Opportunity, error) {
	query := fmt.Sprintf("SELECT %s FROM opportunities ORDER BY created_at DESC", opportunityColumns)
	var rows []opportunityRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	opportunities := make([]models.Opportunity, len(rows))
	for i, row := range rows {
		opportunities[i] = row.toModel()
	}
	return opportunities, nil
}

// FindByID fetches an opportunity by ID.
func (r *OpportunityRepository) FindByID(ctx context.Context, id string) (*models.Opportunity, error) {
	query := fmt.Sprintf("SELECT %s FROM opportunities WHERE id = $1 LIMIT 1", opportunityColumns)
	var row opportunityRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	opportunity := row.toModel()
	return &opportunity, nil
}

// Create inserts a new opportunity.
func (r *OpportunityRepository) Create(ctx context.Context, opportunity *models.Opportunity) error {
	if opportunity.ID == "" {
		opportunity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if opportunity.CreatedAt.IsZero() {
		opportunity.CreatedAt = now
	}
	opportunity.UpdatedAt = now

	years := make(pq.Int64Array, len(opportunity.Criteria.EligibleYears))
	for i, y := range opportunity.Criteria.EligibleYears {
		years[i] = int64(y)
	}
	const query = `INSERT INTO opportunities (id, title, description, deadline, status, poster_path, min_cgpa, min_credits, allowed_departments, eligible_years, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		opportunity.ID, opportunity.Title, opportunity.Description, opportunity.Deadline,
		opportunity.Status, opportunity.PosterPath, opportunity.Criteria.MinCGPA, opportunity.Criteria.MinCredits,
		pq.StringArray(opportunity.Criteria.AllowedDepartments), years,
		opportunity.CreatedAt, opportunity.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}
	return nil
}

// UpdateStatus opens or closes an opportunity.
func (r *OpportunityRepository) UpdateStatus(ctx context.Context, id string, status models.OpportunityStatus) error {
	const query = `UPDATE opportunities SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update opportunity status: %w", err)
	}
	return nil
}

// UpdatePosterPath records the stored poster path.
func (r *OpportunityRepository) UpdatePosterPath(ctx context.Context, id, path string) error {
	const query = `UPDATE opportunities SET poster_path = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("update opportunity poster: %w", err)
	}
	return nil
}

// AddInvited unions student ids into the invitation set. Re-inviting an
// already-invited student is a no-op.
func (r *OpportunityRepository) AddInvited(ctx context.Context, opportunityID string, studentIDs []string) error {
	const query = `INSERT INTO opportunity_invitations (opportunity_id, student_id, created_at)
        SELECT $1, unnest($2::text[]), $3 ON CONFLICT (opportunity_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, opportunityID, pq.Array(studentIDs), time.Now().UTC()); err != nil {
		return fmt.Errorf("add invited students: %w", err)
	}
	return nil
}

// AddInterested records a student's interest. Duplicate marks are no-ops.
func (r *OpportunityRepository) AddInterested(ctx context.Context, opportunityID, studentID string) error {
	const query = `INSERT INTO opportunity_interests (opportunity_id, student_id, created_at)
        VALUES ($1, $2, $3) ON CONFLICT (opportunity_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, opportunityID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add interested student: %w", err)
	}
	return nil
}

// InvitedStudents returns the invitation set.
func (r *OpportunityRepository) InvitedStudents(ctx context.Context, opportunityID string) ([]string, error) {
	const query = `SELECT student_id FROM opportunity_invitations WHERE opportunity_id = $1 ORDER BY created_at ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, opportunityID); err != nil {
		return nil, fmt.Errorf("list invited students: %w", err)
	}
	return ids, nil
}

// InterestedStudents returns the interest set.
func (r *OpportunityRepository) InterestedStudents(ctx context.Context, opportunityID string) ([]string, error) {
	const query = `SELECT student_id FROM opportunity_interests WHERE opportunity_id = $1 ORDER BY created_at ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, opportunityID); err != nil {
		return nil, fmt.Errorf("list interested students: %w", err)
	}
	return ids, nil
}

// IsInvited reports membership in the invitation set.
func (r *OpportunityRepository) IsInvited(ctx context.Context, opportunityID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM opportunity_invitations WHERE opportunity_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, opportunityID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check invitation: %w", err)
	}
	return true, nil
}
