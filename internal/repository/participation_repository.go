package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushub/codeathon-api/internal/models"
)

const participationColumns = `p.id, p.student_id, p.hackathon_title, p.year, p.attendance_status, p.achievement_level, p.status, p.rejection_reason, p.proctor_id, p.certificate_path, p.decided_at, p.created_at, p.updated_at`

const participationDetailColumns = participationColumns + `,
        s.full_name AS student_name, s.register_no AS student_register_no, s.department AS student_department, s.proctor_id AS student_proctor_id`

// ParticipationRepository manages persistence for participation submissions.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs a ParticipationRepository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// List returns submissions joined with their owning students.
func (r *ParticipationRepository) List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationDetail, int, error) {
	base := "FROM participations p JOIN students s ON s.id = p.student_id WHERE 1=1"
	var args []interface{}
	var conditions []string

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("p.year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.ProctorID != "" {
		// ownership is computed from the student's current proctor, not the
		// snapshot stored on the record
		conditions = append(conditions, fmt.Sprintf("s.proctor_id = $%d", len(args)+1))
		args = append(args, filter.ProctorID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"created_at": "p.created_at",
		"year":       "p.year",
		"title":      "p.hackathon_title",
		"status":     "p.status",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "p.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", participationDetailColumns, base, column, order, size, offset)

	var records []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list participations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count participations: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a submission by ID.
func (r *ParticipationRepository) FindByID(ctx context.Context, id string) (*models.Participation, error) {
	query := fmt.Sprintf("SELECT %s FROM participations p WHERE p.id = $1 LIMIT 1", participationColumns)
	var record models.Participation
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindDetailByID fetches a submission with its owning student joined on.
func (r *ParticipationRepository) FindDetailByID(ctx context.Context, id string) (*models.ParticipationDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM participations p JOIN students s ON s.id = p.student_id WHERE p.id = $1 LIMIT 1", participationDetailColumns)
	var record models.ParticipationDetail
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindDetailsByIDs fetches submissions for a set of ids. The caller checks the
// returned count against the request to detect missing records.
func (r *ParticipationRepository) FindDetailsByIDs(ctx context.Context, ids []string) ([]models.ParticipationDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM participations p JOIN students s ON s.id = p.student_id WHERE p.id = ANY($1)", participationDetailColumns)
	var records []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find participations by ids: %w", err)
	}
	return records, nil
}

// ExistsByTitleYear reports whether the student already submitted the same
// hackathon/year pair, optionally excluding a record.
func (r *ParticipationRepository) ExistsByTitleYear(ctx context.Context, studentID, title string, year int, excludeID string) (bool, error) {
	query := "SELECT 1 FROM participations WHERE student_id = $1 AND LOWER(hackathon_title) = LOWER($2) AND year = $3"
	args := []interface{}{studentID, title, year}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate participation: %w", err)
	}
	return true, nil
}

// Create inserts a new submission.
func (r *ParticipationRepository) Create(ctx context.Context, record *models.Participation) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO participations (id, student_id, hackathon_title, year, attendance_status, achievement_level, status, rejection_reason, proctor_id, certificate_path, decided_at, created_at, updated_at)
        VALUES (:id, :student_id, :hackathon_title, :year, :attendance_status, :achievement_level, :status, :rejection_reason, :proctor_id, :certificate_path, :decided_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// UpdateStatusIfUnchanged transitions a submission's decision state only when
// its status still matches the value the caller read. Returns sql.ErrNoRows
// when the record changed underneath (or disappeared), so the transition fails
// rather than silently overwriting.
func (r *ParticipationRepository) UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.ParticipationStatus, reason *string, decidedAt time.Time) error {
	const query = `UPDATE participations SET status = $3, rejection_reason = $4, decided_at = $5, updated_at = $6 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, prev, next, reason, decidedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update participation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participation status result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateCertificatePath records the stored certificate path for a submission.
func (r *ParticipationRepository) UpdateCertificatePath(ctx context.Context, id, path string) error {
	const query = `UPDATE participations SET certificate_path = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("update certificate path: %w", err)
	}
	return nil
}

// CountPendingWithoutProctor counts submissions no proctor queue can see.
func (r *ParticipationRepository) CountPendingWithoutProctor(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM participations p JOIN students s ON s.id = p.student_id WHERE p.status = $1 AND s.proctor_id IS NULL`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.ParticipationPending); err != nil {
		return 0, fmt.Errorf("count unassigned pending participations: %w", err)
	}
	return total, nil
}

// StatusCounts returns submission totals grouped by decision state.
func (r *ParticipationRepository) StatusCounts(ctx context.Context) (map[models.ParticipationStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM participations GROUP BY status`
	rows := []struct {
		Status models.ParticipationStatus `db:"status"`
		Total  int                        `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("participation status counts: %w", err)
	}
	counts := make(map[models.ParticipationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
