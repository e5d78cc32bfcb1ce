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

const teamColumns = `id, code, name, upcoming_hackathon_id, leader_id, proctor_id, status, rejection_reason, submitted_at, approved_at, created_at, updated_at`

const teamMemberColumns = `id, team_id, student_id, student_name, student_register_no, certificate_status, certificate_path, joined_at`

// TeamRepository manages persistence for teams and their rosters.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs a TeamRepository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// List returns teams matching the provided filters.
func (r *TeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	base := "FROM teams WHERE 1=1"
	var args []interface{}
	var conditions []string

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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", teamColumns, base, size, offset)

	var teams []models.Team
	if err := r.db.SelectContext(ctx, &teams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}
	return teams, total, nil
}

// FindByID fetches a team by ID.
func (r *TeamRepository) FindByID(ctx context.Context, id string) (*models.Team, error) {
	query := fmt.Sprintf("SELECT %s FROM teams WHERE id = $1 LIMIT 1", teamColumns)
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		return nil, err
	}
	return &team, nil
}

// FindByCode fetches a team by join code.
func (r *TeamRepository) FindByCode(ctx context.Context, code string) (*models.Team, error) {
	query := fmt.Sprintf("SELECT %s FROM teams WHERE code = $1 LIMIT 1", teamColumns)
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, code); err != nil {
		return nil, err
	}
	return &team, nil
}

// ExistsByCode reports whether a join code is already taken.
func (r *TeamRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM teams WHERE code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check team code: %w", err)
	}
	return true, nil
}

// Members returns a team's roster ordered by join time.
func (r *TeamRepository) Members(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	query := fmt.Sprintf("SELECT %s FROM team_members WHERE team_id = $1 ORDER BY joined_at ASC", teamMemberColumns)
	var members []models.TeamMember
	if err := r.db.SelectContext(ctx, &members, query, teamID); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// FindMembership returns the student's membership for an upcoming hackathon
// across all teams, or sql.ErrNoRows when the student is unattached.
func (r *TeamRepository) FindMembership(ctx context.Context, upcomingHackathonID, studentID string) (*models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_members m WHERE m.student_id = $2
        AND EXISTS (SELECT 1 FROM teams t WHERE t.id = m.team_id AND t.upcoming_hackathon_id = $1) LIMIT 1`,
		prefixColumns("m", teamMemberColumns))
	var member models.TeamMember
	if err := r.db.GetContext(ctx, &member, query, upcomingHackathonID, studentID); err != nil {
		return nil, err
	}
	return &member, nil
}

// Create inserts the team and its initial member in one transaction.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team, creator *models.TeamMember) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now
	}
	team.UpdatedAt = now
	creator.TeamID = team.ID
	if creator.ID == "" {
		creator.ID = uuid.NewString()
	}
	if creator.JoinedAt.IsZero() {
		creator.JoinedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create team: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const teamQuery = `INSERT INTO teams (id, code, name, upcoming_hackathon_id, leader_id, proctor_id, status, rejection_reason, submitted_at, approved_at, created_at, updated_at)
        VALUES (:id, :code, :name, :upcoming_hackathon_id, :leader_id, :proctor_id, :status, :rejection_reason, :submitted_at, :approved_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, teamQuery, team); err != nil {
		return fmt.Errorf("create team: %w", err)
	}

	const memberQuery = `INSERT INTO team_members (id, team_id, student_id, student_name, student_register_no, certificate_status, certificate_path, joined_at)
        VALUES (:id, :team_id, :student_id, :student_name, :student_register_no, :certificate_status, :certificate_path, :joined_at)`
	if _, err := tx.NamedExecContext(ctx, memberQuery, creator); err != nil {
		return fmt.Errorf("create team leader membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create team: %w", err)
	}
	return nil
}

// AddMember appends a member to the roster.
func (r *TeamRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO team_members (id, team_id, student_id, student_name, student_register_no, certificate_status, certificate_path, joined_at)
        VALUES (:id, :team_id, :student_id, :student_name, :student_register_no, :certificate_status, :certificate_path, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// UpdateMemberCertificate sets a member's certificate path and status, keyed by
// student identity.
func (r *TeamRepository) UpdateMemberCertificate(ctx context.Context, teamID, studentID string, status models.CertificateStatus, path *string) error {
	const query = `UPDATE team_members SET certificate_status = $3, certificate_path = COALESCE($4, certificate_path) WHERE team_id = $1 AND student_id = $2`
	res, err := r.db.ExecContext(ctx, query, teamID, studentID, status, path)
	if err != nil {
		return fmt.Errorf("update member certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member certificate result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatusIfUnchanged transitions a team only when its status still matches
// the value the caller read. Returns sql.ErrNoRows on a concurrent change.
func (r *TeamRepository) UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.TeamStatus, reason *string, submittedAt, approvedAt *time.Time) error {
	const query = `UPDATE teams SET status = $3, rejection_reason = $4, submitted_at = COALESCE($5, submitted_at), approved_at = $6, updated_at = $7 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, prev, next, reason, submittedAt, approvedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update team status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update team status result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = prefix + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
