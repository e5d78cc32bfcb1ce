package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

func newParticipationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func participationDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "hackathon_title", "year", "attendance_status", "achievement_level", "status",
		"rejection_reason", "proctor_id", "certificate_path", "decided_at", "created_at", "updated_at",
		"student_name", "student_register_no", "student_department", "student_proctor_id",
	}).AddRow("p1", "stu-1", "Smart India Hackathon", 2026, "ATTENDED", "WINNER", "PENDING",
		nil, "pro-1", "certificates/p1.pdf", nil, time.Now(), time.Now(),
		"Asha Nair", "REG001", "CSE", "pro-1")
}

func TestParticipationRepositoryListByProctor(t *testing.T) {
	db, mock, cleanup := newParticipationMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery("SELECT .+ FROM participations p JOIN students s ON s.id = p.student_id WHERE 1=1 AND s.proctor_id = \\$1 ORDER BY p.created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("pro-1").
		WillReturnRows(participationDetailRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM participations p JOIN students s ON s.id = p.student_id WHERE 1=1 AND s.proctor_id = $1")).
		WithArgs("pro-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.ParticipationFilter{ProctorID: "pro-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Asha Nair", records[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryUpdateStatusIfUnchanged(t *testing.T) {
	db, mock, cleanup := newParticipationMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE participations SET status = $3, rejection_reason = $4, decided_at = $5, updated_at = $6 WHERE id = $1 AND status = $2")).
		WithArgs("p1", models.ParticipationPending, models.ParticipationAccepted, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatusIfUnchanged(context.Background(), "p1", models.ParticipationPending, models.ParticipationAccepted, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryUpdateStatusConflict(t *testing.T) {
	db, mock, cleanup := newParticipationMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	// the guarded WHERE matches nothing when the row moved under us
	mock.ExpectExec(regexp.QuoteMeta("UPDATE participations SET status = $3, rejection_reason = $4, decided_at = $5, updated_at = $6 WHERE id = $1 AND status = $2")).
		WithArgs("p1", models.ParticipationPending, models.ParticipationDeclined, "reason", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reason := "reason"
	err := repo.UpdateStatusIfUnchanged(context.Background(), "p1", models.ParticipationPending, models.ParticipationDeclined, &reason, time.Now().UTC())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryExistsByTitleYear(t *testing.T) {
	db, mock, cleanup := newParticipationMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM participations WHERE student_id = $1 AND LOWER(hackathon_title) = LOWER($2) AND year = $3 LIMIT 1")).
		WithArgs("stu-1", "Smart India Hackathon", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByTitleYear(context.Background(), "stu-1", "Smart India Hackathon", 2026, "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryFindDetailsByIDs(t *testing.T) {
	db, mock, cleanup := newParticipationMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery("SELECT .+ FROM participations p JOIN students s ON s.id = p.student_id WHERE p.id = ANY\\(\\$1\\)").
		WithArgs(pq.Array([]string{"p1", "p2"})).
		WillReturnRows(participationDetailRows())

	records, err := repo.FindDetailsByIDs(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newParticipationMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec("INSERT INTO participations").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.Participation{
		StudentID:        "stu-1",
		HackathonTitle:   "Smart India Hackathon",
		Year:             2026,
		AttendanceStatus: models.AttendanceAttended,
		AchievementLevel: models.AchievementWinner,
		Status:           models.ParticipationPending,
	}
	err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
