package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

type mockParticipationRepo struct {
	records     map[string]models.Participation
	details     map[string]models.ParticipationDetail
	existing    map[string]bool
	updateErr   error
	casConflict map[string]bool
}

func (m *mockParticipationRepo) List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationDetail, int, error) {
	out := make([]models.ParticipationDetail, 0, len(m.details))
	for _, d := range m.details {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockParticipationRepo) FindByID(ctx context.Context, id string) (*models.Participation, error) {
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockParticipationRepo) FindDetailByID(ctx context.Context, id string) (*models.ParticipationDetail, error) {
	if d, ok := m.details[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockParticipationRepo) FindDetailsByIDs(ctx context.Context, ids []string) ([]models.ParticipationDetail, error) {
	out := []models.ParticipationDetail{}
	for _, id := range ids {
		if d, ok := m.details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockParticipationRepo) ExistsByTitleYear(ctx context.Context, studentID, title string, year int, excludeID string) (bool, error) {
	return m.existing[studentID+"/"+title], nil
}

func (m *mockParticipationRepo) Create(ctx context.Context, record *models.Participation) error {
	if m.records == nil {
		m.records = make(map[string]models.Participation)
	}
	if record.ID == "" {
		record.ID = "generated"
	}
	m.records[record.ID] = *record
	return nil
}

func (m *mockParticipationRepo) UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.ParticipationStatus, reason *string, decidedAt time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.casConflict[id] {
		return sql.ErrNoRows
	}
	r, ok := m.records[id]
	if !ok || r.Status != prev {
		return sql.ErrNoRows
	}
	r.Status = next
	r.RejectionReason = reason
	r.DecidedAt = &decidedAt
	m.records[id] = r
	return nil
}

func (m *mockParticipationRepo) UpdateCertificatePath(ctx context.Context, id, path string) error {
	r, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.CertificatePath = &path
	m.records[id] = r
	return nil
}

func (m *mockParticipationRepo) CountPendingWithoutProctor(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockParticipationRepo) StatusCounts(ctx context.Context) (map[models.ParticipationStatus]int, error) {
	return map[models.ParticipationStatus]int{}, nil
}

type mockLedgerStudents struct {
	students map[string]models.Student
	byUser   map[string]string
	deltas   map[string][]int
}

func (m *mockLedgerStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLedgerStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if id, ok := m.byUser[userID]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockLedgerStudents) AdjustCredits(ctx context.Context, id string, delta int) error {
	if m.deltas == nil {
		m.deltas = make(map[string][]int)
	}
	m.deltas[id] = append(m.deltas[id], delta)
	s, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Credits += delta
	if s.Credits < 0 {
		s.Credits = 0
	}
	m.students[id] = s
	return nil
}

type mockProctorResolver struct {
	resolved *string
	profiles map[string]models.Proctor
}

func (m *mockProctorResolver) ResolveAtSubmission(ctx context.Context, student *models.Student) (*string, error) {
	return m.resolved, nil
}

func (m *mockProctorResolver) Profile(ctx context.Context, userID string) (*models.Proctor, error) {
	if p, ok := m.profiles[userID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func strPtr(s string) *string { return &s }

func participationFixture() (*mockParticipationRepo, *mockLedgerStudents, *mockProctorResolver) {
	students := &mockLedgerStudents{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", UserID: "user-stu-1", FullName: "Asha Nair", Department: "CSE", Credits: 0, ProctorID: strPtr("pro-1")},
			"stu-2": {ID: "stu-2", UserID: "user-stu-2", FullName: "Ravi Kumar", Department: "CSE", Credits: 2, ProctorID: strPtr("pro-2")},
		},
		byUser: map[string]string{"user-stu-1": "stu-1", "user-stu-2": "stu-2"},
	}
	proctors := &mockProctorResolver{
		resolved: strPtr("pro-1"),
		profiles: map[string]models.Proctor{
			"user-pro-1": {ID: "pro-1", UserID: "user-pro-1", Department: "CSE"},
			"user-pro-2": {ID: "pro-2", UserID: "user-pro-2", Department: "ECE"},
		},
	}
	repo := &mockParticipationRepo{
		records:  make(map[string]models.Participation),
		details:  make(map[string]models.ParticipationDetail),
		existing: make(map[string]bool),
	}
	return repo, students, proctors
}

func seedPending(repo *mockParticipationRepo, id, studentID string, attendance models.AttendanceStatus, achievement models.AchievementLevel) {
	record := models.Participation{
		ID:               id,
		StudentID:        studentID,
		HackathonTitle:   "Smart India Hackathon",
		Year:             2026,
		AttendanceStatus: attendance,
		AchievementLevel: achievement,
		Status:           models.ParticipationPending,
	}
	repo.records[id] = record
	repo.details[id] = models.ParticipationDetail{Participation: record, StudentProctorID: strPtr("pro-1")}
}

func TestParticipationSubmit(t *testing.T) {
	repo, students, proctors := participationFixture()
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	record, err := svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, SubmitParticipationRequest{
		HackathonTitle:   "Smart India Hackathon",
		Year:             2026,
		AttendanceStatus: models.AttendanceAttended,
		AchievementLevel: models.AchievementWinner,
		CertificatePath:  "certificates/abc.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationPending, record.Status)
	require.NotNil(t, record.ProctorID)
	assert.Equal(t, "pro-1", *record.ProctorID)
}

func TestParticipationSubmitAttendedRequiresCertificate(t *testing.T) {
	repo, students, proctors := participationFixture()
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, SubmitParticipationRequest{
		HackathonTitle:   "Smart India Hackathon",
		Year:             2026,
		AttendanceStatus: models.AttendanceAttended,
		AchievementLevel: models.AchievementNone,
	})
	require.Error(t, err)
}

func TestParticipationSubmitDuplicate(t *testing.T) {
	repo, students, proctors := participationFixture()
	repo.existing["stu-1/Smart India Hackathon"] = true
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, SubmitParticipationRequest{
		HackathonTitle:   "Smart India Hackathon",
		Year:             2026,
		AttendanceStatus: models.AttendanceRegistered,
		AchievementLevel: models.AchievementNone,
	})
	require.Error(t, err)
}

func TestParticipationDecideAcceptCreditsLedger(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementWinner)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	updated, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, "p1", DecideParticipationRequest{Status: models.ParticipationAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationAccepted, updated.Status)
	assert.Equal(t, []int{3}, students.deltas["stu-1"])
	assert.Equal(t, 3, students.students["stu-1"].Credits)
}

func TestParticipationDecideDeclineRequiresReason(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementNone)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, "p1", DecideParticipationRequest{Status: models.ParticipationDeclined})
	require.Error(t, err)

	updated, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, "p1", DecideParticipationRequest{Status: models.ParticipationDeclined, RejectionReason: "certificate illegible"})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationDeclined, updated.Status)
	// pending to declined never touches the ledger
	assert.Empty(t, students.deltas["stu-1"])
}

func TestParticipationDecideReversalDebitsLedger(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementRunnerUp)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	actor := Actor{UserID: "user-pro-1", Role: models.RoleProctor}
	_, err := svc.Decide(context.Background(), actor, "p1", DecideParticipationRequest{Status: models.ParticipationAccepted})
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), actor, "p1", DecideParticipationRequest{Status: models.ParticipationDeclined, RejectionReason: "duplicate claim"})
	require.NoError(t, err)

	assert.Equal(t, []int{2, -2}, students.deltas["stu-1"])
	assert.Equal(t, 0, students.students["stu-1"].Credits)
}

func TestParticipationDecideForeignProctorForbidden(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementNone)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-2", Role: models.RoleProctor}, "p1", DecideParticipationRequest{Status: models.ParticipationAccepted})
	require.Error(t, err)
	assert.Equal(t, models.ParticipationPending, repo.records["p1"].Status)
}

func TestParticipationDecideAdminBypassesOwnership(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementNone)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	updated, err := svc.Decide(context.Background(), Actor{UserID: "user-admin", Role: models.RoleAdmin}, "p1", DecideParticipationRequest{Status: models.ParticipationAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationAccepted, updated.Status)
}

func TestParticipationDecideConcurrentConflict(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementWinner)
	repo.casConflict = map[string]bool{"p1": true}
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, "p1", DecideParticipationRequest{Status: models.ParticipationAccepted})
	require.Error(t, err)
	assert.Empty(t, students.deltas["stu-1"])
}

func TestParticipationBulkDecideUnknownIDFailsClosed(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementNone)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.BulkDecide(context.Background(), Actor{UserID: "user-admin", Role: models.RoleAdmin}, BulkDecideRequest{
		IDs:    []string{"p1", "missing"},
		Status: models.ParticipationAccepted,
	})
	require.Error(t, err)
	// nothing mutated when the batch fails authorization or existence
	assert.Equal(t, models.ParticipationPending, repo.records["p1"].Status)
}

func TestParticipationBulkDecideForeignOwnershipFailsClosed(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementNone)
	seedPending(repo, "p2", "stu-2", models.AttendanceAttended, models.AchievementNone)
	d2 := repo.details["p2"]
	d2.StudentProctorID = strPtr("pro-2")
	repo.details["p2"] = d2
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	_, err := svc.BulkDecide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, BulkDecideRequest{
		IDs:    []string{"p1", "p2"},
		Status: models.ParticipationAccepted,
	})
	require.Error(t, err)
	assert.Equal(t, models.ParticipationPending, repo.records["p1"].Status)
	assert.Equal(t, models.ParticipationPending, repo.records["p2"].Status)
}

func TestParticipationBulkDecidePartialSuccess(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementWinner)
	seedPending(repo, "p2", "stu-1", models.AttendanceAttended, models.AchievementNone)
	repo.casConflict = map[string]bool{"p2": true}
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	result, err := svc.BulkDecide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, BulkDecideRequest{
		IDs:    []string{"p1", "p2"},
		Status: models.ParticipationAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, result.Success)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "p2", result.Failed[0].ID)
	assert.Equal(t, []int{3}, students.deltas["stu-1"])
}

func TestParticipationAttachCertificateOwnership(t *testing.T) {
	repo, students, proctors := participationFixture()
	seedPending(repo, "p1", "stu-1", models.AttendanceAttended, models.AchievementNone)
	svc := NewParticipationService(repo, students, proctors, nil, nil, nil, nil)

	err := svc.AttachCertificate(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, "p1", "certificates/x.pdf")
	require.Error(t, err)

	err = svc.AttachCertificate(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, "p1", "certificates/x.pdf")
	require.NoError(t, err)
	require.NotNil(t, repo.records["p1"].CertificatePath)
	assert.Equal(t, "certificates/x.pdf", *repo.records["p1"].CertificatePath)
}
