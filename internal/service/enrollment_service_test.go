package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	nextID      int
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.ProctorID != "" && (e.ProctorID == nil || *e.ProctorID != filter.ProctorID) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, studentID, upcomingHackathonID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.UpcomingHackathonID == upcomingHackathonID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	m.nextID++
	enrollment.ID = fmt.Sprintf("enr-%d", m.nextID)
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.EnrollmentStatus, reason *string, decidedAt time.Time) error {
	e, ok := m.enrollments[id]
	if !ok || e.Status != prev {
		return sql.ErrNoRows
	}
	e.Status = next
	e.RejectionReason = reason
	e.DecidedAt = &decidedAt
	m.enrollments[id] = e
	return nil
}

func enrollmentFixture() (*mockEnrollmentRepo, *mockLedgerStudents, *mockHackathonReader, *mockProctorResolver) {
	repo := &mockEnrollmentRepo{enrollments: make(map[string]models.Enrollment)}
	students := &mockLedgerStudents{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", UserID: "user-stu-1", FullName: "Asha Nair", RegisterNo: "REG001", Email: "asha@example.edu", Department: "CSE", YearOfStudy: 3, ProctorID: strPtr("pro-1")},
		},
		byUser: map[string]string{"user-stu-1": "stu-1"},
	}
	hackathons := &mockHackathonReader{hackathons: map[string]models.UpcomingHackathon{
		"hack-1": {ID: "hack-1", Title: "Smart India Hackathon"},
	}}
	proctors := &mockProctorResolver{
		resolved: strPtr("pro-1"),
		profiles: map[string]models.Proctor{
			"user-pro-1": {ID: "pro-1", UserID: "user-pro-1", Department: "CSE"},
			"user-pro-2": {ID: "pro-2", UserID: "user-pro-2", Department: "ECE"},
		},
	}
	return repo, students, hackathons, proctors
}

func TestEnrollSnapshotsStudentIdentity(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)
	assert.Equal(t, "Asha Nair", enrollment.StudentName)
	assert.Equal(t, "REG001", enrollment.StudentRegisterNo)
	assert.Equal(t, "CSE", enrollment.StudentDepartment)
	assert.Equal(t, 3, enrollment.StudentYear)
	require.NotNil(t, enrollment.ProctorID)
	assert.Equal(t, "pro-1", *enrollment.ProctorID)
}

func TestEnrollDuplicateRejected(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	actor := Actor{UserID: "user-stu-1", Role: models.RoleStudent}
	_, err := svc.Enroll(context.Background(), actor, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	_, err = svc.Enroll(context.Background(), actor, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.Error(t, err)
}

func TestEnrollUnknownHackathon(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, EnrollRequest{UpcomingHackathonID: "missing"})
	require.Error(t, err)
}

func TestEnrollmentDecideOwnership(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), Actor{UserID: "user-pro-2", Role: models.RoleProctor}, enrollment.ID, DecideEnrollmentRequest{Status: models.EnrollmentApproved})
	require.Error(t, err)

	decided, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, enrollment.ID, DecideEnrollmentRequest{Status: models.EnrollmentApproved})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, decided.Status)
	assert.NotNil(t, decided.DecidedAt)
}

func TestEnrollmentDecideAlreadyDecided(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	admin := Actor{UserID: "user-admin", Role: models.RoleAdmin}
	_, err = svc.Decide(context.Background(), admin, enrollment.ID, DecideEnrollmentRequest{Status: models.EnrollmentDeclined, RejectionReason: "event is full"})
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), admin, enrollment.ID, DecideEnrollmentRequest{Status: models.EnrollmentApproved})
	require.Error(t, err)
}

func TestEnrollmentDecideDeclineRequiresReason(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), Actor{UserID: "user-admin", Role: models.RoleAdmin}, enrollment.ID, DecideEnrollmentRequest{Status: models.EnrollmentDeclined})
	require.Error(t, err)
}

func TestEnrollmentGetOwnership(t *testing.T) {
	repo, students, hackathons, proctors := enrollmentFixture()
	students.students["stu-2"] = models.Student{ID: "stu-2", UserID: "user-stu-2", FullName: "Ravi Kumar", Department: "CSE"}
	students.byUser["user-stu-2"] = "stu-2"
	svc := NewEnrollmentService(repo, students, hackathons, proctors, nil, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, EnrollRequest{UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, enrollment.ID)
	require.Error(t, err)

	got, err := svc.Get(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.ID, got.ID)
}
