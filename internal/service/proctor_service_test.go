package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

type mockProctorRepo struct {
	proctors     map[string]models.Proctor
	byUser       map[string]string
	byDepartment map[string]string
}

func (m *mockProctorRepo) FindByID(ctx context.Context, id string) (*models.Proctor, error) {
	if p, ok := m.proctors[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProctorRepo) FindByUserID(ctx context.Context, userID string) (*models.Proctor, error) {
	if id, ok := m.byUser[userID]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockProctorRepo) FirstByDepartment(ctx context.Context, department string) (*models.Proctor, error) {
	if id, ok := m.byDepartment[department]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockProctorRepo) ListByDepartment(ctx context.Context, department string) ([]models.Proctor, error) {
	var out []models.Proctor
	for _, p := range m.proctors {
		if p.Department == department {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockProctorStudents struct {
	students   map[string]models.Student
	reassigned map[string]*string
}

func (m *mockProctorStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProctorStudents) UpdateProctor(ctx context.Context, id string, proctorID *string) error {
	if m.reassigned == nil {
		m.reassigned = make(map[string]*string)
	}
	m.reassigned[id] = proctorID
	s, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.ProctorID = proctorID
	m.students[id] = s
	return nil
}

func proctorFixture() (*mockProctorRepo, *mockProctorStudents) {
	proctors := &mockProctorRepo{
		proctors: map[string]models.Proctor{
			"pro-1": {ID: "pro-1", UserID: "user-pro-1", Department: "CSE"},
			"pro-2": {ID: "pro-2", UserID: "user-pro-2", Department: "CSE"},
		},
		byUser:       map[string]string{"user-pro-1": "pro-1", "user-pro-2": "pro-2"},
		byDepartment: map[string]string{"CSE": "pro-1"},
	}
	students := &mockProctorStudents{
		students: map[string]models.Student{
			"stu-assigned":   {ID: "stu-assigned", Department: "CSE", ProctorID: strPtr("pro-2")},
			"stu-unassigned": {ID: "stu-unassigned", Department: "CSE"},
			"stu-orphan":     {ID: "stu-orphan", Department: "CIVIL"},
		},
	}
	return proctors, students
}

func TestResolveAtSubmissionPrefersExplicitAssignment(t *testing.T) {
	proctors, students := proctorFixture()
	svc := NewProctorService(proctors, students, nil, nil)

	student := students.students["stu-assigned"]
	resolved, err := svc.ResolveAtSubmission(context.Background(), &student)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "pro-2", *resolved)
}

func TestResolveAtSubmissionDepartmentFallback(t *testing.T) {
	proctors, students := proctorFixture()
	svc := NewProctorService(proctors, students, nil, nil)

	student := students.students["stu-unassigned"]
	resolved, err := svc.ResolveAtSubmission(context.Background(), &student)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "pro-1", *resolved)
}

func TestResolveAtSubmissionNoProctorAvailable(t *testing.T) {
	proctors, students := proctorFixture()
	svc := NewProctorService(proctors, students, nil, nil)

	// no proctor in the department leaves the record proctor-less rather
	// than failing the submission
	student := students.students["stu-orphan"]
	resolved, err := svc.ResolveAtSubmission(context.Background(), &student)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveForViewTracksReassignment(t *testing.T) {
	proctors, students := proctorFixture()
	svc := NewProctorService(proctors, students, nil, nil)

	resolved, err := svc.ResolveForView(context.Background(), "stu-assigned")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "pro-2", *resolved)

	require.NoError(t, svc.Reassign(context.Background(), ReassignStudentRequest{StudentID: "stu-assigned", ProctorID: strPtr("pro-1")}))

	resolved, err = svc.ResolveForView(context.Background(), "stu-assigned")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "pro-1", *resolved)
}

func TestReassignUnknownProctor(t *testing.T) {
	proctors, students := proctorFixture()
	svc := NewProctorService(proctors, students, nil, nil)

	err := svc.Reassign(context.Background(), ReassignStudentRequest{StudentID: "stu-assigned", ProctorID: strPtr("missing")})
	require.Error(t, err)
	assert.Empty(t, students.reassigned)
}

func TestReassignToNilClearsAssignment(t *testing.T) {
	proctors, students := proctorFixture()
	svc := NewProctorService(proctors, students, nil, nil)

	require.NoError(t, svc.Reassign(context.Background(), ReassignStudentRequest{StudentID: "stu-assigned"}))
	assert.Nil(t, students.students["stu-assigned"].ProctorID)
}
