package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

type mockOpportunityRepo struct {
	opportunities map[string]models.Opportunity
	invited       map[string][]string
	interested    map[string][]string
}

func (m *mockOpportunityRepo) List(ctx context.Context) ([]models.Opportunity, error) {
	out := make([]models.Opportunity, 0, len(m.opportunities))
	for _, o := range m.opportunities {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOpportunityRepo) FindByID(ctx context.Context, id string) (*models.Opportunity, error) {
	if o, ok := m.opportunities[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOpportunityRepo) Create(ctx context.Context, opportunity *models.Opportunity) error {
	if m.opportunities == nil {
		m.opportunities = make(map[string]models.Opportunity)
	}
	opportunity.ID = "opp-created"
	m.opportunities[opportunity.ID] = *opportunity
	return nil
}

func (m *mockOpportunityRepo) UpdateStatus(ctx context.Context, id string, status models.OpportunityStatus) error {
	o, ok := m.opportunities[id]
	if !ok {
		return sql.ErrNoRows
	}
	o.Status = status
	m.opportunities[id] = o
	return nil
}

func (m *mockOpportunityRepo) UpdatePosterPath(ctx context.Context, id, path string) error {
	o, ok := m.opportunities[id]
	if !ok {
		return sql.ErrNoRows
	}
	o.PosterPath = &path
	m.opportunities[id] = o
	return nil
}

func (m *mockOpportunityRepo) AddInvited(ctx context.Context, opportunityID string, studentIDs []string) error {
	if m.invited == nil {
		m.invited = make(map[string][]string)
	}
	for _, id := range studentIDs {
		already := false
		for _, existing := range m.invited[opportunityID] {
			if existing == id {
				already = true
				break
			}
		}
		if !already {
			m.invited[opportunityID] = append(m.invited[opportunityID], id)
		}
	}
	return nil
}

func (m *mockOpportunityRepo) AddInterested(ctx context.Context, opportunityID, studentID string) error {
	if m.interested == nil {
		m.interested = make(map[string][]string)
	}
	m.interested[opportunityID] = append(m.interested[opportunityID], studentID)
	return nil
}

func (m *mockOpportunityRepo) InvitedStudents(ctx context.Context, opportunityID string) ([]string, error) {
	return m.invited[opportunityID], nil
}

func (m *mockOpportunityRepo) InterestedStudents(ctx context.Context, opportunityID string) ([]string, error) {
	return m.interested[opportunityID], nil
}

func (m *mockOpportunityRepo) IsInvited(ctx context.Context, opportunityID, studentID string) (bool, error) {
	for _, id := range m.invited[opportunityID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

type mockOpportunityStudents struct {
	students []models.Student
	byUser   map[string]string
}

// List clamps oversized page requests the same way the real repository does,
// so paging callers are exercised against the true contract.
func (m *mockOpportunityStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var scoped []models.Student
	for _, s := range m.students {
		if filter.ProctorID != "" && (s.ProctorID == nil || *s.ProctorID != filter.ProctorID) {
			continue
		}
		scoped = append(scoped, s)
	}

	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(scoped) {
		return nil, len(scoped), nil
	}
	end := start + size
	if end > len(scoped) {
		end = len(scoped)
	}
	return scoped[start:end], len(scoped), nil
}

func (m *mockOpportunityStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range m.students {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockOpportunityStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if id, ok := m.byUser[userID]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func opportunityFixture() (*mockOpportunityRepo, *mockOpportunityStudents) {
	repo := &mockOpportunityRepo{
		opportunities: map[string]models.Opportunity{
			"opp-1": {ID: "opp-1", Title: "Summer Research Internship", Status: models.OpportunityOpen, Criteria: models.EligibilityCriteria{
				MinCGPA:            8.0,
				AllowedDepartments: []string{"CSE"},
			}},
		},
		invited:    make(map[string][]string),
		interested: make(map[string][]string),
	}
	students := &mockOpportunityStudents{
		students: []models.Student{
			{ID: "stu-1", UserID: "user-stu-1", FullName: "Asha Nair", Department: "CSE", CGPA: 8.5, ProctorID: strPtr("pro-1")},
			{ID: "stu-2", UserID: "user-stu-2", FullName: "Ravi Kumar", Department: "CSE", CGPA: 7.9, ProctorID: strPtr("pro-1")},
			{ID: "stu-3", UserID: "user-stu-3", FullName: "Meera Pillai", Department: "ECE", CGPA: 8.5, ProctorID: strPtr("pro-2")},
		},
		byUser: map[string]string{"user-stu-1": "stu-1", "user-stu-2": "stu-2", "user-stu-3": "stu-3"},
	}
	return repo, students
}

func TestOpportunityScanFiltersByCriteria(t *testing.T) {
	repo, students := opportunityFixture()
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	eligible, err := svc.Scan(context.Background(), "opp-1")
	require.NoError(t, err)
	// 8.5 CGPA in CSE qualifies; 7.9 in CSE and 8.5 outside CSE do not
	require.Len(t, eligible, 1)
	assert.Equal(t, "stu-1", eligible[0].ID)
}

func TestEligibilityCriteriaMatches(t *testing.T) {
	criteria := models.EligibilityCriteria{MinCGPA: 8.0, MinCredits: 2, AllowedDepartments: []string{"CSE"}, EligibleYears: []int{3, 4}}

	assert.True(t, criteria.Matches(&models.Student{CGPA: 8.5, Credits: 3, Department: "CSE", YearOfStudy: 3}))
	assert.False(t, criteria.Matches(&models.Student{CGPA: 7.9, Credits: 3, Department: "CSE", YearOfStudy: 3}))
	assert.False(t, criteria.Matches(&models.Student{CGPA: 8.5, Credits: 1, Department: "CSE", YearOfStudy: 3}))
	assert.False(t, criteria.Matches(&models.Student{CGPA: 8.5, Credits: 3, Department: "ECE", YearOfStudy: 3}))
	assert.False(t, criteria.Matches(&models.Student{CGPA: 8.5, Credits: 3, Department: "CSE", YearOfStudy: 2}))

	// empty lists match every department and year
	open := models.EligibilityCriteria{}
	assert.True(t, open.Matches(&models.Student{Department: "MECH", YearOfStudy: 1}))
}

func TestOpportunityMarkInterestRequiresInvitation(t *testing.T) {
	repo, students := opportunityFixture()
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	err := svc.MarkInterest(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, "opp-1")
	require.Error(t, err)

	require.NoError(t, svc.Invite(context.Background(), "opp-1", InviteRequest{StudentIDs: []string{"stu-1"}}))
	err = svc.MarkInterest(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, "opp-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1"}, repo.interested["opp-1"])
}

func TestOpportunityMarkInterestClosed(t *testing.T) {
	repo, students := opportunityFixture()
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	require.NoError(t, svc.Invite(context.Background(), "opp-1", InviteRequest{StudentIDs: []string{"stu-1"}}))
	require.NoError(t, svc.Close(context.Background(), "opp-1"))

	err := svc.MarkInterest(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, "opp-1")
	require.Error(t, err)
}

func TestOpportunityInviteSetOnlyGrows(t *testing.T) {
	repo, students := opportunityFixture()
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	require.NoError(t, svc.Invite(context.Background(), "opp-1", InviteRequest{StudentIDs: []string{"stu-1", "stu-2"}}))
	require.NoError(t, svc.Invite(context.Background(), "opp-1", InviteRequest{StudentIDs: []string{"stu-1"}}))
	assert.Equal(t, []string{"stu-1", "stu-2"}, repo.invited["opp-1"])
}

func TestOpportunityRadarScopesToProctor(t *testing.T) {
	repo, students := opportunityFixture()
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	require.NoError(t, svc.Invite(context.Background(), "opp-1", InviteRequest{StudentIDs: []string{"stu-1", "stu-2", "stu-3"}}))
	require.NoError(t, svc.MarkInterest(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, "opp-1"))

	entries, err := svc.Radar(context.Background(), "pro-1", "opp-1")
	require.NoError(t, err)
	// stu-3 is invited but supervised by another proctor
	require.Len(t, entries, 2)
	byID := make(map[string]models.RadarEntry, len(entries))
	for _, e := range entries {
		byID[e.StudentID] = e
	}
	assert.True(t, byID["stu-1"].HasAccepted)
	assert.False(t, byID["stu-2"].HasAccepted)
}

func TestOpportunityScanCoversWholePopulation(t *testing.T) {
	repo, students := opportunityFixture()
	// grow the population well past one repository page
	for i := 0; i < 250; i++ {
		students.students = append(students.students, models.Student{
			ID:         fmt.Sprintf("bulk-%03d", i),
			FullName:   fmt.Sprintf("Student %03d", i),
			Department: "CSE",
			CGPA:       9.0,
			ProctorID:  strPtr("pro-1"),
		})
	}
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	eligible, err := svc.Scan(context.Background(), "opp-1")
	require.NoError(t, err)
	// stu-1 plus every bulk student qualifies, including those past page one
	require.Len(t, eligible, 251)
}

func TestOpportunityRadarCoversAllProctees(t *testing.T) {
	repo, students := opportunityFixture()
	var invited []string
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("proctee-%03d", i)
		students.students = append(students.students, models.Student{
			ID:         id,
			FullName:   fmt.Sprintf("Proctee %03d", i),
			Department: "CSE",
			ProctorID:  strPtr("pro-1"),
		})
		invited = append(invited, id)
	}
	require.NoError(t, repo.AddInvited(context.Background(), "opp-1", invited))
	svc := NewOpportunityService(repo, students, nil, nil, 0, nil, nil)

	entries, err := svc.Radar(context.Background(), "pro-1", "opp-1")
	require.NoError(t, err)
	// every invited proctee shows up, not just the first repository page
	require.Len(t, entries, 120)
}
