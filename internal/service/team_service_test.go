package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

type mockTeamRepo struct {
	teams       map[string]models.Team
	byCode      map[string]string
	members     map[string][]models.TeamMember
	memberships map[string]string
	takenCodes  map[string]bool
	nextID      int
}

func (m *mockTeamRepo) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	out := make([]models.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id string) (*models.Team, error) {
	if t, ok := m.teams[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeamRepo) FindByCode(ctx context.Context, code string) (*models.Team, error) {
	if id, ok := m.byCode[code]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeamRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.takenCodes[code] {
		return true, nil
	}
	_, ok := m.byCode[code]
	return ok, nil
}

func (m *mockTeamRepo) Members(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	return m.members[teamID], nil
}

func (m *mockTeamRepo) FindMembership(ctx context.Context, upcomingHackathonID, studentID string) (*models.TeamMember, error) {
	if teamID, ok := m.memberships[upcomingHackathonID+"/"+studentID]; ok {
		return &models.TeamMember{TeamID: teamID, StudentID: studentID}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeamRepo) Create(ctx context.Context, team *models.Team, creator *models.TeamMember) error {
	if m.teams == nil {
		m.teams = make(map[string]models.Team)
		m.byCode = make(map[string]string)
		m.members = make(map[string][]models.TeamMember)
		m.memberships = make(map[string]string)
	}
	m.nextID++
	team.ID = fmt.Sprintf("team-%d", m.nextID)
	creator.TeamID = team.ID
	m.teams[team.ID] = *team
	m.byCode[team.Code] = team.ID
	m.members[team.ID] = []models.TeamMember{*creator}
	m.memberships[team.UpcomingHackathonID+"/"+creator.StudentID] = team.ID
	return nil
}

func (m *mockTeamRepo) AddMember(ctx context.Context, member *models.TeamMember) error {
	m.members[member.TeamID] = append(m.members[member.TeamID], *member)
	team := m.teams[member.TeamID]
	m.memberships[team.UpcomingHackathonID+"/"+member.StudentID] = member.TeamID
	return nil
}

func (m *mockTeamRepo) UpdateMemberCertificate(ctx context.Context, teamID, studentID string, status models.CertificateStatus, path *string) error {
	roster := m.members[teamID]
	for i := range roster {
		if roster[i].StudentID == studentID {
			roster[i].CertificateStatus = status
			if path != nil {
				roster[i].CertificatePath = path
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockTeamRepo) UpdateStatusIfUnchanged(ctx context.Context, id string, prev, next models.TeamStatus, reason *string, submittedAt, approvedAt *time.Time) error {
	t, ok := m.teams[id]
	if !ok || t.Status != prev {
		return sql.ErrNoRows
	}
	t.Status = next
	t.RejectionReason = reason
	if submittedAt != nil {
		t.SubmittedAt = submittedAt
	}
	if approvedAt != nil {
		t.ApprovedAt = approvedAt
	}
	m.teams[id] = t
	return nil
}

type mockHackathonReader struct {
	hackathons map[string]models.UpcomingHackathon
}

func (m *mockHackathonReader) FindByID(ctx context.Context, id string) (*models.UpcomingHackathon, error) {
	if h, ok := m.hackathons[id]; ok {
		return &h, nil
	}
	return nil, sql.ErrNoRows
}

func teamFixture() (*mockTeamRepo, *mockLedgerStudents, *mockHackathonReader, *mockProctorResolver) {
	repo := &mockTeamRepo{
		teams:       make(map[string]models.Team),
		byCode:      make(map[string]string),
		members:     make(map[string][]models.TeamMember),
		memberships: make(map[string]string),
	}
	students := &mockLedgerStudents{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", UserID: "user-stu-1", FullName: "Asha Nair", RegisterNo: "REG001", Email: "asha@example.edu", Department: "CSE", ProctorID: strPtr("pro-1")},
			"stu-2": {ID: "stu-2", UserID: "user-stu-2", FullName: "Ravi Kumar", RegisterNo: "REG002", Email: "ravi@example.edu", Department: "CSE", ProctorID: strPtr("pro-1")},
		},
		byUser: map[string]string{"user-stu-1": "stu-1", "user-stu-2": "stu-2"},
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

func TestTeamCreateGeneratesJoinCode(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	detail, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	assert.Equal(t, models.TeamDraft, detail.Status)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{6}$`), detail.Code)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, "stu-1", detail.Members[0].StudentID)
	assert.Equal(t, "stu-1", detail.LeaderID)
}

func TestTeamCreateBlockedByExistingMembership(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	repo.memberships["hack-1/stu-1"] = "other-team"
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	_, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.Error(t, err)
}

func TestTeamJoinLowercaseCode(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	// the join handle is case-insensitive on input
	joined, err := svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: strings.ToLower(created.Code)})
	require.NoError(t, err)
	assert.Len(t, joined.Members, 2)
}

func TestTeamJoinClosedAfterSubmission(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	repo.teams["team-x"] = models.Team{ID: "team-x", Code: "ABC123", UpcomingHackathonID: "hack-1", LeaderID: "stu-9", Status: models.TeamPendingApproval}
	repo.byCode["ABC123"] = "team-x"
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	_, err := svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: "ABC123"})
	require.Error(t, err)
}

func TestTeamSubmitNeedsTwoMembers(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, created.ID)
	require.Error(t, err)
	assert.Equal(t, models.TeamDraft, repo.teams[created.ID].Status)
}

func TestTeamSubmitLeaderOnly(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: created.Code})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, created.ID)
	require.Error(t, err)

	submitted, err := svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamPendingApproval, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)
}

func TestTeamDecideApproveNoLedgerEffect(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: created.Code})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, created.ID)
	require.NoError(t, err)

	decided, err := svc.Decide(context.Background(), Actor{UserID: "user-pro-1", Role: models.RoleProctor}, created.ID, DecideTeamRequest{Status: models.TeamApproved})
	require.NoError(t, err)
	assert.Equal(t, models.TeamApproved, decided.Status)
	assert.NotNil(t, decided.ApprovedAt)
	// team approval never moves credits
	assert.Empty(t, students.deltas)
}

func TestTeamDecideDeclineThenReopen(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: created.Code})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, created.ID)
	require.NoError(t, err)

	proctor := Actor{UserID: "user-pro-1", Role: models.RoleProctor}
	_, err = svc.Decide(context.Background(), proctor, created.ID, DecideTeamRequest{Status: models.TeamDeclined})
	require.Error(t, err)

	declined, err := svc.Decide(context.Background(), proctor, created.ID, DecideTeamRequest{Status: models.TeamDeclined, RejectionReason: "roster incomplete"})
	require.NoError(t, err)
	assert.Equal(t, models.TeamDeclined, declined.Status)

	reopened, err := svc.Reopen(context.Background(), proctor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamDraft, reopened.Status)
	assert.Nil(t, reopened.RejectionReason)
}

func TestTeamDecideForeignProctorForbidden(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: created.Code})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, created.ID)
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), Actor{UserID: "user-pro-2", Role: models.RoleProctor}, created.ID, DecideTeamRequest{Status: models.TeamApproved})
	require.Error(t, err)
	assert.Equal(t, models.TeamPendingApproval, repo.teams[created.ID].Status)
}

func TestTeamUploadCertificateOwnRowOnly(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	// stu-2 never joined, so there is no member row to update
	err = svc.UploadCertificate(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, created.ID, "team-certificates/x.pdf")
	require.Error(t, err)

	err = svc.UploadCertificate(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, created.ID, "team-certificates/x.pdf")
	require.NoError(t, err)
	roster := repo.members[created.ID]
	require.Len(t, roster, 1)
	assert.Equal(t, models.CertificateUploaded, roster[0].CertificateStatus)
}

func TestTeamCodesUniqueOverManyGenerations(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	repo.takenCodes = make(map[string]bool)
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		code, err := svc.generateCode(context.Background())
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.False(t, seen[code], "code %s handed out twice", code)
		seen[code] = true
		repo.takenCodes[code] = true
	}
}

func TestTeamJoinBlockedByExistingMembership(t *testing.T) {
	repo, students, hackathons, proctors := teamFixture()
	svc := NewTeamService(repo, students, hackathons, proctors, nil, nil, nil)

	created, err := svc.Create(context.Background(), Actor{UserID: "user-stu-1", Role: models.RoleStudent}, CreateTeamRequest{Name: "Bit Benders", UpcomingHackathonID: "hack-1"})
	require.NoError(t, err)

	// stu-2 already belongs to another team for the same hackathon
	repo.memberships["hack-1/stu-2"] = "other-team"
	_, err = svc.Join(context.Background(), Actor{UserID: "user-stu-2", Role: models.RoleStudent}, JoinTeamRequest{Code: created.Code})
	require.Error(t, err)
}
