package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/codeathon-api/internal/models"
	"github.com/campushub/codeathon-api/pkg/cache"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	revokedAll       bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type memoryCodeStore struct {
	codes map[string]string
}

func (m *memoryCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[key] = value
	return nil
}

func (m *memoryCodeStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m.codes[key]; ok {
		return v, nil
	}
	return "", cache.ErrCodeNotFound
}

func (m *memoryCodeStore) Delete(ctx context.Context, key string) error {
	delete(m.codes, key)
	return nil
}

type recordingNotifier struct {
	sent []models.Notification
}

func (n *recordingNotifier) Notify(notification models.Notification) {
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) PasswordReset(name, email, code string) models.Notification {
	return models.Notification{
		Kind:           models.NotificationPasswordReset,
		RecipientName:  name,
		RecipientEmail: email,
		Payload:        map[string]string{"code": code},
	}
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "codeathon-api",
	}
}

func activeUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return &models.User{ID: "user-1", Email: "user@example.edu", FullName: "Asha Nair", PasswordHash: string(hash), Active: true, Role: models.RoleStudent}
}

func TestAuthLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password")}
	svc := NewAuthService(repo, &memoryCodeStore{}, nil, nil, nil, authTestConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.edu", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password")}
	svc := NewAuthService(repo, &memoryCodeStore{}, nil, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.edu", Password: "wrong"})
	require.Error(t, err)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := activeUser("password")
	user.Active = false
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, &memoryCodeStore{}, nil, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.edu", Password: "password"})
	require.Error(t, err)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password")}
	svc := NewAuthService(repo, &memoryCodeStore{}, nil, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.edu", Password: "password"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	// the used token is dead for further exchanges
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthForgotPasswordStoresCodeAndNotifies(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password")}
	codes := &memoryCodeStore{}
	notifier := &recordingNotifier{}
	svc := NewAuthService(repo, codes, notifier, nil, nil, authTestConfig())

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: "user@example.edu"}))
	code, err := codes.Get(context.Background(), "reset:user@example.edu")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, code, notifier.sent[0].Payload["code"])
}

func TestAuthForgotPasswordUnknownEmailSilent(t *testing.T) {
	repo := &mockAuthRepo{}
	codes := &memoryCodeStore{}
	notifier := &recordingNotifier{}
	svc := NewAuthService(repo, codes, notifier, nil, nil, authTestConfig())

	// unknown accounts get the same answer as known ones
	require.NoError(t, svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: "ghost@example.edu"}))
	assert.Empty(t, notifier.sent)
	assert.Empty(t, codes.codes)
}

func TestAuthResetPasswordConsumesCode(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("oldpassword")}
	codes := &memoryCodeStore{}
	svc := NewAuthService(repo, codes, nil, nil, nil, authTestConfig())

	require.NoError(t, codes.Set(context.Background(), "reset:user@example.edu", "123456", time.Minute))

	err := svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Email: "user@example.edu", Code: "654321", NewPassword: "newpassword"})
	require.Error(t, err)

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Email: "user@example.edu", Code: "123456", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.userByEmail.PasswordHash), []byte("newpassword")))
	assert.True(t, repo.revokedAll)

	// the code is single use
	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Email: "user@example.edu", Code: "123456", NewPassword: "anotherpassword"})
	require.Error(t, err)
}

func TestAuthChangePasswordChecksOldPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("oldpassword")}
	svc := NewAuthService(repo, &memoryCodeStore{}, nil, nil, nil, authTestConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword"})
	require.Error(t, err)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "oldpassword", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.userByEmail.PasswordHash), []byte("newpassword")))
}
