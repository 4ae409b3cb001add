package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	lastLoginUpdated bool
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, tenantID, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.NewString()
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, tenantID, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

type recordingAuthNotifier struct {
	welcomed   []string
	resetToken string
}

func (r *recordingAuthNotifier) Welcome(ctx context.Context, user *models.User) {
	r.welcomed = append(r.welcomed, user.Email)
}

func (r *recordingAuthNotifier) PasswordReset(ctx context.Context, user *models.User, token string) {
	r.resetToken = token
}

func newTestUser(t *testing.T, tenantID, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: uuid.NewString(), TenantID: tenantID, Email: email, PasswordHash: string(hash), FullName: "Test User", Role: models.RoleStaff, Active: active}
}

func newAuthService(repo authUserRepository, notifier authNotifier) *AuthService {
	return NewAuthService(repo, notifier, nil, zap.NewNop(), AuthConfig{Secret: "secret", AccessTokenExpiry: time.Hour, Issuer: "eduorg-test"})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	user := newTestUser(t, testTenant, "user@example.com", "password1", true)
	repo := newMockAuthRepo(user)
	svc := newAuthService(repo, nil)

	res, err := svc.Login(context.Background(), testTenant, models.LoginRequest{Email: "User@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, user.ID, res.User.ID)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, testTenant, claims.TenantID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, "eduorg-test", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	active := newTestUser(t, testTenant, "user@example.com", "password1", true)
	inactive := newTestUser(t, testTenant, "gone@example.com", "password1", false)
	svc := newAuthService(newMockAuthRepo(active, inactive), nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, testTenant, models.LoginRequest{Email: "user@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, testTenant, models.LoginRequest{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, testTenant, models.LoginRequest{Email: "gone@example.com", Password: "password1"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(ctx, "other-tenant", models.LoginRequest{Email: "user@example.com", Password: "password1"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRegisterIgnoresRequestedRole(t *testing.T) {
	repo := newMockAuthRepo()
	notifier := &recordingAuthNotifier{}
	svc := newAuthService(repo, notifier)
	ctx := context.Background()

	info, err := svc.Register(ctx, testTenant, models.RegisterRequest{Email: "New@Example.com", Password: "password1", FullName: "<b>New</b> Student", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Equal(t, "new@example.com", info.Email)
	assert.Equal(t, "New Student", info.FullName)
	assert.Equal(t, []string{"new@example.com"}, notifier.welcomed)

	_, err = svc.Register(ctx, testTenant, models.RegisterRequest{Email: "new@example.com", Password: "password1", FullName: "Again"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	staff, err := svc.CreateUser(ctx, testTenant, models.RegisterRequest{Email: "staff@example.com", Password: "password1", FullName: "Staff", Role: models.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, staff.Role)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	user := newTestUser(t, testTenant, "user@example.com", "password1", true)
	repo := newMockAuthRepo(user)
	notifier := &recordingAuthNotifier{}
	svc := newAuthService(repo, notifier)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, testTenant, models.ForgotPasswordRequest{Email: "unknown@example.com"}))
	assert.Empty(t, notifier.resetToken)

	require.NoError(t, svc.ForgotPassword(ctx, testTenant, models.ForgotPasswordRequest{Email: "user@example.com"}))
	require.NotEmpty(t, notifier.resetToken)

	_, err := svc.ValidateToken(notifier.resetToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	err = svc.ResetPassword(ctx, "other-tenant", models.ResetPasswordRequest{Token: notifier.resetToken, NewPassword: "new-password"})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	require.NoError(t, svc.ResetPassword(ctx, testTenant, models.ResetPasswordRequest{Token: notifier.resetToken, NewPassword: "new-password"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))
}

func TestAuthServiceResetRejectsAccessToken(t *testing.T) {
	user := newTestUser(t, testTenant, "user@example.com", "password1", true)
	svc := newAuthService(newMockAuthRepo(user), nil)
	ctx := context.Background()

	res, err := svc.Login(ctx, testTenant, models.LoginRequest{Email: "user@example.com", Password: "password1"})
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, testTenant, models.ResetPasswordRequest{Token: res.AccessToken, NewPassword: "new-password"})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)
	err = svc.ResetPassword(ctx, testTenant, models.ResetPasswordRequest{Token: "garbage", NewPassword: "new-password"})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	user := newTestUser(t, testTenant, "user@example.com", "password1", true)
	repo := newMockAuthRepo(user)
	issuer := NewAuthService(repo, nil, nil, zap.NewNop(), AuthConfig{Secret: "other-secret"})
	res, err := issuer.Login(context.Background(), testTenant, models.LoginRequest{Email: "user@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = newAuthService(repo, nil).ValidateToken(res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
