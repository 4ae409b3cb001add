package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type authServiceMock struct {
	lastTenant   string
	lastRegister models.RegisterRequest
	loginErr     error
	forgotCalled bool
}

func (m *authServiceMock) Register(ctx context.Context, tenantID string, req models.RegisterRequest) (*models.UserInfo, error) {
	m.lastTenant = tenantID
	m.lastRegister = req
	return &models.UserInfo{ID: "u-1", TenantID: tenantID, Email: req.Email, Role: models.RoleStudent}, nil
}

func (m *authServiceMock) CreateUser(ctx context.Context, tenantID string, req models.RegisterRequest) (*models.UserInfo, error) {
	return &models.UserInfo{ID: "u-2", TenantID: tenantID, Email: req.Email, Role: req.Role}, nil
}

func (m *authServiceMock) Login(ctx context.Context, tenantID string, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastTenant = tenantID
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (m *authServiceMock) ForgotPassword(ctx context.Context, tenantID string, req models.ForgotPasswordRequest) error {
	m.forgotCalled = true
	return nil
}

func (m *authServiceMock) ResetPassword(ctx context.Context, tenantID string, req models.ResetPasswordRequest) error {
	return appErrors.Clone(appErrors.ErrBadRequest, "reset token is invalid or expired")
}

func TestAuthHandlerRegisterUsesRequestTenant(t *testing.T) {
	mockSvc := &authServiceMock{}
	handler := NewAuthHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/auth/register", `{"email":"ada@example.com","password":"longenough","full_name":"Ada","role":"ADMIN"}`)
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, handlerTenant, mockSvc.lastTenant)
	assert.Equal(t, "ada@example.com", mockSvc.lastRegister.Email)
	assert.Contains(t, w.Body.String(), `"role":"STUDENT"`)
}

func TestAuthHandlerLogin(t *testing.T) {
	mockSvc := &authServiceMock{}
	handler := NewAuthHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"secret"}`)
	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)

	mockSvc.loginErr = appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	c, w = newTestContext(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"wrong"}`)
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerPasswordReset(t *testing.T) {
	mockSvc := &authServiceMock{}
	handler := NewAuthHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/auth/forgot-password", `{"email":"nobody@example.com"}`)
	handler.ForgotPassword(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, mockSvc.forgotCalled)

	c, w = newTestContext(http.MethodPost, "/auth/reset-password", `{"token":"expired","new_password":"longenough"}`)
	handler.ResetPassword(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{})

	c, w := newTestContext(http.MethodGet, "/auth/me", "")
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"staff-1"`)
}
