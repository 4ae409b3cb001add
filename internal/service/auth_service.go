package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, tenantID, email string) (*models.User, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error
	UpdatePassword(ctx context.Context, tenantID, id, hash string) error
}

type authNotifier interface {
	Welcome(ctx context.Context, user *models.User)
	PasswordReset(ctx context.Context, user *models.User, token string)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret              string
	AccessTokenExpiry   time.Duration
	ResetTokenExpiry    time.Duration
	Issuer              string
	DefaultRegisterRole models.UserRole
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	notifier  authNotifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance. notifier may be nil.
func NewAuthService(repo authUserRepository, notifier authNotifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.ResetTokenExpiry <= 0 {
		config.ResetTokenExpiry = time.Hour
	}
	if config.DefaultRegisterRole == "" {
		config.DefaultRegisterRole = models.RoleStudent
	}
	return &AuthService{repo: repo, notifier: notifier, validator: validate, logger: logger, config: config}
}

// Register is self-service sign-up. The requested role is ignored and the
// configured default applies.
func (s *AuthService) Register(ctx context.Context, tenantID string, req models.RegisterRequest) (*models.UserInfo, error) {
	req.Role = s.config.DefaultRegisterRole
	return s.CreateUser(ctx, tenantID, req)
}

// CreateUser creates an account with the requested role and sends a welcome
// email. Callers must restrict it to administrators.
func (s *AuthService) CreateUser(ctx context.Context, tenantID string, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid registration payload")
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.FindByEmail(ctx, tenantID, email); err == nil {
		return nil, conflict("email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	role := req.Role
	if role == "" {
		role = s.config.DefaultRegisterRole
	}
	user := &models.User{
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     sanitize.Text(req.FullName),
		Role:         role,
		PersonID:     req.PersonID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeErr(err, "email already registered", "failed to create user")
	}

	if s.notifier != nil {
		s.notifier.Welcome(ctx, user)
	}
	info := userInfo(user)
	return &info, nil
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, tenantID string, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, tenantID, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	issuedAt := time.Now().UTC()
	accessToken, err := s.sign(user, models.TokenPurposeAccess, issuedAt, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	if err := s.repo.UpdateLastLogin(ctx, tenantID, user.ID, issuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(user),
	}, nil
}

// ValidateToken parses an access token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != models.TokenPurposeAccess {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token purpose")
	}
	return claims, nil
}

// ForgotPassword emails a reset token. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, tenantID string, req models.ForgotPasswordRequest) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid forgot password payload")
	}

	user, err := s.repo.FindByEmail(ctx, tenantID, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset for unknown email", zap.String("tenant_id", tenantID))
			return nil
		}
		return appErrors.Internal(err, "failed to fetch user")
	}
	if !user.Active {
		return nil
	}

	token, err := s.sign(user, models.TokenPurposePasswordReset, time.Now().UTC(), s.config.ResetTokenExpiry)
	if err != nil {
		return appErrors.Internal(err, "failed to create reset token")
	}
	if s.notifier != nil {
		s.notifier.PasswordReset(ctx, user, token)
	}
	return nil
}

// ResetPassword consumes a reset token issued for the same tenant.
func (s *AuthService) ResetPassword(ctx context.Context, tenantID string, req models.ResetPasswordRequest) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid reset password payload")
	}

	claims, err := s.parse(req.Token)
	if err != nil {
		return appErrors.Clone(appErrors.ErrBadRequest, "invalid or expired reset token")
	}
	if claims.Purpose != models.TokenPurposePasswordReset || claims.TenantID != tenantID {
		return appErrors.Clone(appErrors.ErrBadRequest, "invalid or expired reset token")
	}

	user, err := s.repo.FindByID(ctx, tenantID, claims.UserID)
	if err != nil {
		return lookupErr(err, "user not found", "failed to load user")
	}
	// Reset tokens are bound to the address they were mailed to.
	if claims.Email != user.Email {
		return appErrors.Clone(appErrors.ErrBadRequest, "invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, tenantID, user.ID, string(hash)); err != nil {
		return lookupErr(err, "user not found", "failed to update password")
	}
	return nil
}

func (s *AuthService) parse(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) sign(user *models.User, purpose string, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := &models.JWTClaims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		Email:    user.Email,
		Purpose:  purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
