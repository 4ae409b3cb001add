package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// UserRepository handles persistence of tenant user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, full_name, role, person_id, active, last_login, created_at, updated_at`

// FindByID returns a user by id within the tenant.
func (r *UserRepository) FindByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND id = $2`
	if err := r.db.GetContext(ctx, &user, query, tenantID, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by email within the tenant.
func (r *UserRepository) FindByEmail(ctx context.Context, tenantID, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`
	if err := r.db.GetContext(ctx, &user, query, tenantID, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, person_id, active, created_at, updated_at)
VALUES (:id, :tenant_id, :email, :password_hash, :full_name, :role, :person_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return writeErr("insert user", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, tenantID, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return expectAffected(res, "update user password")
}

// UpdateLastLogin stamps the last successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $3 WHERE tenant_id = $1 AND id = $2`, tenantID, id, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
