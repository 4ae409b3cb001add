package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// MembershipStore is the set of membership operations available inside a transaction.
type MembershipStore interface {
	LockGroup(ctx context.Context, tenantID, groupID string) (*models.Group, error)
	CountActive(ctx context.Context, tenantID, groupID string, asOf time.Time) (int, error)
	ListActiveForPair(ctx context.Context, tenantID, personID, groupID, excludeID string) ([]models.GroupMembership, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.GroupMembership, error)
	Create(ctx context.Context, membership *models.GroupMembership) error
	UpdateState(ctx context.Context, membership *models.GroupMembership, from models.MembershipStatus) error
}

// MembershipRepository handles persistence of group memberships.
type MembershipRepository struct {
	db *sqlx.DB
	q  queryer
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db, q: db}
}

// WithinTx runs fn with a store bound to a single transaction.
func (r *MembershipRepository) WithinTx(ctx context.Context, fn func(store MembershipStore) error) error {
	if inTx(r.q) {
		return fn(r)
	}
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&MembershipRepository{db: r.db, q: tx})
	})
}

const membershipColumns = `id, tenant_id, person_id, group_id, role, status, start_date, end_date, status_reason, created_at, updated_at`

// LockGroup loads a live group and holds a row lock on it until the transaction ends.
func (r *MembershipRepository) LockGroup(ctx context.Context, tenantID, groupID string) (*models.Group, error) {
	var group models.Group
	query := `SELECT ` + groupColumns + ` FROM groups WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL FOR UPDATE`
	if err := r.q.GetContext(ctx, &group, query, tenantID, groupID); err != nil {
		return nil, err
	}
	return &group, nil
}

// CountActive counts ACTIVE memberships of a group whose end date has not passed.
func (r *MembershipRepository) CountActive(ctx context.Context, tenantID, groupID string, asOf time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM group_memberships
WHERE tenant_id = $1 AND group_id = $2 AND status = $3 AND (end_date IS NULL OR end_date > $4)`
	var total int
	if err := r.q.GetContext(ctx, &total, query, tenantID, groupID, models.MembershipStatusActive, asOf); err != nil {
		return 0, fmt.Errorf("count active memberships: %w", err)
	}
	return total, nil
}

// ListActiveForPair returns the ACTIVE memberships of a person in a group.
func (r *MembershipRepository) ListActiveForPair(ctx context.Context, tenantID, personID, groupID, excludeID string) ([]models.GroupMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM group_memberships
WHERE tenant_id = $1 AND person_id = $2 AND group_id = $3 AND status = $4 AND id::text <> $5 ORDER BY start_date`
	var memberships []models.GroupMembership
	if err := r.q.SelectContext(ctx, &memberships, query, tenantID, personID, groupID, models.MembershipStatusActive, excludeID); err != nil {
		return nil, fmt.Errorf("list active memberships: %w", err)
	}
	return memberships, nil
}

// FindByID returns a membership.
func (r *MembershipRepository) FindByID(ctx context.Context, tenantID, id string) (*models.GroupMembership, error) {
	var membership models.GroupMembership
	query := `SELECT ` + membershipColumns + ` FROM group_memberships WHERE tenant_id = $1 AND id = $2`
	if inTx(r.q) {
		query += ` FOR UPDATE`
	}
	if err := r.q.GetContext(ctx, &membership, query, tenantID, id); err != nil {
		return nil, err
	}
	return &membership, nil
}

// List returns memberships matching the filter.
func (r *MembershipRepository) List(ctx context.Context, tenantID string, filter models.MembershipFilter) ([]models.GroupMembership, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if filter.PersonID != "" {
		args = append(args, filter.PersonID)
		conditions = append(conditions, fmt.Sprintf("person_id = $%d", len(args)))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderClause(map[string]string{"start_date": "start_date", "created_at": "created_at", "status": "status"}, filter.SortBy, "start_date", filter.SortOrder, "DESC")
	_, size, offset := filter.Normalize()

	var memberships []models.GroupMembership
	query := fmt.Sprintf(`SELECT %s FROM group_memberships%s ORDER BY %s, id LIMIT %d OFFSET %d`, membershipColumns, where, order, size, offset)
	if err := r.q.SelectContext(ctx, &memberships, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list memberships: %w", err)
	}
	var total int
	if err := r.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM group_memberships`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count memberships: %w", err)
	}
	return memberships, total, nil
}

// Create inserts a membership.
func (r *MembershipRepository) Create(ctx context.Context, membership *models.GroupMembership) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	membership.CreatedAt = now
	membership.UpdatedAt = now
	const query = `INSERT INTO group_memberships (id, tenant_id, person_id, group_id, role, status, start_date, end_date, status_reason, created_at, updated_at)
VALUES (:id, :tenant_id, :person_id, :group_id, :role, :status, :start_date, :end_date, :status_reason, :created_at, :updated_at)`
	if _, err := r.q.NamedExecContext(ctx, query, membership); err != nil {
		return writeErr("insert membership", err)
	}
	return nil
}

// UpdateState writes status, end date and reason only if the stored status is still from.
func (r *MembershipRepository) UpdateState(ctx context.Context, membership *models.GroupMembership, from models.MembershipStatus) error {
	membership.UpdatedAt = time.Now().UTC()
	const query = `UPDATE group_memberships SET status = $4, end_date = $5, status_reason = $6, updated_at = $7
WHERE tenant_id = $1 AND id = $2 AND status = $3`
	res, err := r.q.ExecContext(ctx, query, membership.TenantID, membership.ID, from,
		membership.Status, membership.EndDate, membership.StatusReason, membership.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update membership state: %w", err)
	}
	return staleIfNone(res, "update membership state")
}
