package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// GroupRepository handles persistence of groups and their hierarchy.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, tenant_id, name, type, description, parent_id, leader_id, max_members, created_at, updated_at, deleted_at`

// List returns live groups matching the filter.
func (r *GroupRepository) List(ctx context.Context, tenantID string, filter models.GroupFilter) ([]models.Group, int, error) {
	conditions := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{tenantID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.ParentID != "" {
		args = append(args, filter.ParentID)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	} else if filter.RootOnly {
		conditions = append(conditions, "parent_id IS NULL")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderClause(map[string]string{"name": "name", "type": "type", "created_at": "created_at"}, filter.SortBy, "name", filter.SortOrder, "ASC")
	_, size, offset := filter.Normalize()

	var groups []models.Group
	query := fmt.Sprintf(`SELECT %s FROM groups%s ORDER BY %s, id LIMIT %d OFFSET %d`, groupColumns, where, order, size, offset)
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM groups`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}
	return groups, total, nil
}

// FindByID returns a live group.
func (r *GroupRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Group, error) {
	var group models.Group
	query := `SELECT ` + groupColumns + ` FROM groups WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &group, query, tenantID, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListChildren returns the live direct children of any of the given parents.
func (r *GroupRepository) ListChildren(ctx context.Context, tenantID string, parentIDs []string) ([]models.GroupNode, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, parent_id FROM groups WHERE tenant_id = $1 AND parent_id = ANY($2) AND deleted_at IS NULL ORDER BY id`
	var nodes []models.GroupNode
	if err := r.db.SelectContext(ctx, &nodes, query, tenantID, pq.Array(parentIDs)); err != nil {
		return nil, fmt.Errorf("list child groups: %w", err)
	}
	return nodes, nil
}

// Create inserts a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	const query = `INSERT INTO groups (id, tenant_id, name, type, description, parent_id, leader_id, max_members, created_at, updated_at)
VALUES (:id, :tenant_id, :name, :type, :description, :parent_id, :leader_id, :max_members, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return writeErr("insert group", err)
	}
	return nil
}

// Update persists the mutable fields of a live group.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE groups SET name = :name, type = :type, description = :description, parent_id = :parent_id,
leader_id = :leader_id, max_members = :max_members, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, group)
	if err != nil {
		return writeErr("update group", err)
	}
	return expectAffected(res, "update group")
}

// SoftDelete marks a group deleted when it has no live children.
func (r *GroupRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	const query = `UPDATE groups g SET deleted_at = $3, updated_at = $3
WHERE g.tenant_id = $1 AND g.id = $2 AND g.deleted_at IS NULL
AND NOT EXISTS (SELECT 1 FROM groups c WHERE c.tenant_id = $1 AND c.parent_id = g.id AND c.deleted_at IS NULL)`
	res, err := r.db.ExecContext(ctx, query, tenantID, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return staleIfNone(res, "delete group")
}
