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

// CourseRepository handles persistence of the course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, tenant_id, code, name, description, credits, max_students, active, created_at, updated_at, deleted_at`

// List returns live courses matching the filter.
func (r *CourseRepository) List(ctx context.Context, tenantID string, filter models.CourseFilter) ([]models.Course, int, error) {
	conditions := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{tenantID}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(lower(code) LIKE $%d OR lower(name) LIKE $%d)", len(args), len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderClause(map[string]string{"code": "code", "name": "name", "created_at": "created_at"}, filter.SortBy, "code", filter.SortOrder, "ASC")
	_, size, offset := filter.Normalize()

	var courses []models.Course
	query := fmt.Sprintf(`SELECT %s FROM courses%s ORDER BY %s, id LIMIT %d OFFSET %d`, courseColumns, where, order, size, offset)
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a live course.
func (r *CourseRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Course, error) {
	var course models.Course
	query := `SELECT ` + courseColumns + ` FROM courses WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &course, query, tenantID, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode reports whether a live course other than excludeID uses the code.
func (r *CourseRepository) ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE tenant_id = $1 AND upper(code) = upper($2) AND deleted_at IS NULL AND id::text <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tenantID, code, excludeID); err != nil {
		return false, fmt.Errorf("check course code: %w", err)
	}
	return exists, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, tenant_id, code, name, description, credits, max_students, active, created_at, updated_at)
VALUES (:id, :tenant_id, :code, :name, :description, :credits, :max_students, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return writeErr("insert course", err)
	}
	return nil
}

// Update persists the mutable fields of a live course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, description = :description, credits = :credits,
max_students = :max_students, active = :active, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return writeErr("update course", err)
	}
	return expectAffected(res, "update course")
}

// SoftDelete marks a course deleted.
func (r *CourseRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET deleted_at = $3, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`, tenantID, id, now)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res, "delete course")
}
