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

// CourseInstanceRepository handles persistence of course offerings.
type CourseInstanceRepository struct {
	db *sqlx.DB
}

// NewCourseInstanceRepository constructs the repository.
func NewCourseInstanceRepository(db *sqlx.DB) *CourseInstanceRepository {
	return &CourseInstanceRepository{db: db}
}

const courseInstanceColumns = `id, tenant_id, course_id, name, instructor_id, start_date, end_date, enrollment_start, enrollment_end,
max_students, location, status, created_at, updated_at, deleted_at`

const courseInstanceDetailSelect = `SELECT ci.id, ci.tenant_id, ci.course_id, ci.name, ci.instructor_id, ci.start_date, ci.end_date,
ci.enrollment_start, ci.enrollment_end, ci.max_students, ci.location, ci.status, ci.created_at, ci.updated_at, ci.deleted_at,
c.code AS course_code, c.name AS course_name, c.max_students AS course_max_students,
(SELECT COUNT(*) FROM enrollments e WHERE e.tenant_id = ci.tenant_id AND e.course_instance_id = ci.id AND e.status = 'ENROLLED' AND e.deleted_at IS NULL) AS enrolled_count,
(SELECT COUNT(*) FROM enrollments e WHERE e.tenant_id = ci.tenant_id AND e.course_instance_id = ci.id AND e.status = 'WAITLISTED' AND e.deleted_at IS NULL) AS waitlisted_count
FROM course_instances ci
JOIN courses c ON c.id = ci.course_id AND c.tenant_id = ci.tenant_id`

// List returns live course instances with seat counts.
func (r *CourseInstanceRepository) List(ctx context.Context, tenantID string, filter models.CourseInstanceFilter) ([]models.CourseInstanceDetail, int, error) {
	conditions := []string{"ci.tenant_id = $1", "ci.deleted_at IS NULL"}
	args := []interface{}{tenantID}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("ci.course_id = $%d", len(args)))
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf("ci.instructor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("ci.status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderClause(map[string]string{"start_date": "ci.start_date", "name": "ci.name", "created_at": "ci.created_at"}, filter.SortBy, "start_date", filter.SortOrder, "DESC")
	_, size, offset := filter.Normalize()

	var instances []models.CourseInstanceDetail
	query := fmt.Sprintf(`%s%s ORDER BY %s, ci.id LIMIT %d OFFSET %d`, courseInstanceDetailSelect, where, order, size, offset)
	if err := r.db.SelectContext(ctx, &instances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list course instances: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM course_instances ci`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count course instances: %w", err)
	}
	return instances, total, nil
}

// FindByID returns a live course instance.
func (r *CourseInstanceRepository) FindByID(ctx context.Context, tenantID, id string) (*models.CourseInstance, error) {
	var instance models.CourseInstance
	query := `SELECT ` + courseInstanceColumns + ` FROM course_instances WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &instance, query, tenantID, id); err != nil {
		return nil, err
	}
	return &instance, nil
}

// FindDetailByID returns a course instance with course data and seat counts.
func (r *CourseInstanceRepository) FindDetailByID(ctx context.Context, tenantID, id string) (*models.CourseInstanceDetail, error) {
	var detail models.CourseInstanceDetail
	query := courseInstanceDetailSelect + ` WHERE ci.tenant_id = $1 AND ci.id = $2 AND ci.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a course instance.
func (r *CourseInstanceRepository) Create(ctx context.Context, instance *models.CourseInstance) error {
	if instance.ID == "" {
		instance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	instance.CreatedAt = now
	instance.UpdatedAt = now
	const query = `INSERT INTO course_instances (id, tenant_id, course_id, name, instructor_id, start_date, end_date, enrollment_start,
enrollment_end, max_students, location, status, created_at, updated_at)
VALUES (:id, :tenant_id, :course_id, :name, :instructor_id, :start_date, :end_date, :enrollment_start,
:enrollment_end, :max_students, :location, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instance); err != nil {
		return writeErr("insert course instance", err)
	}
	return nil
}

// Update persists the mutable fields of a live course instance. Status is changed
// only through UpdateStatus.
func (r *CourseInstanceRepository) Update(ctx context.Context, instance *models.CourseInstance) error {
	instance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_instances SET name = :name, instructor_id = :instructor_id, start_date = :start_date, end_date = :end_date,
enrollment_start = :enrollment_start, enrollment_end = :enrollment_end, max_students = :max_students, location = :location,
updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, instance)
	if err != nil {
		return writeErr("update course instance", err)
	}
	return expectAffected(res, "update course instance")
}

// UpdateStatus moves an instance to status if it is still in from.
func (r *CourseInstanceRepository) UpdateStatus(ctx context.Context, tenantID, id string, from, to models.CourseInstanceStatus) error {
	const query = `UPDATE course_instances SET status = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2 AND status = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, tenantID, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course instance status: %w", err)
	}
	return staleIfNone(res, "update course instance status")
}

// SoftDelete marks a course instance deleted.
func (r *CourseInstanceRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE course_instances SET deleted_at = $3, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`, tenantID, id, now)
	if err != nil {
		return fmt.Errorf("delete course instance: %w", err)
	}
	return expectAffected(res, "delete course instance")
}

// Roster returns the live enrollments of an instance with student details.
func (r *CourseInstanceRepository) Roster(ctx context.Context, tenantID, id string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, p.first_name, p.last_name, p.email, e.status, e.payment_status, e.enrollment_date
FROM enrollments e
JOIN persons p ON p.id = e.student_id AND p.tenant_id = e.tenant_id
WHERE e.tenant_id = $1 AND e.course_instance_id = $2 AND e.deleted_at IS NULL
ORDER BY p.last_name, p.first_name, e.enrollment_date`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, tenantID, id); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}
