package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// GradeRepository handles persistence of grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeColumns = `id, tenant_id, enrollment_id, title, grade_type, score, max_score, weight, is_dropped, is_extra_credit,
graded_at, feedback, created_at, updated_at, deleted_at`

// FindByID returns a live grade.
func (r *GradeRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Grade, error) {
	var grade models.Grade
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &grade, query, tenantID, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListByEnrollment returns the live grades of an enrollment, oldest first.
func (r *GradeRepository) ListByEnrollment(ctx context.Context, tenantID, enrollmentID string, includeDropped bool) ([]models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE tenant_id = $1 AND enrollment_id = $2 AND deleted_at IS NULL`
	if !includeDropped {
		query += ` AND is_dropped = FALSE`
	}
	query += ` ORDER BY graded_at, id`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, tenantID, enrollmentID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// Create inserts a grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, tenant_id, enrollment_id, title, grade_type, score, max_score, weight, is_dropped,
is_extra_credit, graded_at, feedback, created_at, updated_at)
VALUES (:id, :tenant_id, :enrollment_id, :title, :grade_type, :score, :max_score, :weight, :is_dropped,
:is_extra_credit, :graded_at, :feedback, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return writeErr("insert grade", err)
	}
	return nil
}

// Update persists the mutable fields of a live grade.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET title = :title, grade_type = :grade_type, score = :score, max_score = :max_score,
weight = :weight, is_dropped = :is_dropped, is_extra_credit = :is_extra_credit, graded_at = :graded_at,
feedback = :feedback, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return expectAffected(res, "update grade")
}

// SoftDelete marks a grade deleted.
func (r *GradeRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE grades SET deleted_at = $3, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`, tenantID, id, now)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return expectAffected(res, "delete grade")
}

// ExportByInstance returns every live grade of an instance joined with student names.
func (r *GradeRepository) ExportByInstance(ctx context.Context, tenantID, instanceID string) ([]models.GradeExportRow, error) {
	const query = `SELECT e.id AS enrollment_id, p.first_name, p.last_name, p.email, g.title, g.grade_type, g.score, g.max_score,
g.weight, g.is_dropped
FROM grades g
JOIN enrollments e ON e.id = g.enrollment_id AND e.tenant_id = g.tenant_id
JOIN persons p ON p.id = e.student_id AND p.tenant_id = e.tenant_id
WHERE g.tenant_id = $1 AND e.course_instance_id = $2 AND g.deleted_at IS NULL AND e.deleted_at IS NULL
ORDER BY p.last_name, p.first_name, g.graded_at, g.id`
	var rows []models.GradeExportRow
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, instanceID); err != nil {
		return nil, fmt.Errorf("export grades: %w", err)
	}
	return rows, nil
}
