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

// EnrollmentStore is the set of enrollment operations available inside a transaction.
type EnrollmentStore interface {
	LockCourseInstance(ctx context.Context, tenantID, instanceID string) (*models.InstanceCapacity, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Enrollment, error)
	FindLive(ctx context.Context, tenantID, studentID, instanceID string) (*models.Enrollment, error)
	CountByStatus(ctx context.Context, tenantID, instanceID string, status models.EnrollmentStatus) (int, error)
	ListWaitlisted(ctx context.Context, tenantID, instanceID string, limit int) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, enrollment *models.Enrollment, from models.EnrollmentStatus) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
	q  queryer
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, q: db}
}

// WithinTx runs fn with a store bound to a single transaction.
func (r *EnrollmentRepository) WithinTx(ctx context.Context, fn func(store EnrollmentStore) error) error {
	if inTx(r.q) {
		return fn(r)
	}
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&EnrollmentRepository{db: r.db, q: tx})
	})
}

const enrollmentColumns = `id, tenant_id, student_id, course_instance_id, status, payment_status, amount_paid, enrollment_date,
drop_date, drop_reason, completion_date, notes, created_at, updated_at, deleted_at`

// LockCourseInstance reads the seat policy of a live instance and row-locks the
// instance so concurrent enrollments for it serialize.
func (r *EnrollmentRepository) LockCourseInstance(ctx context.Context, tenantID, instanceID string) (*models.InstanceCapacity, error) {
	const query = `SELECT ci.id, ci.name, ci.status, ci.max_students, c.max_students AS course_max_students
FROM course_instances ci
JOIN courses c ON c.id = ci.course_id AND c.tenant_id = ci.tenant_id
WHERE ci.tenant_id = $1 AND ci.id = $2 AND ci.deleted_at IS NULL
FOR UPDATE OF ci`
	var capacity models.InstanceCapacity
	if err := r.q.GetContext(ctx, &capacity, query, tenantID, instanceID); err != nil {
		return nil, err
	}
	return &capacity, nil
}

// FindByID returns a live enrollment, locking it when called inside a transaction.
func (r *EnrollmentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if inTx(r.q) {
		query += ` FOR UPDATE`
	}
	var enrollment models.Enrollment
	if err := r.q.GetContext(ctx, &enrollment, query, tenantID, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindLive returns the non-dropped enrollment for a (student, instance) pair.
func (r *EnrollmentRepository) FindLive(ctx context.Context, tenantID, studentID, instanceID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
WHERE tenant_id = $1 AND student_id = $2 AND course_instance_id = $3 AND status <> $4 AND deleted_at IS NULL
ORDER BY enrollment_date DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.q.GetContext(ctx, &enrollment, query, tenantID, studentID, instanceID, models.EnrollmentStatusDropped); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountByStatus counts live enrollments of an instance in a status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, tenantID, instanceID string, status models.EnrollmentStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE tenant_id = $1 AND course_instance_id = $2 AND status = $3 AND deleted_at IS NULL`
	var total int
	if err := r.q.GetContext(ctx, &total, query, tenantID, instanceID, status); err != nil {
		return 0, fmt.Errorf("count enrollments by status: %w", err)
	}
	return total, nil
}

// ListWaitlisted returns up to limit WAITLISTED enrollments, oldest first with id as tiebreak.
func (r *EnrollmentRepository) ListWaitlisted(ctx context.Context, tenantID, instanceID string, limit int) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
WHERE tenant_id = $1 AND course_instance_id = $2 AND status = $3 AND deleted_at IS NULL
ORDER BY enrollment_date ASC, id ASC LIMIT $4`
	if inTx(r.q) {
		query += ` FOR UPDATE`
	}
	var enrollments []models.Enrollment
	if err := r.q.SelectContext(ctx, &enrollments, query, tenantID, instanceID, models.EnrollmentStatusWaitlisted, limit); err != nil {
		return nil, fmt.Errorf("list waitlisted enrollments: %w", err)
	}
	return enrollments, nil
}

// Create inserts an enrollment. The partial unique index on live pairs turns a
// concurrent duplicate into ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentStatusPending
	}
	const query = `INSERT INTO enrollments (id, tenant_id, student_id, course_instance_id, status, payment_status, amount_paid,
enrollment_date, notes, created_at, updated_at)
VALUES (:id, :tenant_id, :student_id, :course_instance_id, :status, :payment_status, :amount_paid,
:enrollment_date, :notes, :created_at, :updated_at)`
	if _, err := r.q.NamedExecContext(ctx, query, enrollment); err != nil {
		return writeErr("insert enrollment", err)
	}
	return nil
}

// UpdateStatus writes the status fields only if the stored status is still from.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, enrollment *models.Enrollment, from models.EnrollmentStatus) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET status = $4, drop_date = $5, drop_reason = $6, completion_date = $7, updated_at = $8
WHERE tenant_id = $1 AND id = $2 AND status = $3 AND deleted_at IS NULL`
	res, err := r.q.ExecContext(ctx, query, enrollment.TenantID, enrollment.ID, from, enrollment.Status,
		enrollment.DropDate, enrollment.DropReason, enrollment.CompletionDate, enrollment.UpdatedAt)
	if err != nil {
		return writeErr("update enrollment status", err)
	}
	return staleIfNone(res, "update enrollment status")
}

// UpdatePayment records payment progress.
func (r *EnrollmentRepository) UpdatePayment(ctx context.Context, tenantID, id string, status models.PaymentStatus, amountPaid float64) error {
	const query = `UPDATE enrollments SET payment_status = $3, amount_paid = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.q.ExecContext(ctx, query, tenantID, id, status, amountPaid, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment payment: %w", err)
	}
	return expectAffected(res, "update enrollment payment")
}

// List returns live enrollments matching the filter.
func (r *EnrollmentRepository) List(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	conditions := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{tenantID}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.CourseInstanceID != "" {
		args = append(args, filter.CourseInstanceID)
		conditions = append(conditions, fmt.Sprintf("course_instance_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderClause(map[string]string{"enrollment_date": "enrollment_date", "status": "status", "created_at": "created_at"}, filter.SortBy, "enrollment_date", filter.SortOrder, "ASC")
	_, size, offset := filter.Normalize()

	var enrollments []models.Enrollment
	query := fmt.Sprintf(`SELECT %s FROM enrollments%s ORDER BY %s, id LIMIT %d OFFSET %d`, enrollmentColumns, where, order, size, offset)
	if err := r.q.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	var total int
	if err := r.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
