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

// AttendanceRepository handles persistence of attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `a.id, a.tenant_id, a.enrollment_id, a.schedule_id, a.session_date, a.status, a.notes, a.recorded_by, a.created_at, a.updated_at`

// Create inserts a record unless one already exists for the same session, in
// which case ErrDuplicate is returned.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, tenant_id, enrollment_id, schedule_id, session_date, status, notes, recorded_by, created_at, updated_at)
VALUES (:id, :tenant_id, :enrollment_id, :schedule_id, :session_date, :status, :notes, :recorded_by, :created_at, :updated_at)
ON CONFLICT DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return writeErr("insert attendance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("insert attendance: %w", ErrDuplicate)
	}
	return nil
}

// FindByID returns an attendance record.
func (r *AttendanceRepository) FindByID(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records a WHERE a.tenant_id = $1 AND a.id = $2`
	if err := r.db.GetContext(ctx, &record, query, tenantID, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update writes the status and notes of a record.
func (r *AttendanceRepository) Update(ctx context.Context, record *models.AttendanceRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendance_records SET status = :status, notes = :notes, recorded_by = :recorded_by, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return expectAffected(res, "update attendance")
}

// List returns attendance records matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	from := ` FROM attendance_records a`
	conditions := []string{"a.tenant_id = $1"}
	args := []interface{}{tenantID}
	if filter.CourseInstanceID != "" {
		from += ` JOIN enrollments e ON e.id = a.enrollment_id AND e.tenant_id = a.tenant_id`
		args = append(args, filter.CourseInstanceID)
		conditions = append(conditions, fmt.Sprintf("e.course_instance_id = $%d", len(args)))
	}
	if filter.EnrollmentID != "" {
		args = append(args, filter.EnrollmentID)
		conditions = append(conditions, fmt.Sprintf("a.enrollment_id = $%d", len(args)))
	}
	if filter.ScheduleID != "" {
		args = append(args, filter.ScheduleID)
		conditions = append(conditions, fmt.Sprintf("a.schedule_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("a.session_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("a.session_date <= $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	_, size, offset := filter.Normalize()

	var records []models.AttendanceRecord
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY a.session_date DESC, a.id LIMIT %d OFFSET %d`, attendanceColumns, from, where, size, offset)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+from+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// CountByStatus tallies an enrollment's records per status.
func (r *AttendanceRepository) CountByStatus(ctx context.Context, tenantID, enrollmentID string) ([]models.AttendanceCount, error) {
	const query = `SELECT status, COUNT(*) AS total FROM attendance_records WHERE tenant_id = $1 AND enrollment_id = $2 GROUP BY status`
	var counts []models.AttendanceCount
	if err := r.db.SelectContext(ctx, &counts, query, tenantID, enrollmentID); err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	return counts, nil
}
