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

// ScheduleRepository handles persistence of session slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, tenant_id, course_instance_id, day_of_week, start_time, end_time, room, effective_from, effective_until,
created_at, updated_at, deleted_at`

// List returns live schedules matching the filter.
func (r *ScheduleRepository) List(ctx context.Context, tenantID string, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	conditions := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{tenantID}
	if filter.CourseInstanceID != "" {
		args = append(args, filter.CourseInstanceID)
		conditions = append(conditions, fmt.Sprintf("course_instance_id = $%d", len(args)))
	}
	if filter.Room != "" {
		args = append(args, filter.Room)
		conditions = append(conditions, fmt.Sprintf("lower(room) = lower($%d)", len(args)))
	}
	if filter.DayOfWeek != nil {
		args = append(args, *filter.DayOfWeek)
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	_, size, offset := filter.Normalize()

	var schedules []models.Schedule
	query := fmt.Sprintf(`SELECT %s FROM schedules%s ORDER BY day_of_week, start_time, id LIMIT %d OFFSET %d`, scheduleColumns, where, size, offset)
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM schedules`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID returns a live schedule.
func (r *ScheduleRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &schedule, query, tenantID, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListRoomDay returns the live slots booked in a room on a weekday.
func (r *ScheduleRepository) ListRoomDay(ctx context.Context, tenantID, room string, dayOfWeek int, excludeID string) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules
WHERE tenant_id = $1 AND lower(room) = lower($2) AND day_of_week = $3 AND deleted_at IS NULL AND id::text <> $4
ORDER BY start_time`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, tenantID, room, dayOfWeek, excludeID); err != nil {
		return nil, fmt.Errorf("list room schedules: %w", err)
	}
	return schedules, nil
}

// Create inserts a schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO schedules (id, tenant_id, course_instance_id, day_of_week, start_time, end_time, room, effective_from,
effective_until, created_at, updated_at)
VALUES (:id, :tenant_id, :course_instance_id, :day_of_week, :start_time, :end_time, :room, :effective_from,
:effective_until, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return writeErr("insert schedule", err)
	}
	return nil
}

// Update persists the mutable fields of a live schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, room = :room,
effective_from = :effective_from, effective_until = :effective_until, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return expectAffected(res, "update schedule")
}

// SoftDelete marks a schedule deleted.
func (r *ScheduleRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE schedules SET deleted_at = $3, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`, tenantID, id, now)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectAffected(res, "delete schedule")
}
