package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type scheduleRepository interface {
	List(ctx context.Context, tenantID string, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Schedule, error)
	ListRoomDay(ctx context.Context, tenantID, room string, dayOfWeek int, excludeID string) ([]models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

type courseInstanceFinder interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.CourseInstance, error)
}

var schedulePatchFields = []string{"day_of_week", "start_time", "end_time", "room", "effective_from", "effective_until"}

// ScheduleService manages weekly session slots.
type ScheduleService struct {
	repo      scheduleRepository
	instances courseInstanceFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(repo scheduleRepository, instances courseInstanceFinder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, instances: instances, validator: validate, logger: logger}
}

// List returns schedules matching the filter.
func (s *ScheduleService) List(ctx context.Context, tenantID string, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list schedules")
	}
	return items, filter.Pagination(total), nil
}

// Get returns a schedule.
func (s *ScheduleService) Get(ctx context.Context, tenantID, id string) (*models.Schedule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	schedule, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "schedule not found", "failed to load schedule")
	}
	return schedule, nil
}

// Create adds a slot to a course instance.
func (s *ScheduleService) Create(ctx context.Context, tenantID string, req models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid schedule payload")
	}
	if _, err := s.instances.FindByID(ctx, tenantID, req.CourseInstanceID); err != nil {
		return nil, lookupErr(err, "course instance not found", "failed to load course instance")
	}
	schedule := &models.Schedule{
		TenantID:         tenantID,
		CourseInstanceID: req.CourseInstanceID,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Room:             sanitize.OptionalText(req.Room),
		EffectiveFrom:    req.EffectiveFrom,
		EffectiveUntil:   req.EffectiveUntil,
	}
	if err := s.check(ctx, schedule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, writeErr(err, "schedule already exists", "failed to create schedule")
	}
	return schedule, nil
}

// Update applies a partial update to a slot.
func (s *ScheduleService) Update(ctx context.Context, tenantID, id string, patch dto.Patch) (*models.Schedule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := patch.Allow(schedulePatchFields...); err != nil {
		return nil, err
	}
	schedule, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "schedule not found", "failed to load schedule")
	}
	for _, field := range patch.Fields() {
		switch field {
		case "day_of_week":
			err = patchValue(patch, field, &schedule.DayOfWeek)
		case "start_time":
			err = patchValue(patch, field, &schedule.StartTime)
		case "end_time":
			err = patchValue(patch, field, &schedule.EndTime)
		case "room":
			err = patchOptional(patch, field, &schedule.Room)
		case "effective_from":
			err = patchOptional(patch, field, &schedule.EffectiveFrom)
		case "effective_until":
			err = patchOptional(patch, field, &schedule.EffectiveUntil)
		}
		if err != nil {
			return nil, err
		}
	}
	check := models.CreateScheduleRequest{
		CourseInstanceID: schedule.CourseInstanceID,
		DayOfWeek:        schedule.DayOfWeek,
		StartTime:        schedule.StartTime,
		EndTime:          schedule.EndTime,
		Room:             schedule.Room,
		EffectiveFrom:    schedule.EffectiveFrom,
		EffectiveUntil:   schedule.EffectiveUntil,
	}
	if err := s.validator.Struct(check); err != nil {
		return nil, invalid(err, "invalid schedule payload")
	}
	schedule.Room = sanitize.OptionalText(schedule.Room)
	if err := s.check(ctx, schedule); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, lookupErr(err, "schedule not found", "failed to update schedule")
	}
	return schedule, nil
}

// Delete soft-deletes a slot.
func (s *ScheduleService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return lookupErr(err, "schedule not found", "failed to delete schedule")
	}
	return nil
}

// check normalises the clock times and rejects room double-bookings.
func (s *ScheduleService) check(ctx context.Context, schedule *models.Schedule) error {
	start, err := clockMinutes(schedule.StartTime)
	if err != nil {
		return badRequest("invalid start time")
	}
	end, err := clockMinutes(schedule.EndTime)
	if err != nil {
		return badRequest("invalid end time")
	}
	if start >= end {
		return badRequest("start time must be before end time")
	}
	schedule.StartTime = formatClock(start)
	schedule.EndTime = formatClock(end)
	if schedule.EffectiveFrom != nil && schedule.EffectiveUntil != nil && schedule.EffectiveUntil.Before(*schedule.EffectiveFrom) {
		return badRequest("effective until must not precede effective from")
	}

	if schedule.Room == nil {
		return nil
	}
	booked, err := s.repo.ListRoomDay(ctx, schedule.TenantID, *schedule.Room, schedule.DayOfWeek, schedule.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to check room availability")
	}
	for _, other := range booked {
		if slotsClash(*schedule, other) {
			return conflict(fmt.Sprintf("room %s is booked %s-%s", *schedule.Room, other.StartTime, other.EndTime))
		}
	}
	return nil
}

// slotsClash reports whether two slots on the same day and room share time
// while both are in effect.
func slotsClash(a, b models.Schedule) bool {
	aStart, errA := clockMinutes(a.StartTime)
	aEnd, errB := clockMinutes(a.EndTime)
	bStart, errC := clockMinutes(b.StartTime)
	bEnd, errD := clockMinutes(b.EndTime)
	if errA != nil || errB != nil || errC != nil || errD != nil {
		return false
	}
	if aStart >= bEnd || bStart >= aEnd {
		return false
	}
	return effectiveRangesMeet(a.EffectiveFrom, a.EffectiveUntil, b.EffectiveFrom, b.EffectiveUntil)
}

// effectiveRangesMeet treats both ranges as inclusive with nil bounds open.
func effectiveRangesMeet(aFrom, aUntil, bFrom, bUntil *time.Time) bool {
	if aFrom != nil && bUntil != nil && aFrom.After(*bUntil) {
		return false
	}
	if bFrom != nil && aUntil != nil && bFrom.After(*aUntil) {
		return false
	}
	return true
}

func clockMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
