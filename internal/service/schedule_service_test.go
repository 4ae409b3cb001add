package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type fakeScheduleRepo struct {
	schedules map[string]*models.Schedule
}

func (f *fakeScheduleRepo) List(ctx context.Context, tenantID string, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var out []models.Schedule
	for _, s := range f.schedules {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeScheduleRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleRepo) ListRoomDay(ctx context.Context, tenantID, room string, dayOfWeek int, excludeID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range f.schedules {
		if s.Room != nil && *s.Room == room && s.DayOfWeek == dayOfWeek && s.ID != excludeID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	schedule.ID = uuid.NewString()
	cp := *schedule
	f.schedules[schedule.ID] = &cp
	return nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	cp := *schedule
	f.schedules[schedule.ID] = &cp
	return nil
}

func (f *fakeScheduleRepo) SoftDelete(ctx context.Context, tenantID, id string) error {
	if _, ok := f.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.schedules, id)
	return nil
}

type fakeInstanceFinder map[string]models.CourseInstance

func (f fakeInstanceFinder) FindByID(ctx context.Context, tenantID, id string) (*models.CourseInstance, error) {
	ci, ok := f[id]
	if !ok || ci.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return &ci, nil
}

func newScheduleFixture() (*ScheduleService, string) {
	instance := uuid.NewString()
	instances := fakeInstanceFinder{instance: {ID: instance, TenantID: testTenant, Name: "Spring cohort"}}
	repo := &fakeScheduleRepo{schedules: map[string]*models.Schedule{}}
	return NewScheduleService(repo, instances, nil, zap.NewNop()), instance
}

func TestSlotsClash(t *testing.T) {
	slot := func(start, end string) models.Schedule {
		return models.Schedule{StartTime: start, EndTime: end}
	}
	assert.True(t, slotsClash(slot("09:00", "10:30"), slot("10:00", "11:00")))
	assert.True(t, slotsClash(slot("09:00", "12:00"), slot("10:00", "11:00")))
	assert.False(t, slotsClash(slot("09:00", "10:00"), slot("10:00", "11:00")))

	a := slot("09:00", "10:00")
	a.EffectiveUntil = day(2024, 3, 31)
	b := slot("09:00", "10:00")
	b.EffectiveFrom = day(2024, 4, 1)
	assert.False(t, slotsClash(a, b))

	b.EffectiveFrom = day(2024, 3, 31)
	assert.True(t, slotsClash(a, b))
}

func TestScheduleServiceCreateNormalisesClock(t *testing.T) {
	svc, instance := newScheduleFixture()

	s, err := svc.Create(context.Background(), testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 1, StartTime: "9:05", EndTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, "09:05", s.StartTime)
	assert.Equal(t, "10:00", s.EndTime)
}

func TestScheduleServiceRejectsRoomClash(t *testing.T) {
	svc, instance := newScheduleFixture()
	ctx := context.Background()

	first, err := svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 2, StartTime: "09:00", EndTime: "10:30", Room: strPtr("B-101")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 2, StartTime: "10:00", EndTime: "11:00", Room: strPtr("B-101")})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "room B-101 is booked 09:00-10:30")

	_, err = svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 3, StartTime: "10:00", EndTime: "11:00", Room: strPtr("B-101")})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 2, StartTime: "10:30", EndTime: "11:30", Room: strPtr("B-101")})
	assert.NoError(t, err)

	moved, err := svc.Update(ctx, testTenant, first.ID, dto.Patch{"end_time": json.RawMessage(`"10:15"`)})
	require.NoError(t, err)
	assert.Equal(t, "10:15", moved.EndTime)
}

func TestScheduleServiceValidation(t *testing.T) {
	svc, instance := newScheduleFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 1, StartTime: "11:00", EndTime: "10:00"})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 7, StartTime: "09:00", EndTime: "10:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: instance, DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", EffectiveFrom: day(2024, 5, 1), EffectiveUntil: day(2024, 4, 1)})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = svc.Create(ctx, testTenant, models.CreateScheduleRequest{CourseInstanceID: uuid.NewString(), DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
