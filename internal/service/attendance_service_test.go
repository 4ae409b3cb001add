package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	records map[string]*models.AttendanceRecord
}

func (f *fakeAttendanceRepo) Create(ctx context.Context, record *models.AttendanceRecord) error {
	for _, r := range f.records {
		if r.EnrollmentID == record.EnrollmentID && r.SessionDate.Equal(record.SessionDate) {
			return repository.ErrDuplicate
		}
	}
	record.ID = uuid.NewString()
	cp := *record
	f.records[record.ID] = &cp
	return nil
}

func (f *fakeAttendanceRepo) FindByID(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error) {
	r, ok := f.records[id]
	if !ok || r.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAttendanceRepo) Update(ctx context.Context, record *models.AttendanceRecord) error {
	cp := *record
	f.records[record.ID] = &cp
	return nil
}

func (f *fakeAttendanceRepo) List(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	var out []models.AttendanceRecord
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeAttendanceRepo) CountByStatus(ctx context.Context, tenantID, enrollmentID string) ([]models.AttendanceCount, error) {
	totals := map[models.AttendanceStatus]int{}
	for _, r := range f.records {
		if r.EnrollmentID == enrollmentID {
			totals[r.Status]++
		}
	}
	var out []models.AttendanceCount
	for status, n := range totals {
		out = append(out, models.AttendanceCount{Status: status, Total: n})
	}
	return out, nil
}

type fakeScheduleFinder map[string]models.Schedule

func (f fakeScheduleFinder) FindByID(ctx context.Context, tenantID, id string) (*models.Schedule, error) {
	s, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func TestSummarizeAttendance(t *testing.T) {
	summary := SummarizeAttendance("enr-1", []models.AttendanceCount{
		{Status: models.AttendancePresent, Total: 6},
		{Status: models.AttendanceLate, Total: 1},
		{Status: models.AttendanceAbsent, Total: 1},
		{Status: models.AttendanceExcused, Total: 1},
	})

	assert.Equal(t, 9, summary.Total)
	assert.Equal(t, 77.78, summary.AttendanceRate)

	empty := SummarizeAttendance("enr-1", nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AttendanceRate)
}

func TestAttendanceServiceRecord(t *testing.T) {
	instance, other := uuid.NewString(), uuid.NewString()
	enrolled, waitlisted := uuid.NewString(), uuid.NewString()
	ownSlot, foreignSlot := uuid.NewString(), uuid.NewString()
	enrollments := fakeEnrollmentFinder{
		enrolled:   {ID: enrolled, TenantID: testTenant, CourseInstanceID: instance, Status: models.EnrollmentStatusEnrolled},
		waitlisted: {ID: waitlisted, TenantID: testTenant, CourseInstanceID: instance, Status: models.EnrollmentStatusWaitlisted},
	}
	schedules := fakeScheduleFinder{
		ownSlot:     {ID: ownSlot, CourseInstanceID: instance},
		foreignSlot: {ID: foreignSlot, CourseInstanceID: other},
	}
	repo := &fakeAttendanceRepo{records: map[string]*models.AttendanceRecord{}}
	svc := NewAttendanceService(repo, enrollments, schedules, nil, zap.NewNop())
	ctx := context.Background()
	session := time.Date(2024, 4, 2, 14, 45, 0, 0, time.UTC)

	record, err := svc.Record(ctx, testTenant, "user-1", models.RecordAttendanceRequest{EnrollmentID: enrolled, ScheduleID: &ownSlot, SessionDate: session, Status: models.AttendancePresent})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), record.SessionDate)
	require.NotNil(t, record.RecordedBy)
	assert.Equal(t, "user-1", *record.RecordedBy)

	_, err = svc.Record(ctx, testTenant, "user-1", models.RecordAttendanceRequest{EnrollmentID: enrolled, SessionDate: session.Add(time.Hour), Status: models.AttendanceLate})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Record(ctx, testTenant, "user-1", models.RecordAttendanceRequest{EnrollmentID: waitlisted, SessionDate: session, Status: models.AttendancePresent})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = svc.Record(ctx, testTenant, "user-1", models.RecordAttendanceRequest{EnrollmentID: enrolled, ScheduleID: &foreignSlot, SessionDate: session.AddDate(0, 0, 1), Status: models.AttendancePresent})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = svc.Record(ctx, testTenant, "user-1", models.RecordAttendanceRequest{EnrollmentID: enrolled, SessionDate: session.AddDate(0, 0, 1), Status: "HERE"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	absent := models.AttendanceAbsent
	updated, err := svc.Update(ctx, testTenant, "user-2", record.ID, models.UpdateAttendanceRequest{Status: &absent})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, updated.Status)
	assert.Equal(t, "user-2", *updated.RecordedBy)

	summary, err := svc.Summary(ctx, testTenant, enrolled)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Absent)
	assert.Zero(t, summary.AttendanceRate)
}
