package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type fakeCourseRepo struct {
	courses map[string]*models.Course
}

func (f *fakeCourseRepo) List(ctx context.Context, tenantID string, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range f.courses {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (f *fakeCourseRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok || c.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourseRepo) ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error) {
	for _, c := range f.courses {
		if c.TenantID == tenantID && c.ID != excludeID && strings.EqualFold(c.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = uuid.NewString()
	cp := *course
	f.courses[course.ID] = &cp
	return nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, course *models.Course) error {
	cp := *course
	f.courses[course.ID] = &cp
	return nil
}

func (f *fakeCourseRepo) SoftDelete(ctx context.Context, tenantID, id string) error {
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	return nil
}

func TestCourseServiceCodeUniqueness(t *testing.T) {
	repo := &fakeCourseRepo{courses: map[string]*models.Course{}}
	svc := NewCourseService(repo, nil, zap.NewNop())
	ctx := context.Background()

	course, err := svc.Create(ctx, testTenant, models.CreateCourseRequest{Code: " eng-101 ", Name: "Engines", MaxStudents: intPtr(25)})
	require.NoError(t, err)
	assert.Equal(t, "ENG-101", course.Code)
	assert.True(t, course.Active)

	_, err = svc.Create(ctx, testTenant, models.CreateCourseRequest{Code: "Eng-101", Name: "Duplicate"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(ctx, testTenant, models.CreateCourseRequest{Code: "ENG-102", Name: ""})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, "", models.CreateCourseRequest{Code: "X", Name: "X"})
	assert.ErrorIs(t, err, appErrors.ErrTenantRequired)
}

func TestCourseServiceUpdate(t *testing.T) {
	repo := &fakeCourseRepo{courses: map[string]*models.Course{}}
	svc := NewCourseService(repo, nil, zap.NewNop())
	ctx := context.Background()

	engines, err := svc.Create(ctx, testTenant, models.CreateCourseRequest{Code: "ENG-101", Name: "Engines"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, testTenant, models.CreateCourseRequest{Code: "MAT-101", Name: "Maths"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, testTenant, engines.ID, dto.Patch{
		"name":         json.RawMessage(`"Analytical Engines"`),
		"max_students": json.RawMessage("12"),
		"active":       json.RawMessage("false"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Analytical Engines", updated.Name)
	require.NotNil(t, updated.MaxStudents)
	assert.Equal(t, 12, *updated.MaxStudents)
	assert.False(t, updated.Active)

	_, err = svc.Update(ctx, testTenant, engines.ID, dto.Patch{"code": json.RawMessage(`"mat-101"`)})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Update(ctx, testTenant, engines.ID, dto.Patch{"tenant_id": json.RawMessage(`"other"`)})
	assert.Error(t, err)

	_, err = svc.Update(ctx, testTenant, uuid.NewString(), dto.Patch{"name": json.RawMessage(`"x"`)})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
