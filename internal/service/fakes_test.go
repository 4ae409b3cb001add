package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
)

const testTenant = "abcd1234-0000-4000-8000-000000000001"

type fakePeople struct {
	persons map[string]*models.Person
}

func newFakePeople(persons ...models.Person) *fakePeople {
	f := &fakePeople{persons: map[string]*models.Person{}}
	for i := range persons {
		p := persons[i]
		f.persons[p.ID] = &p
	}
	return f
}

func (f *fakePeople) FindByID(ctx context.Context, tenantID, id string, includeDeleted bool) (*models.Person, error) {
	p, ok := f.persons[id]
	if !ok || p.TenantID != tenantID || (!includeDeleted && p.DeletedAt != nil) {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

// fakeEnrollmentRepo keeps enrollments in memory with the same conditional
// write semantics as the SQL repository.
type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	instances   map[string]*models.InstanceCapacity
	enrollments map[string]*models.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		instances:   map[string]*models.InstanceCapacity{},
		enrollments: map[string]*models.Enrollment{},
	}
}

func (f *fakeEnrollmentRepo) addInstance(id string, status models.CourseInstanceStatus, max *int) {
	f.instances[id] = &models.InstanceCapacity{CourseInstanceID: id, Name: "Cohort " + id[:4], Status: status, MaxStudents: max}
}

func (f *fakeEnrollmentRepo) WithinTx(ctx context.Context, fn func(store repository.EnrollmentStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func (f *fakeEnrollmentRepo) LockCourseInstance(ctx context.Context, tenantID, instanceID string) (*models.InstanceCapacity, error) {
	instance, ok := f.instances[instanceID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *instance
	return &cp, nil
}

func (f *fakeEnrollmentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok || e.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEnrollmentRepo) FindLive(ctx context.Context, tenantID, studentID, instanceID string) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.TenantID == tenantID && e.StudentID == studentID && e.CourseInstanceID == instanceID && e.Status != models.EnrollmentStatusDropped {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) CountByStatus(ctx context.Context, tenantID, instanceID string, status models.EnrollmentStatus) (int, error) {
	total := 0
	for _, e := range f.enrollments {
		if e.TenantID == tenantID && e.CourseInstanceID == instanceID && e.Status == status {
			total++
		}
	}
	return total, nil
}

func (f *fakeEnrollmentRepo) ListWaitlisted(ctx context.Context, tenantID, instanceID string, limit int) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range f.enrollments {
		if e.TenantID == tenantID && e.CourseInstanceID == instanceID && e.Status == models.EnrollmentStatusWaitlisted {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrollmentDate.Equal(out[j].EnrollmentDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].EnrollmentDate.Before(out[j].EnrollmentDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if _, err := f.FindLive(ctx, enrollment.TenantID, enrollment.StudentID, enrollment.CourseInstanceID); err == nil {
		return fmt.Errorf("insert enrollment: %w", repository.ErrDuplicate)
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	cp := *enrollment
	f.enrollments[enrollment.ID] = &cp
	return nil
}

func (f *fakeEnrollmentRepo) UpdateStatus(ctx context.Context, enrollment *models.Enrollment, from models.EnrollmentStatus) error {
	stored, ok := f.enrollments[enrollment.ID]
	if !ok || stored.Status != from {
		return repository.ErrStaleWrite
	}
	cp := *enrollment
	f.enrollments[enrollment.ID] = &cp
	return nil
}

func (f *fakeEnrollmentRepo) UpdatePayment(ctx context.Context, tenantID, id string, status models.PaymentStatus, amountPaid float64) error {
	e, ok := f.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.PaymentStatus = status
	e.AmountPaid = amountPaid
	return nil
}

func (f *fakeEnrollmentRepo) List(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var out []models.Enrollment
	for _, e := range f.enrollments {
		if e.TenantID == tenantID && (filter.CourseInstanceID == "" || e.CourseInstanceID == filter.CourseInstanceID) {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (f *fakeEnrollmentRepo) statusOf(id string) models.EnrollmentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enrollments[id].Status
}

type recordingPromotions struct {
	calls [][]models.Enrollment
}

func (r *recordingPromotions) WaitlistPromoted(ctx context.Context, tenantID, instanceName string, promoted []models.Enrollment) {
	r.calls = append(r.calls, promoted)
}

// tickingClock returns a strictly increasing time on every call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
