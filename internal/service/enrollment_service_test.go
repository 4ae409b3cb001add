package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type enrollmentFixture struct {
	svc      *EnrollmentService
	repo     *fakeEnrollmentRepo
	notifier *recordingPromotions
	instance string
	students []string
}

func newEnrollmentFixture(t *testing.T, capacity int, students int) *enrollmentFixture {
	t.Helper()
	repo := newFakeEnrollmentRepo()
	instance := uuid.NewString()
	repo.addInstance(instance, models.CourseInstanceStatusEnrollmentOpen, intPtr(capacity))

	ids := make([]string, students)
	persons := make([]models.Person, students)
	for i := range ids {
		ids[i] = uuid.NewString()
		persons[i] = models.Person{ID: ids[i], TenantID: testTenant, FirstName: "Student", LastName: ids[i][:4], Email: ids[i][:8] + "@example.com"}
	}
	notifier := &recordingPromotions{}
	svc := NewEnrollmentService(repo, newFakePeople(persons...), notifier, nil, nil, zap.NewNop(), 0)
	svc.now = tickingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return &enrollmentFixture{svc: svc, repo: repo, notifier: notifier, instance: instance, students: ids}
}

func (f *enrollmentFixture) enroll(t *testing.T, student string) *models.Enrollment {
	t.Helper()
	e, err := f.svc.Enroll(context.Background(), testTenant, models.EnrollRequest{StudentID: student, CourseInstanceID: f.instance})
	require.NoError(t, err)
	return e
}

func TestEnrollmentServiceWaitlistsWhenFull(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 2)

	a := f.enroll(t, f.students[0])
	b := f.enroll(t, f.students[1])

	assert.Equal(t, models.EnrollmentStatusEnrolled, a.Status)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, b.Status)
	assert.Equal(t, models.PaymentStatusPending, a.PaymentStatus)
}

func TestEnrollmentServiceDropPromotesFirstWaitlisted(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 3)
	a := f.enroll(t, f.students[0])
	b := f.enroll(t, f.students[1])
	c := f.enroll(t, f.students[2])

	dropped, err := f.svc.Drop(context.Background(), testTenant, a.ID, models.DropEnrollmentRequest{Reason: strPtr("<b>moved</b> away")})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)
	require.NotNil(t, dropped.DropDate)
	require.NotNil(t, dropped.DropReason)
	assert.Equal(t, "moved away", *dropped.DropReason)
	assert.Equal(t, models.EnrollmentStatusEnrolled, f.repo.statusOf(b.ID))
	assert.Equal(t, models.EnrollmentStatusWaitlisted, f.repo.statusOf(c.ID))
	require.Len(t, f.notifier.calls, 1)
	require.Len(t, f.notifier.calls[0], 1)
	assert.Equal(t, b.ID, f.notifier.calls[0][0].ID)
}

func TestEnrollmentServiceReenrollAfterDrop(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 2)
	a := f.enroll(t, f.students[0])
	f.enroll(t, f.students[1])

	_, err := f.svc.Drop(context.Background(), testTenant, a.ID, models.DropEnrollmentRequest{})
	require.NoError(t, err)

	again := f.enroll(t, f.students[0])
	assert.NotEqual(t, a.ID, again.ID)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, again.Status)
}

func TestEnrollmentServiceRejectsLiveDuplicate(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 2)
	f.enroll(t, f.students[0])
	f.enroll(t, f.students[1])

	for _, student := range f.students {
		_, err := f.svc.Enroll(context.Background(), testTenant, models.EnrollRequest{StudentID: student, CourseInstanceID: f.instance})
		assert.ErrorIs(t, err, appErrors.ErrConflict)
	}
}

func TestEnrollmentServiceEnrollPreconditions(t *testing.T) {
	f := newEnrollmentFixture(t, 5, 1)
	ctx := context.Background()

	closed := uuid.NewString()
	f.repo.addInstance(closed, models.CourseInstanceStatusEnrollmentClosed, nil)
	_, err := f.svc.Enroll(ctx, testTenant, models.EnrollRequest{StudentID: f.students[0], CourseInstanceID: closed})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = f.svc.Enroll(ctx, testTenant, models.EnrollRequest{StudentID: f.students[0], CourseInstanceID: uuid.NewString()})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Enroll(ctx, testTenant, models.EnrollRequest{StudentID: uuid.NewString(), CourseInstanceID: f.instance})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Enroll(ctx, testTenant, models.EnrollRequest{StudentID: "not-a-uuid", CourseInstanceID: f.instance})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Enroll(ctx, "", models.EnrollRequest{StudentID: f.students[0], CourseInstanceID: f.instance})
	assert.ErrorIs(t, err, appErrors.ErrTenantRequired)
}

func TestEnrollmentServiceTransitions(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 2)
	ctx := context.Background()
	a := f.enroll(t, f.students[0])
	b := f.enroll(t, f.students[1])

	_, err := f.svc.ChangeStatus(ctx, testTenant, b.ID, models.ChangeEnrollmentStatusRequest{Status: models.EnrollmentStatusEnrolled})
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)

	_, err = f.svc.ChangeStatus(ctx, testTenant, b.ID, models.ChangeEnrollmentStatusRequest{Status: models.EnrollmentStatusCompleted})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = f.svc.ChangeStatus(ctx, testTenant, a.ID, models.ChangeEnrollmentStatusRequest{Status: models.EnrollmentStatusEnrolled})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	completed, err := f.svc.ChangeStatus(ctx, testTenant, a.ID, models.ChangeEnrollmentStatusRequest{Status: models.EnrollmentStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletionDate)
	assert.Empty(t, f.notifier.calls)

	_, err = f.svc.Drop(ctx, testTenant, a.ID, models.DropEnrollmentRequest{})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)
}

func TestEnrollmentServiceDropTwiceConflicts(t *testing.T) {
	f := newEnrollmentFixture(t, 2, 1)
	a := f.enroll(t, f.students[0])

	_, err := f.svc.Drop(context.Background(), testTenant, a.ID, models.DropEnrollmentRequest{})
	require.NoError(t, err)
	_, err = f.svc.Drop(context.Background(), testTenant, a.ID, models.DropEnrollmentRequest{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestEnrollmentServiceCancelFreesSeat(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 2)
	a := f.enroll(t, f.students[0])
	b := f.enroll(t, f.students[1])

	_, err := f.svc.ChangeStatus(context.Background(), testTenant, a.ID, models.ChangeEnrollmentStatusRequest{Status: models.EnrollmentStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, f.repo.statusOf(b.ID))
}

func TestEnrollmentServiceProcessWaitlistAfterCapacityIncrease(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 4)
	first := f.enroll(t, f.students[0])
	waiting := []*models.Enrollment{f.enroll(t, f.students[1]), f.enroll(t, f.students[2]), f.enroll(t, f.students[3])}
	assert.Equal(t, models.EnrollmentStatusEnrolled, first.Status)

	f.repo.instances[f.instance].MaxStudents = intPtr(3)
	result, err := f.svc.ProcessWaitlist(context.Background(), testTenant, f.instance)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Capacity)
	assert.Equal(t, 2, result.AvailableSlots)
	assert.Equal(t, []string{waiting[0].ID, waiting[1].ID}, result.Promoted)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, f.repo.statusOf(waiting[2].ID))

	again, err := f.svc.ProcessWaitlist(context.Background(), testTenant, f.instance)
	require.NoError(t, err)
	assert.Empty(t, again.Promoted)
}

func TestEnrollmentServiceConcurrentEnrollNeverOverfills(t *testing.T) {
	const capacity = 3
	f := newEnrollmentFixture(t, capacity, 12)

	var wg sync.WaitGroup
	errs := make(chan error, len(f.students))
	for _, student := range f.students {
		wg.Add(1)
		go func(student string) {
			defer wg.Done()
			_, err := f.svc.Enroll(context.Background(), testTenant, models.EnrollRequest{StudentID: student, CourseInstanceID: f.instance})
			errs <- err
		}(student)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	enrolled, _ := f.repo.CountByStatus(context.Background(), testTenant, f.instance, models.EnrollmentStatusEnrolled)
	waitlisted, _ := f.repo.CountByStatus(context.Background(), testTenant, f.instance, models.EnrollmentStatusWaitlisted)
	assert.Equal(t, capacity, enrolled)
	assert.Equal(t, len(f.students)-capacity, waitlisted)
}

func TestEnrollmentServiceUpdatePayment(t *testing.T) {
	f := newEnrollmentFixture(t, 1, 1)
	a := f.enroll(t, f.students[0])

	amount := 150.5
	updated, err := f.svc.UpdatePayment(context.Background(), testTenant, a.ID, models.UpdatePaymentRequest{PaymentStatus: models.PaymentStatusPartial, AmountPaid: &amount})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, updated.PaymentStatus)
	assert.Equal(t, amount, updated.AmountPaid)
	assert.Equal(t, models.EnrollmentStatusEnrolled, updated.Status)
}

func TestEffectiveCapacity(t *testing.T) {
	assert.Equal(t, 5, effectiveCapacity(intPtr(5), intPtr(9), 20))
	assert.Equal(t, 9, effectiveCapacity(nil, intPtr(9), 20))
	assert.Equal(t, 9, effectiveCapacity(intPtr(0), intPtr(9), 20))
	assert.Equal(t, 20, effectiveCapacity(nil, nil, 20))
}
