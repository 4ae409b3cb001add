package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

// DefaultCapacity applies when neither the instance nor its course sets one.
const DefaultCapacity = 20

type enrollmentRepository interface {
	repository.EnrollmentStore
	WithinTx(ctx context.Context, fn func(store repository.EnrollmentStore) error) error
	UpdatePayment(ctx context.Context, tenantID, id string, status models.PaymentStatus, amountPaid float64) error
	List(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
}

type promotionNotifier interface {
	WaitlistPromoted(ctx context.Context, tenantID, instanceName string, promoted []models.Enrollment)
}

var enrollmentTransitions = map[models.EnrollmentStatus][]models.EnrollmentStatus{
	models.EnrollmentStatusPending:    {models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted, models.EnrollmentStatusDropped, models.EnrollmentStatusCancelled},
	models.EnrollmentStatusEnrolled:   {models.EnrollmentStatusDropped, models.EnrollmentStatusCompleted, models.EnrollmentStatusFailed, models.EnrollmentStatusCancelled},
	models.EnrollmentStatusWaitlisted: {models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, models.EnrollmentStatusCancelled},
}

// EnrollmentService enrolls students and keeps the waitlist moving.
type EnrollmentService struct {
	repo            enrollmentRepository
	people          personReader
	notifier        promotionNotifier
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCapacity int
	now             func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService. notifier and metrics may be nil.
func NewEnrollmentService(repo enrollmentRepository, people personReader, notifier promotionNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, defaultCapacity int) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultCapacity
	}
	return &EnrollmentService{
		repo:            repo,
		people:          people,
		notifier:        notifier,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		defaultCapacity: defaultCapacity,
		now:             time.Now,
	}
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return items, filter.Pagination(total), nil
}

// Get returns an enrollment.
func (s *EnrollmentService) Get(ctx context.Context, tenantID, id string) (*models.Enrollment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	e, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	return e, nil
}

// Enroll seats a student, or waitlists them when the instance is full.
func (s *EnrollmentService) Enroll(ctx context.Context, tenantID string, req models.EnrollRequest) (*models.Enrollment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid enrollment payload")
	}
	if _, err := s.people.FindByID(ctx, tenantID, req.StudentID, false); err != nil {
		return nil, lookupErr(err, "student not found", "failed to load student")
	}

	enrollment := &models.Enrollment{
		TenantID:         tenantID,
		StudentID:        req.StudentID,
		CourseInstanceID: req.CourseInstanceID,
		PaymentStatus:    models.PaymentStatusPending,
		EnrollmentDate:   s.now().UTC(),
		Notes:            sanitize.OptionalText(req.Notes),
	}

	err := s.repo.WithinTx(ctx, func(store repository.EnrollmentStore) error {
		instance, err := store.LockCourseInstance(ctx, tenantID, req.CourseInstanceID)
		if err != nil {
			return lookupErr(err, "course instance not found", "failed to load course instance")
		}
		if instance.Status != models.CourseInstanceStatusEnrollmentOpen {
			return badRequest("enrollment not open")
		}

		if _, err := store.FindLive(ctx, tenantID, req.StudentID, req.CourseInstanceID); err == nil {
			return conflict("student already enrolled in this course instance")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "failed to check existing enrollment")
		}

		enrolled, err := store.CountByStatus(ctx, tenantID, instance.CourseInstanceID, models.EnrollmentStatusEnrolled)
		if err != nil {
			return appErrors.Internal(err, "failed to count enrollments")
		}
		enrollment.Status = models.EnrollmentStatusEnrolled
		if enrolled >= effectiveCapacity(instance.MaxStudents, instance.CourseMaxStudents, s.defaultCapacity) {
			enrollment.Status = models.EnrollmentStatusWaitlisted
		}
		if err := store.Create(ctx, enrollment); err != nil {
			return writeErr(err, "student already enrolled in this course instance", "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEnrollment(enrollment.Status)
	s.logger.Info("student enrolled",
		zap.String("tenant_id", tenantID),
		zap.String("enrollment_id", enrollment.ID),
		zap.String("status", string(enrollment.Status)))
	return enrollment, nil
}

// Drop drops an enrollment and promotes from the waitlist into the freed seat.
func (s *EnrollmentService) Drop(ctx context.Context, tenantID, id string, req models.DropEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid drop payload")
	}
	return s.transition(ctx, tenantID, id, models.EnrollmentStatusDropped, req.Reason)
}

// ChangeStatus applies an explicit lifecycle transition.
func (s *EnrollmentService) ChangeStatus(ctx context.Context, tenantID, id string, req models.ChangeEnrollmentStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid status payload")
	}
	return s.transition(ctx, tenantID, id, req.Status, req.Reason)
}

// UpdatePayment records payment progress without touching the status.
func (s *EnrollmentService) UpdatePayment(ctx context.Context, tenantID, id string, req models.UpdatePaymentRequest) (*models.Enrollment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid payment payload")
	}
	e, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	amount := e.AmountPaid
	if req.AmountPaid != nil {
		amount = *req.AmountPaid
	}
	if err := s.repo.UpdatePayment(ctx, tenantID, id, req.PaymentStatus, amount); err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to update payment")
	}
	e.PaymentStatus = req.PaymentStatus
	e.AmountPaid = amount
	return e, nil
}

// ProcessWaitlist fills free seats of an instance from its waitlist in FIFO order.
func (s *EnrollmentService) ProcessWaitlist(ctx context.Context, tenantID, instanceID string) (*models.WaitlistResult, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var (
		result   *models.WaitlistResult
		promoted []models.Enrollment
		name     string
	)
	err := s.repo.WithinTx(ctx, func(store repository.EnrollmentStore) error {
		instance, err := store.LockCourseInstance(ctx, tenantID, instanceID)
		if err != nil {
			return lookupErr(err, "course instance not found", "failed to load course instance")
		}
		name = instance.Name
		result, promoted, err = s.promote(ctx, store, tenantID, instance)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterPromotion(ctx, tenantID, name, promoted)
	return result, nil
}

func (s *EnrollmentService) transition(ctx context.Context, tenantID, id string, to models.EnrollmentStatus, reason *string) (*models.Enrollment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	// Lock order is instance row, then enrollment rows.
	current, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}

	var (
		updated  *models.Enrollment
		promoted []models.Enrollment
		name     string
	)
	err = s.repo.WithinTx(ctx, func(store repository.EnrollmentStore) error {
		instance, err := store.LockCourseInstance(ctx, tenantID, current.CourseInstanceID)
		if err != nil {
			return lookupErr(err, "course instance not found", "failed to load course instance")
		}
		name = instance.Name

		e, err := store.FindByID(ctx, tenantID, id)
		if err != nil {
			return lookupErr(err, "enrollment not found", "failed to load enrollment")
		}
		if err := checkEnrollmentTransition(e.Status, to); err != nil {
			return err
		}
		if to == models.EnrollmentStatusEnrolled {
			if err := s.ensureSeat(ctx, store, tenantID, instance); err != nil {
				return err
			}
		}

		from := e.Status
		now := s.now().UTC()
		e.Status = to
		switch to {
		case models.EnrollmentStatusDropped:
			e.DropDate = &now
			e.DropReason = sanitize.OptionalText(reason)
		case models.EnrollmentStatusCompleted, models.EnrollmentStatusFailed:
			e.CompletionDate = &now
		}
		if err := store.UpdateStatus(ctx, e, from); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return conflict("enrollment changed concurrently")
			}
			return writeErr(err, "student already enrolled in this course instance", "failed to update enrollment")
		}
		updated = e

		if to == models.EnrollmentStatusDropped || to == models.EnrollmentStatusCancelled {
			_, promoted, err = s.promote(ctx, store, tenantID, instance)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("enrollment status changed",
		zap.String("tenant_id", tenantID),
		zap.String("enrollment_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	s.afterPromotion(ctx, tenantID, name, promoted)
	return updated, nil
}

func (s *EnrollmentService) ensureSeat(ctx context.Context, store repository.EnrollmentStore, tenantID string, instance *models.InstanceCapacity) error {
	enrolled, err := store.CountByStatus(ctx, tenantID, instance.CourseInstanceID, models.EnrollmentStatusEnrolled)
	if err != nil {
		return appErrors.Internal(err, "failed to count enrollments")
	}
	if enrolled >= effectiveCapacity(instance.MaxStudents, instance.CourseMaxStudents, s.defaultCapacity) {
		return appErrors.Clone(appErrors.ErrCapacityExceeded, "course instance is full")
	}
	return nil
}

// promote must run with the instance row locked.
func (s *EnrollmentService) promote(ctx context.Context, store repository.EnrollmentStore, tenantID string, instance *models.InstanceCapacity) (*models.WaitlistResult, []models.Enrollment, error) {
	capacity := effectiveCapacity(instance.MaxStudents, instance.CourseMaxStudents, s.defaultCapacity)
	enrolled, err := store.CountByStatus(ctx, tenantID, instance.CourseInstanceID, models.EnrollmentStatusEnrolled)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to count enrollments")
	}
	result := &models.WaitlistResult{
		CourseInstanceID: instance.CourseInstanceID,
		Capacity:         capacity,
		Promoted:         []string{},
	}
	available := capacity - enrolled
	if available <= 0 {
		return result, nil, nil
	}
	result.AvailableSlots = available

	waiting, err := store.ListWaitlisted(ctx, tenantID, instance.CourseInstanceID, available)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load waitlist")
	}
	promoted := make([]models.Enrollment, 0, len(waiting))
	for i := range waiting {
		e := waiting[i]
		e.Status = models.EnrollmentStatusEnrolled
		if err := store.UpdateStatus(ctx, &e, models.EnrollmentStatusWaitlisted); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return nil, nil, conflict("waitlist changed concurrently")
			}
			return nil, nil, appErrors.Internal(err, "failed to promote waitlisted enrollment")
		}
		promoted = append(promoted, e)
		result.Promoted = append(result.Promoted, e.ID)
	}
	return result, promoted, nil
}

func (s *EnrollmentService) afterPromotion(ctx context.Context, tenantID, instanceName string, promoted []models.Enrollment) {
	if len(promoted) == 0 {
		return
	}
	s.metrics.RecordPromotions(len(promoted))
	s.logger.Info("waitlist promoted",
		zap.String("tenant_id", tenantID),
		zap.String("course_instance_id", promoted[0].CourseInstanceID),
		zap.Int("count", len(promoted)))
	if s.notifier != nil {
		s.notifier.WaitlistPromoted(ctx, tenantID, instanceName, promoted)
	}
}

func checkEnrollmentTransition(from, to models.EnrollmentStatus) error {
	if from == to {
		if to == models.EnrollmentStatusDropped {
			return conflict("enrollment already dropped")
		}
		return conflict("enrollment is already " + string(to))
	}
	for _, allowed := range enrollmentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return badRequest("cannot move enrollment from " + string(from) + " to " + string(to))
}

// effectiveCapacity resolves the seat limit: instance, then course, then fallback.
func effectiveCapacity(instance, course *int, fallback int) int {
	if instance != nil && *instance > 0 {
		return *instance
	}
	if course != nil && *course > 0 {
		return *course
	}
	return fallback
}
