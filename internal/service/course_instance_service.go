package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type courseInstanceRepository interface {
	List(ctx context.Context, tenantID string, filter models.CourseInstanceFilter) ([]models.CourseInstanceDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.CourseInstance, error)
	FindDetailByID(ctx context.Context, tenantID, id string) (*models.CourseInstanceDetail, error)
	Create(ctx context.Context, instance *models.CourseInstance) error
	Update(ctx context.Context, instance *models.CourseInstance) error
	UpdateStatus(ctx context.Context, tenantID, id string, from, to models.CourseInstanceStatus) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

type courseFinder interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Course, error)
}

type waitlistProcessor interface {
	ProcessWaitlist(ctx context.Context, tenantID, instanceID string) (*models.WaitlistResult, error)
}

var courseInstancePatchFields = []string{
	"name", "instructor_id", "start_date", "end_date", "enrollment_start", "enrollment_end", "max_students", "location",
}

var instanceTransitions = map[models.CourseInstanceStatus][]models.CourseInstanceStatus{
	models.CourseInstanceStatusDraft:            {models.CourseInstanceStatusScheduled, models.CourseInstanceStatusCancelled},
	models.CourseInstanceStatusScheduled:        {models.CourseInstanceStatusEnrollmentOpen, models.CourseInstanceStatusCancelled},
	models.CourseInstanceStatusEnrollmentOpen:   {models.CourseInstanceStatusEnrollmentClosed, models.CourseInstanceStatusCancelled},
	models.CourseInstanceStatusEnrollmentClosed: {models.CourseInstanceStatusEnrollmentOpen, models.CourseInstanceStatusInProgress, models.CourseInstanceStatusCancelled},
	models.CourseInstanceStatusInProgress:       {models.CourseInstanceStatusCompleted, models.CourseInstanceStatusCancelled},
}

// CourseInstanceService manages scheduled course offerings.
type CourseInstanceService struct {
	repo            courseInstanceRepository
	courses         courseFinder
	people          personReader
	waitlist        waitlistProcessor
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCapacity int
}

// NewCourseInstanceService constructs a CourseInstanceService.
func NewCourseInstanceService(repo courseInstanceRepository, courses courseFinder, people personReader, validate *validator.Validate, logger *zap.Logger, defaultCapacity int) *CourseInstanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultCapacity
	}
	return &CourseInstanceService{repo: repo, courses: courses, people: people, validator: validate, logger: logger, defaultCapacity: defaultCapacity}
}

// SetWaitlistProcessor wires the promotion hook run after capacity increases.
func (s *CourseInstanceService) SetWaitlistProcessor(w waitlistProcessor) {
	s.waitlist = w
}

// List returns instances with seat counts and effective capacity.
func (s *CourseInstanceService) List(ctx context.Context, tenantID string, filter models.CourseInstanceFilter) ([]models.CourseInstanceDetail, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list course instances")
	}
	for i := range items {
		items[i].Capacity = effectiveCapacity(items[i].MaxStudents, items[i].CourseMaxStudents, s.defaultCapacity)
	}
	return items, filter.Pagination(total), nil
}

// Get returns an instance with seat counts and effective capacity.
func (s *CourseInstanceService) Get(ctx context.Context, tenantID, id string) (*models.CourseInstanceDetail, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "course instance not found", "failed to load course instance")
	}
	detail.Capacity = effectiveCapacity(detail.MaxStudents, detail.CourseMaxStudents, s.defaultCapacity)
	return detail, nil
}

// Create schedules a new offering in DRAFT.
func (s *CourseInstanceService) Create(ctx context.Context, tenantID string, req models.CreateCourseInstanceRequest) (*models.CourseInstance, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course instance payload")
	}
	if _, err := s.courses.FindByID(ctx, tenantID, req.CourseID); err != nil {
		return nil, lookupErr(err, "course not found", "failed to load course")
	}
	instance := &models.CourseInstance{
		TenantID:        tenantID,
		CourseID:        req.CourseID,
		Name:            sanitize.Text(req.Name),
		InstructorID:    req.InstructorID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		EnrollmentStart: req.EnrollmentStart,
		EnrollmentEnd:   req.EnrollmentEnd,
		MaxStudents:     req.MaxStudents,
		Location:        sanitize.OptionalText(req.Location),
		Status:          models.CourseInstanceStatusDraft,
	}
	if err := s.checkInstance(ctx, instance); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, instance); err != nil {
		return nil, writeErr(err, "course instance already exists", "failed to create course instance")
	}
	return instance, nil
}

// Update applies a partial update. Raising capacity promotes waitlisted students.
func (s *CourseInstanceService) Update(ctx context.Context, tenantID, id string, patch dto.Patch) (*models.CourseInstanceDetail, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := patch.Allow(courseInstancePatchFields...); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "course instance not found", "failed to load course instance")
	}
	instance := detail.CourseInstance
	before := effectiveCapacity(instance.MaxStudents, detail.CourseMaxStudents, s.defaultCapacity)

	for _, field := range patch.Fields() {
		switch field {
		case "name":
			err = patchValue(patch, field, &instance.Name)
		case "instructor_id":
			err = patchOptional(patch, field, &instance.InstructorID)
		case "start_date":
			err = patchValue(patch, field, &instance.StartDate)
		case "end_date":
			err = patchValue(patch, field, &instance.EndDate)
		case "enrollment_start":
			err = patchOptional(patch, field, &instance.EnrollmentStart)
		case "enrollment_end":
			err = patchOptional(patch, field, &instance.EnrollmentEnd)
		case "max_students":
			err = patchOptional(patch, field, &instance.MaxStudents)
		case "location":
			err = patchOptional(patch, field, &instance.Location)
		}
		if err != nil {
			return nil, err
		}
	}

	check := models.CreateCourseInstanceRequest{
		CourseID:        instance.CourseID,
		Name:            instance.Name,
		InstructorID:    instance.InstructorID,
		StartDate:       instance.StartDate,
		EndDate:         instance.EndDate,
		EnrollmentStart: instance.EnrollmentStart,
		EnrollmentEnd:   instance.EnrollmentEnd,
		MaxStudents:     instance.MaxStudents,
		Location:        instance.Location,
	}
	if err := s.validator.Struct(check); err != nil {
		return nil, invalid(err, "invalid course instance payload")
	}
	instance.Name = sanitize.Text(instance.Name)
	instance.Location = sanitize.OptionalText(instance.Location)
	if err := s.checkInstance(ctx, &instance); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &instance); err != nil {
		return nil, writeErr(err, "course instance already exists", "failed to update course instance")
	}

	after := effectiveCapacity(instance.MaxStudents, detail.CourseMaxStudents, s.defaultCapacity)
	if after > before && s.waitlist != nil {
		if _, err := s.waitlist.ProcessWaitlist(ctx, tenantID, id); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, tenantID, id)
}

// ChangeStatus moves an instance along its lifecycle.
func (s *CourseInstanceService) ChangeStatus(ctx context.Context, tenantID, id string, req models.ChangeInstanceStatusRequest) (*models.CourseInstanceDetail, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid status payload")
	}
	instance, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "course instance not found", "failed to load course instance")
	}
	if err := checkInstanceTransition(instance.Status, req.Status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, tenantID, id, instance.Status, req.Status); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, conflict("course instance status changed concurrently")
		}
		return nil, appErrors.Internal(err, "failed to update course instance status")
	}
	s.logger.Info("course instance status changed",
		zap.String("tenant_id", tenantID),
		zap.String("course_instance_id", id),
		zap.String("from", string(instance.Status)),
		zap.String("to", string(req.Status)))
	return s.Get(ctx, tenantID, id)
}

// Delete soft-deletes an instance.
func (s *CourseInstanceService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return lookupErr(err, "course instance not found", "failed to delete course instance")
	}
	return nil
}

func (s *CourseInstanceService) checkInstance(ctx context.Context, instance *models.CourseInstance) error {
	if !instance.EndDate.After(instance.StartDate) {
		return badRequest("end date must be after start date")
	}
	if instance.EnrollmentStart != nil && instance.EnrollmentEnd != nil && !instance.EnrollmentEnd.After(*instance.EnrollmentStart) {
		return badRequest("enrollment end must be after enrollment start")
	}
	if instance.InstructorID != nil && s.people != nil {
		if _, err := s.people.FindByID(ctx, instance.TenantID, *instance.InstructorID, false); err != nil {
			return lookupErr(err, "instructor not found", "failed to load instructor")
		}
	}
	return nil
}

func checkInstanceTransition(from, to models.CourseInstanceStatus) error {
	if from == to {
		return conflict("course instance is already " + string(to))
	}
	for _, allowed := range instanceTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return badRequest("cannot move course instance from " + string(from) + " to " + string(to))
}
