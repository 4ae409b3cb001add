package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type courseRepository interface {
	List(ctx context.Context, tenantID string, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

var coursePatchFields = []string{"code", "name", "description", "credits", "max_students", "active"}

// CourseService manages the course catalogue.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, tenantID string, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	courses, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, filter.Pagination(total), nil
}

// Get returns a live course.
func (s *CourseService) Get(ctx context.Context, tenantID, id string) (*models.Course, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "course not found", "failed to load course")
	}
	return course, nil
}

// Create adds a course; codes are unique per tenant, case-insensitively.
func (s *CourseService) Create(ctx context.Context, tenantID string, req models.CreateCourseRequest) (*models.Course, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course payload")
	}
	course := &models.Course{
		TenantID:    tenantID,
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        sanitize.Text(req.Name),
		Description: sanitize.OptionalText(req.Description),
		Credits:     req.Credits,
		MaxStudents: req.MaxStudents,
		Active:      true,
	}
	if err := s.ensureCodeFree(ctx, tenantID, course.Code, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, writeErr(err, "course code already exists", "failed to create course")
	}
	return course, nil
}

// Update applies a partial update to a course.
func (s *CourseService) Update(ctx context.Context, tenantID, id string, patch dto.Patch) (*models.Course, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := patch.Allow(coursePatchFields...); err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "course not found", "failed to load course")
	}

	for _, field := range patch.Fields() {
		switch field {
		case "code":
			err = patchValue(patch, field, &course.Code)
		case "name":
			err = patchValue(patch, field, &course.Name)
		case "description":
			err = patchOptional(patch, field, &course.Description)
		case "credits":
			err = patchOptional(patch, field, &course.Credits)
		case "max_students":
			err = patchOptional(patch, field, &course.MaxStudents)
		case "active":
			err = patchValue(patch, field, &course.Active)
		}
		if err != nil {
			return nil, err
		}
	}

	check := models.CreateCourseRequest{
		Code:        course.Code,
		Name:        course.Name,
		Description: course.Description,
		Credits:     course.Credits,
		MaxStudents: course.MaxStudents,
	}
	if err := s.validator.Struct(check); err != nil {
		return nil, invalid(err, "invalid course payload")
	}
	course.Code = strings.ToUpper(strings.TrimSpace(course.Code))
	course.Name = sanitize.Text(course.Name)
	course.Description = sanitize.OptionalText(course.Description)

	if patch.Has("code") {
		if err := s.ensureCodeFree(ctx, tenantID, course.Code, course.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, writeErr(err, "course code already exists", "failed to update course")
	}
	return course, nil
}

// Delete soft-deletes a course.
func (s *CourseService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return lookupErr(err, "course not found", "failed to delete course")
	}
	return nil
}

func (s *CourseService) ensureCodeFree(ctx context.Context, tenantID, code, excludeID string) error {
	taken, err := s.repo.ExistsByCode(ctx, tenantID, code, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check course code")
	}
	if taken {
		return conflict("course code already exists")
	}
	return nil
}
