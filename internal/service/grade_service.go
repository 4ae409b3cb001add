package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type gradeRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Grade, error)
	ListByEnrollment(ctx context.Context, tenantID, enrollmentID string, includeDropped bool) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

type enrollmentFinder interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Enrollment, error)
}

var gradePatchFields = []string{
	"title", "grade_type", "score", "max_score", "weight", "is_dropped", "is_extra_credit", "graded_at", "feedback",
}

// GradeService records grades and computes enrollment summaries.
type GradeService struct {
	repo        gradeRepository
	enrollments enrollmentFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(repo gradeRepository, enrollments enrollmentFinder, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// Get returns a grade.
func (s *GradeService) Get(ctx context.Context, tenantID, id string) (*models.Grade, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	grade, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "grade not found", "failed to load grade")
	}
	return grade, nil
}

// ListByEnrollment returns the grades of an enrollment.
func (s *GradeService) ListByEnrollment(ctx context.Context, tenantID, enrollmentID string, includeDropped bool) ([]models.Grade, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.enrollments.FindByID(ctx, tenantID, enrollmentID); err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	grades, err := s.repo.ListByEnrollment(ctx, tenantID, enrollmentID, includeDropped)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grades")
	}
	return grades, nil
}

// Create records a grade.
func (s *GradeService) Create(ctx context.Context, tenantID string, req models.CreateGradeRequest) (*models.Grade, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid grade payload")
	}
	if _, err := s.enrollments.FindByID(ctx, tenantID, req.EnrollmentID); err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	grade := &models.Grade{
		TenantID:      tenantID,
		EnrollmentID:  req.EnrollmentID,
		Title:         sanitize.Text(req.Title),
		GradeType:     sanitize.Text(req.GradeType),
		Score:         req.Score,
		MaxScore:      req.MaxScore,
		Weight:        req.Weight,
		IsExtraCredit: req.IsExtraCredit,
		Feedback:      sanitize.OptionalText(req.Feedback),
	}
	grade.GradedAt = time.Now().UTC()
	if req.GradedAt != nil {
		grade.GradedAt = req.GradedAt.UTC()
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, writeErr(err, "grade already exists", "failed to create grade")
	}
	return grade, nil
}

// Update applies a partial update to a grade.
func (s *GradeService) Update(ctx context.Context, tenantID, id string, patch dto.Patch) (*models.Grade, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := patch.Allow(gradePatchFields...); err != nil {
		return nil, err
	}
	grade, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "grade not found", "failed to load grade")
	}

	for _, field := range patch.Fields() {
		switch field {
		case "title":
			err = patchValue(patch, field, &grade.Title)
		case "grade_type":
			err = patchValue(patch, field, &grade.GradeType)
		case "score":
			err = patchValue(patch, field, &grade.Score)
		case "max_score":
			err = patchValue(patch, field, &grade.MaxScore)
		case "weight":
			err = patchValue(patch, field, &grade.Weight)
		case "is_dropped":
			err = patchValue(patch, field, &grade.IsDropped)
		case "is_extra_credit":
			err = patchValue(patch, field, &grade.IsExtraCredit)
		case "graded_at":
			err = patchValue(patch, field, &grade.GradedAt)
		case "feedback":
			err = patchOptional(patch, field, &grade.Feedback)
		}
		if err != nil {
			return nil, err
		}
	}

	gradedAt := grade.GradedAt
	check := models.CreateGradeRequest{
		EnrollmentID:  grade.EnrollmentID,
		Title:         grade.Title,
		GradeType:     grade.GradeType,
		Score:         grade.Score,
		MaxScore:      grade.MaxScore,
		Weight:        grade.Weight,
		IsExtraCredit: grade.IsExtraCredit,
		GradedAt:      &gradedAt,
		Feedback:      grade.Feedback,
	}
	if err := s.validator.Struct(check); err != nil {
		return nil, invalid(err, "invalid grade payload")
	}
	grade.Title = sanitize.Text(grade.Title)
	grade.GradeType = sanitize.Text(grade.GradeType)
	grade.Feedback = sanitize.OptionalText(grade.Feedback)

	if err := s.repo.Update(ctx, grade); err != nil {
		return nil, lookupErr(err, "grade not found", "failed to update grade")
	}
	return grade, nil
}

// SetDropped flags a grade as dropped or restores it to the aggregate.
func (s *GradeService) SetDropped(ctx context.Context, tenantID, id string, dropped bool) (*models.Grade, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	grade, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "grade not found", "failed to load grade")
	}
	if grade.IsDropped == dropped {
		return grade, nil
	}
	grade.IsDropped = dropped
	if err := s.repo.Update(ctx, grade); err != nil {
		return nil, lookupErr(err, "grade not found", "failed to update grade")
	}
	return grade, nil
}

// Delete soft-deletes a grade.
func (s *GradeService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return lookupErr(err, "grade not found", "failed to delete grade")
	}
	return nil
}

// Summary aggregates the enrollment's non-dropped grades.
func (s *GradeService) Summary(ctx context.Context, tenantID, enrollmentID string) (*models.GradeSummary, error) {
	grades, err := s.ListByEnrollment(ctx, tenantID, enrollmentID, false)
	if err != nil {
		return nil, err
	}
	summary := SummarizeGrades(enrollmentID, grades)
	return &summary, nil
}
