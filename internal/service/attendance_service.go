package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	FindByID(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error)
	Update(ctx context.Context, record *models.AttendanceRecord) error
	List(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	CountByStatus(ctx context.Context, tenantID, enrollmentID string) ([]models.AttendanceCount, error)
}

type scheduleFinder interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Schedule, error)
}

// AttendanceService records session attendance for enrolled students.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments enrollmentFinder
	schedules   scheduleFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, enrollments enrollmentFinder, schedules scheduleFinder, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, schedules: schedules, validator: validate, logger: logger}
}

// List returns attendance records matching the filter.
func (s *AttendanceService) List(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	records, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list attendance")
	}
	return records, filter.Pagination(total), nil
}

// Get returns an attendance record.
func (s *AttendanceService) Get(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	record, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "attendance record not found", "failed to load attendance record")
	}
	return record, nil
}

// Record stores attendance for one session of an enrolled student.
func (s *AttendanceService) Record(ctx context.Context, tenantID, recordedBy string, req models.RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid attendance payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, tenantID, req.EnrollmentID)
	if err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, badRequest("attendance requires an enrolled student")
	}
	if req.ScheduleID != nil {
		schedule, err := s.schedules.FindByID(ctx, tenantID, *req.ScheduleID)
		if err != nil {
			return nil, lookupErr(err, "schedule not found", "failed to load schedule")
		}
		if schedule.CourseInstanceID != enrollment.CourseInstanceID {
			return nil, badRequest("schedule belongs to another course instance")
		}
	}

	record := &models.AttendanceRecord{
		TenantID:     tenantID,
		EnrollmentID: enrollment.ID,
		ScheduleID:   req.ScheduleID,
		SessionDate:  dateOnly(req.SessionDate),
		Status:       req.Status,
		Notes:        sanitize.OptionalText(req.Notes),
	}
	if recordedBy != "" {
		record.RecordedBy = &recordedBy
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, writeErr(err, "attendance already recorded for this session", "failed to record attendance")
	}
	return record, nil
}

// Update changes the status or notes of a record.
func (s *AttendanceService) Update(ctx context.Context, tenantID, recordedBy, id string, req models.UpdateAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid attendance payload")
	}
	record, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "attendance record not found", "failed to load attendance record")
	}
	if req.Status != nil {
		record.Status = *req.Status
	}
	if req.Notes != nil {
		record.Notes = sanitize.OptionalText(req.Notes)
	}
	if recordedBy != "" {
		record.RecordedBy = &recordedBy
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, lookupErr(err, "attendance record not found", "failed to update attendance")
	}
	return record, nil
}

// Summary tallies an enrollment's attendance.
func (s *AttendanceService) Summary(ctx context.Context, tenantID, enrollmentID string) (*models.AttendanceSummary, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.enrollments.FindByID(ctx, tenantID, enrollmentID); err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	counts, err := s.repo.CountByStatus(ctx, tenantID, enrollmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to summarise attendance")
	}
	summary := SummarizeAttendance(enrollmentID, counts)
	return &summary, nil
}

// SummarizeAttendance folds per-status counts into a summary. The rate counts
// late arrivals as attended.
func SummarizeAttendance(enrollmentID string, counts []models.AttendanceCount) models.AttendanceSummary {
	summary := models.AttendanceSummary{EnrollmentID: enrollmentID}
	for _, c := range counts {
		switch c.Status {
		case models.AttendancePresent:
			summary.Present += c.Total
		case models.AttendanceAbsent:
			summary.Absent += c.Total
		case models.AttendanceLate:
			summary.Late += c.Total
		case models.AttendanceExcused:
			summary.Excused += c.Total
		default:
			continue
		}
		summary.Total += c.Total
	}
	if summary.Total > 0 {
		summary.AttendanceRate = round2(float64(summary.Present+summary.Late) / float64(summary.Total) * 100)
	}
	return summary
}
