package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/export"
)

type rosterSource interface {
	FindDetailByID(ctx context.Context, tenantID, id string) (*models.CourseInstanceDetail, error)
	Roster(ctx context.Context, tenantID, id string) ([]models.RosterEntry, error)
}

type gradeExportSource interface {
	ExportByInstance(ctx context.Context, tenantID, instanceID string) ([]models.GradeExportRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders course instance rosters and grade sheets.
type ExportService struct {
	instances rosterSource
	grades    gradeExportSource
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(instances rosterSource, grades gradeExportSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{instances: instances, grades: grades, csv: csv, pdf: pdf, logger: logger}
}

// Roster renders the enrollment list of an instance.
func (s *ExportService) Roster(ctx context.Context, tenantID, instanceID string, format models.ExportFormat) (*models.ExportFile, error) {
	instance, err := s.loadInstance(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	entries, err := s.instances.Roster(ctx, tenantID, instanceID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}

	ds := export.Dataset{Headers: []string{"Last Name", "First Name", "Email", "Status", "Payment", "Enrolled On"}}
	for _, e := range entries {
		ds.AddRow(map[string]string{
			"Last Name":   e.LastName,
			"First Name":  e.FirstName,
			"Email":       e.Email,
			"Status":      string(e.Status),
			"Payment":     string(e.PaymentStatus),
			"Enrolled On": e.EnrollmentDate.UTC().Format("2006-01-02"),
		})
	}
	title := fmt.Sprintf("Roster %s - %s", instance.CourseCode, instance.Name)
	return s.render(ds, title, "roster-"+instance.CourseCode, format)
}

// Grades renders every live grade of an instance, one row per grade.
func (s *ExportService) Grades(ctx context.Context, tenantID, instanceID string, format models.ExportFormat) (*models.ExportFile, error) {
	instance, err := s.loadInstance(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	rows, err := s.grades.ExportByInstance(ctx, tenantID, instanceID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grades")
	}

	ds := export.Dataset{Headers: []string{"Student", "Email", "Title", "Type", "Score", "Max", "Percent", "Weight", "Dropped"}}
	for _, r := range rows {
		var pct float64
		if r.MaxScore > 0 {
			pct = r.Score / r.MaxScore * 100
		}
		ds.AddRow(map[string]string{
			"Student": strings.TrimSpace(r.LastName + ", " + r.FirstName),
			"Email":   r.Email,
			"Title":   r.Title,
			"Type":    r.GradeType,
			"Score":   formatNumber(r.Score),
			"Max":     formatNumber(r.MaxScore),
			"Percent": formatNumber(round2(pct)),
			"Weight":  formatNumber(r.Weight),
			"Dropped": strconv.FormatBool(r.IsDropped),
		})
	}
	title := fmt.Sprintf("Grades %s - %s", instance.CourseCode, instance.Name)
	return s.render(ds, title, "grades-"+instance.CourseCode, format)
}

func (s *ExportService) loadInstance(ctx context.Context, tenantID, instanceID string) (*models.CourseInstanceDetail, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	instance, err := s.instances.FindDetailByID(ctx, tenantID, instanceID)
	if err != nil {
		return nil, lookupErr(err, "course instance not found", "failed to load course instance")
	}
	return instance, nil
}

func (s *ExportService) render(ds export.Dataset, title, basename string, format models.ExportFormat) (*models.ExportFile, error) {
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case models.ExportFormatCSV, "":
		format = models.ExportFormatCSV
		contentType = "text/csv"
		data, err = s.csv.Render(ds)
	case models.ExportFormatPDF:
		contentType = "application/pdf"
		data, err = s.pdf.Render(ds, title)
	default:
		return nil, badRequest("unsupported export format " + string(format))
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &models.ExportFile{
		Filename:    strings.ToLower(basename) + "." + string(format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
