package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type rosterStub struct {
	detail *models.CourseInstanceDetail
	roster []models.RosterEntry
	grades []models.GradeExportRow
}

func (s rosterStub) FindDetailByID(ctx context.Context, tenantID, id string) (*models.CourseInstanceDetail, error) {
	if s.detail == nil || s.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s rosterStub) Roster(ctx context.Context, tenantID, id string) ([]models.RosterEntry, error) {
	return s.roster, nil
}

func (s rosterStub) ExportByInstance(ctx context.Context, tenantID, instanceID string) ([]models.GradeExportRow, error) {
	return s.grades, nil
}

func newExportServiceForTest() *ExportService {
	stub := rosterStub{
		detail: &models.CourseInstanceDetail{
			CourseInstance: models.CourseInstance{ID: "ci-1", TenantID: testTenant, Name: "Spring cohort"},
			CourseCode:     "MATH101",
		},
		roster: []models.RosterEntry{
			{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Status: models.EnrollmentStatusEnrolled, PaymentStatus: models.PaymentStatusPaid, EnrollmentDate: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
			{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Status: models.EnrollmentStatusWaitlisted, PaymentStatus: models.PaymentStatusPending, EnrollmentDate: time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)},
		},
		grades: []models.GradeExportRow{
			{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Title: "Midterm", GradeType: "exam", Score: 45, MaxScore: 50, Weight: 30},
		},
	}
	return NewExportService(stub, stub, nil, nil, zap.NewNop())
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc := newExportServiceForTest()

	file, err := svc.Roster(context.Background(), testTenant, "ci-1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "roster-math101.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Last Name", "First Name", "Email", "Status", "Payment", "Enrolled On"}, records[0])
	assert.Equal(t, []string{"Lovelace", "Ada", "ada@example.com", "ENROLLED", "PAID", "2024-02-01"}, records[1])
}

func TestExportServiceGradesCSVIncludesPercent(t *testing.T) {
	svc := newExportServiceForTest()

	file, err := svc.Grades(context.Background(), testTenant, "ci-1", "")
	require.NoError(t, err)
	assert.Equal(t, "grades-math101.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Lovelace, Ada", "ada@example.com", "Midterm", "exam", "45", "50", "90", "30", "false"}, records[1])
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc := newExportServiceForTest()

	file, err := svc.Roster(context.Background(), testTenant, "ci-1", models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceErrors(t *testing.T) {
	svc := newExportServiceForTest()

	_, err := svc.Roster(context.Background(), testTenant, "ci-1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = svc.Roster(context.Background(), testTenant, "missing", models.ExportFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
