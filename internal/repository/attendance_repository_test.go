package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduorg-api/internal/models"
)

func TestAttendanceRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.AttendanceRecord{
		TenantID: "t-1", EnrollmentID: "e-1", SessionDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Status: models.AttendancePresent,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByCourseInstanceJoinsEnrollments(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN enrollments e ON e.id = a.enrollment_id AND e.tenant_id = a.tenant_id WHERE a.tenant_id = $1 AND e.course_instance_id = $2")).
		WithArgs("t-1", "ci-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "enrollment_id", "session_date", "status"}).
			AddRow("a-1", "t-1", "e-1", time.Now(), "LATE"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_records a JOIN enrollments e")).
		WithArgs("t-1", "ci-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), "t-1", models.AttendanceFilter{CourseInstanceID: "ci-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.AttendanceLate, records[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
