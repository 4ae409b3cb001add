package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduorg-api/internal/middleware"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/middleware/tenantid"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

const handlerTenant = "8c1d4f0e-0000-4000-8000-000000000001"

type enrollmentServiceMock struct {
	lastTenant string
	lastFilter models.EnrollmentFilter
	lastEnroll models.EnrollRequest
	lastDrop   models.DropEnrollmentRequest
	enrollResp *models.Enrollment
	enrollErr  error
	dropErr    error
	waitlist   *models.WaitlistResult
}

func (m *enrollmentServiceMock) List(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	m.lastTenant = tenantID
	m.lastFilter = filter
	return []models.Enrollment{{ID: "e-1"}}, &models.Pagination{Page: 1, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *enrollmentServiceMock) Get(ctx context.Context, tenantID, id string) (*models.Enrollment, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, tenantID string, req models.EnrollRequest) (*models.Enrollment, error) {
	m.lastTenant = tenantID
	m.lastEnroll = req
	return m.enrollResp, m.enrollErr
}

func (m *enrollmentServiceMock) Drop(ctx context.Context, tenantID, id string, req models.DropEnrollmentRequest) (*models.Enrollment, error) {
	m.lastDrop = req
	if m.dropErr != nil {
		return nil, m.dropErr
	}
	return &models.Enrollment{ID: id, Status: models.EnrollmentStatusDropped}, nil
}

func (m *enrollmentServiceMock) ChangeStatus(ctx context.Context, tenantID, id string, req models.ChangeEnrollmentStatusRequest) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id, Status: req.Status}, nil
}

func (m *enrollmentServiceMock) UpdatePayment(ctx context.Context, tenantID, id string, req models.UpdatePaymentRequest) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id}, nil
}

func (m *enrollmentServiceMock) ProcessWaitlist(ctx context.Context, tenantID, instanceID string) (*models.WaitlistResult, error) {
	return m.waitlist, nil
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, target, nil)
	} else {
		req, _ = http.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	tenantid.Set(c, handlerTenant)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", TenantID: handlerTenant, Role: models.RoleStaff})
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestEnrollmentHandlerList(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/academic/enrollments?status=WAITLISTED&course_instance_id=ci-1&limit=5", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlerTenant, mockSvc.lastTenant)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, mockSvc.lastFilter.Status)
	assert.Equal(t, "ci-1", mockSvc.lastFilter.CourseInstanceID)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	mockSvc := &enrollmentServiceMock{enrollResp: &models.Enrollment{ID: "e-9", Status: models.EnrollmentStatusWaitlisted}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/academic/enrollments", `{"student_id":"s-1","course_instance_id":"ci-1"}`)
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s-1", mockSvc.lastEnroll.StudentID)
	assert.Contains(t, w.Body.String(), `"WAITLISTED"`)
}

func TestEnrollmentHandlerEnrollInvalidBody(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newTestContext(http.MethodPost, "/academic/enrollments", `{"student_id":`)
	handler.Enroll(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestEnrollmentHandlerEnrollConflict(t *testing.T) {
	mockSvc := &enrollmentServiceMock{enrollErr: appErrors.Clone(appErrors.ErrConflict, "student already enrolled")}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/academic/enrollments", `{"student_id":"s-1","course_instance_id":"ci-1"}`)
	handler.Enroll(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "student already enrolled")
}

func TestEnrollmentHandlerDropWithoutBody(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/academic/enrollments/e-1/drop", "")
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.Drop(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mockSvc.lastDrop.Reason)

	c, w = newTestContext(http.MethodPost, "/academic/enrollments/e-1/drop", `{"reason":"moved away"}`)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.Drop(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastDrop.Reason)
	assert.Equal(t, "moved away", *mockSvc.lastDrop.Reason)
}

func TestEnrollmentHandlerGetNotFound(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newTestContext(http.MethodGet, "/academic/enrollments/missing", "")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerProcessWaitlist(t *testing.T) {
	mockSvc := &enrollmentServiceMock{waitlist: &models.WaitlistResult{CourseInstanceID: "ci-1", Capacity: 2, Promoted: []string{"e-3", "e-4"}}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/academic/course-instances/ci-1/waitlist/process", "")
	c.Params = gin.Params{{Key: "id", Value: "ci-1"}}
	handler.ProcessWaitlist(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"promoted":["e-3","e-4"]`)
}
