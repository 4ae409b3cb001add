package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, key+" must be YYYY-MM-DD"))
		return nil, false
	}
	return &t, true
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param enrollment_id query string false "Enrollment"
// @Param course_instance_id query string false "Course instance"
// @Param schedule_id query string false "Schedule slot"
// @Param status query string false "PRESENT, ABSENT, LATE or EXCUSED"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /academic/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	from, ok := queryDate(c, "date_from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "date_to")
	if !ok {
		return
	}
	filter := models.AttendanceFilter{
		EnrollmentID:     c.Query("enrollment_id"),
		CourseInstanceID: c.Query("course_instance_id"),
		ScheduleID:       c.Query("schedule_id"),
		Status:           models.AttendanceStatus(c.Query("status")),
		DateFrom:         from,
		DateTo:           to,
		PageRequest:      pageRequest(c),
	}
	items, pagination, err := h.attendance.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, items, pagination)
}

// Get godoc
// @Summary Get attendance record
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /academic/attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Record godoc
// @Summary Record attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RecordAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req models.RecordAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	record, err := h.attendance.Record(c.Request.Context(), tenantFromContext(c), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Correct attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Attendance ID"
// @Param payload body models.UpdateAttendanceRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /academic/attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req models.UpdateAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	record, err := h.attendance.Update(c.Request.Context(), tenantFromContext(c), actorID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Summary godoc
// @Summary Attendance totals and rate of an enrollment
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /academic/enrollments/{id}/attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.Summary(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
