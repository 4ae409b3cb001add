package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, tenantID string, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error)
	Get(ctx context.Context, tenantID, id string) (*models.Enrollment, error)
	Enroll(ctx context.Context, tenantID string, req models.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, tenantID, id string, req models.DropEnrollmentRequest) (*models.Enrollment, error)
	ChangeStatus(ctx context.Context, tenantID, id string, req models.ChangeEnrollmentStatusRequest) (*models.Enrollment, error)
	UpdatePayment(ctx context.Context, tenantID, id string, req models.UpdatePaymentRequest) (*models.Enrollment, error)
	ProcessWaitlist(ctx context.Context, tenantID, instanceID string) (*models.WaitlistResult, error)
}

// EnrollmentHandler exposes enrollment and waitlist endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Student"
// @Param course_instance_id query string false "Course instance"
// @Param status query string false "Enrollment status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /academic/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:        c.Query("student_id"),
		CourseInstanceID: c.Query("course_instance_id"),
		Status:           models.EnrollmentStatus(c.Query("status")),
		PageRequest:      pageRequest(c),
	}
	items, pagination, err := h.enrollments.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, items, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /academic/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	e, err := h.enrollments.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, e, nil)
}

// Enroll godoc
// @Summary Enroll student
// @Description Lands ENROLLED while seats remain, WAITLISTED otherwise
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req models.EnrollRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	e, err := h.enrollments.Enroll(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// Drop godoc
// @Summary Drop enrollment
// @Description Frees the seat and promotes the first waitlisted student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.DropEnrollmentRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req models.DropEnrollmentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid drop payload") {
		return
	}
	e, err := h.enrollments.Drop(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, e, nil)
}

// ChangeStatus godoc
// @Summary Change enrollment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.ChangeEnrollmentStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/enrollments/{id}/status [post]
func (h *EnrollmentHandler) ChangeStatus(c *gin.Context) {
	var req models.ChangeEnrollmentStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	e, err := h.enrollments.ChangeStatus(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, e, nil)
}

// UpdatePayment godoc
// @Summary Update payment state
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body models.UpdatePaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /academic/enrollments/{id}/payment [put]
func (h *EnrollmentHandler) UpdatePayment(c *gin.Context) {
	var req models.UpdatePaymentRequest
	if !bindJSON(c, &req, "invalid payment payload") {
		return
	}
	e, err := h.enrollments.UpdatePayment(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, e, nil)
}

// ProcessWaitlist godoc
// @Summary Promote waitlisted students into free seats
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Success 200 {object} response.Envelope
// @Router /academic/course-instances/{id}/waitlist/process [post]
func (h *EnrollmentHandler) ProcessWaitlist(c *gin.Context) {
	result, err := h.enrollments.ProcessWaitlist(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
