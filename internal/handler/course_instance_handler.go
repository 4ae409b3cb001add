package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// CourseInstanceHandler exposes course offerings and their exports.
type CourseInstanceHandler struct {
	instances *service.CourseInstanceService
	exports   *service.ExportService
}

// NewCourseInstanceHandler constructs CourseInstanceHandler.
func NewCourseInstanceHandler(instances *service.CourseInstanceService, exports *service.ExportService) *CourseInstanceHandler {
	return &CourseInstanceHandler{instances: instances, exports: exports}
}

// List godoc
// @Summary List course instances
// @Tags Academic
// @Produce json
// @Security BearerAuth
// @Param course_id query string false "Course"
// @Param instructor_id query string false "Instructor"
// @Param status query string false "Lifecycle status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /academic/course-instances [get]
func (h *CourseInstanceHandler) List(c *gin.Context) {
	filter := models.CourseInstanceFilter{
		CourseID:     c.Query("course_id"),
		InstructorID: c.Query("instructor_id"),
		Status:       models.CourseInstanceStatus(c.Query("status")),
		PageRequest:  pageRequest(c),
	}
	items, pagination, err := h.instances.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, items, pagination)
}

// Get godoc
// @Summary Get course instance with seat counts
// @Tags Academic
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Success 200 {object} response.Envelope
// @Router /academic/course-instances/{id} [get]
func (h *CourseInstanceHandler) Get(c *gin.Context) {
	detail, err := h.instances.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create course instance
// @Tags Academic
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseInstanceRequest true "Instance payload"
// @Success 201 {object} response.Envelope
// @Router /academic/course-instances [post]
func (h *CourseInstanceHandler) Create(c *gin.Context) {
	var req models.CreateCourseInstanceRequest
	if !bindJSON(c, &req, "invalid course instance payload") {
		return
	}
	instance, err := h.instances.Create(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instance)
}

// Update godoc
// @Summary Patch course instance
// @Description Raising max_students promotes waitlisted students
// @Tags Academic
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Param payload body object true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /academic/course-instances/{id} [patch]
func (h *CourseInstanceHandler) Update(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	detail, err := h.instances.Update(c.Request.Context(), tenantFromContext(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ChangeStatus godoc
// @Summary Move course instance through its lifecycle
// @Tags Academic
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Param payload body models.ChangeInstanceStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /academic/course-instances/{id}/status [post]
func (h *CourseInstanceHandler) ChangeStatus(c *gin.Context) {
	var req models.ChangeInstanceStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	detail, err := h.instances.ChangeStatus(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Soft-delete course instance
// @Tags Academic
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Success 204
// @Router /academic/course-instances/{id} [delete]
func (h *CourseInstanceHandler) Delete(c *gin.Context) {
	if err := h.instances.Delete(c.Request.Context(), tenantFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Export roster
// @Tags Academic
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /academic/course-instances/{id}/roster [get]
func (h *CourseInstanceHandler) Roster(c *gin.Context) {
	file, err := h.exports.Roster(c.Request.Context(), tenantFromContext(c), c.Param("id"), models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Grades godoc
// @Summary Export grades
// @Tags Academic
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course instance ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /academic/course-instances/{id}/grades/export [get]
func (h *CourseInstanceHandler) Grades(c *gin.Context) {
	file, err := h.exports.Grades(c.Request.Context(), tenantFromContext(c), c.Param("id"), models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *models.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
