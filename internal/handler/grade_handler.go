package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grades of an enrollment
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param enrollment_id query string true "Enrollment"
// @Param include_dropped query bool false "Include dropped grades"
// @Success 200 {object} response.Envelope
// @Router /academic/grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	enrollmentID := c.Query("enrollment_id")
	if enrollmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "enrollment_id is required"))
		return
	}
	includeDropped := false
	if v := queryBool(c, "include_dropped"); v != nil {
		includeDropped = *v
	}
	grades, err := h.grades.ListByEnrollment(c.Request.Context(), tenantFromContext(c), enrollmentID, includeDropped)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Get godoc
// @Summary Get grade
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /academic/grades/{id} [get]
func (h *GradeHandler) Get(c *gin.Context) {
	grade, err := h.grades.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Create godoc
// @Summary Record grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /academic/grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req models.CreateGradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	grade, err := h.grades.Create(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// Update godoc
// @Summary Patch grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Param payload body object true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /academic/grades/{id} [patch]
func (h *GradeHandler) Update(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	grade, err := h.grades.Update(c.Request.Context(), tenantFromContext(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// SetDropped godoc
// @Summary Drop or restore a grade in the summary
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Param payload body object true "{\"dropped\": true}"
// @Success 200 {object} response.Envelope
// @Router /academic/grades/{id}/drop [put]
func (h *GradeHandler) SetDropped(c *gin.Context) {
	var req struct {
		Dropped *bool `json:"dropped" binding:"required"`
	}
	if !bindJSON(c, &req, "dropped flag required") {
		return
	}
	grade, err := h.grades.SetDropped(c.Request.Context(), tenantFromContext(c), c.Param("id"), *req.Dropped)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Delete godoc
// @Summary Soft-delete grade
// @Tags Grades
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Success 204
// @Router /academic/grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.grades.Delete(c.Request.Context(), tenantFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Weighted grade summary of an enrollment
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /academic/enrollments/{id}/grades/summary [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	summary, err := h.grades.Summary(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
