package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// PersonHandler exposes person endpoints.
type PersonHandler struct {
	persons *service.PersonService
}

// NewPersonHandler constructs PersonHandler.
func NewPersonHandler(persons *service.PersonService) *PersonHandler {
	return &PersonHandler{persons: persons}
}

// List godoc
// @Summary List persons
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name, email or national id"
// @Param include_deleted query bool false "Include soft-deleted persons"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /people/persons [get]
func (h *PersonHandler) List(c *gin.Context) {
	filter := models.PersonFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: pageRequest(c),
	}
	if v := queryBool(c, "include_deleted"); v != nil {
		filter.IncludeDeleted = *v
	}
	persons, pagination, err := h.persons.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, persons, pagination)
}

// Get godoc
// @Summary Get person
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /people/persons/{id} [get]
func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.persons.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Create godoc
// @Summary Create person
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreatePersonRequest true "Person payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people/persons [post]
func (h *PersonHandler) Create(c *gin.Context) {
	var req models.CreatePersonRequest
	if !bindJSON(c, &req, "invalid person payload") {
		return
	}
	person, err := h.persons.Create(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// Update godoc
// @Summary Patch person
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Person ID"
// @Param payload body object true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /people/persons/{id} [patch]
func (h *PersonHandler) Update(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	person, err := h.persons.Update(c.Request.Context(), tenantFromContext(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Delete godoc
// @Summary Soft-delete person
// @Tags People
// @Security BearerAuth
// @Param id path string true "Person ID"
// @Success 204
// @Router /people/persons/{id} [delete]
func (h *PersonHandler) Delete(c *gin.Context) {
	if err := h.persons.Delete(c.Request.Context(), tenantFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore soft-deleted person
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people/persons/{id}/restore [post]
func (h *PersonHandler) Restore(c *gin.Context) {
	person, err := h.persons.Restore(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}
