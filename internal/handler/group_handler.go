package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// GroupHandler exposes group hierarchy endpoints.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// List godoc
// @Summary List groups
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param type query string false "Group type"
// @Param parent_id query string false "Parent group"
// @Param root query bool false "Only top-level groups"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /people/groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	filter := models.GroupFilter{
		Type:        c.Query("type"),
		ParentID:    c.Query("parent_id"),
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: pageRequest(c),
	}
	if v := queryBool(c, "root"); v != nil {
		filter.RootOnly = *v
	}
	groups, pagination, err := h.groups.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, groups, pagination)
}

// Get godoc
// @Summary Get group
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /people/groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Create godoc
// @Summary Create group
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /people/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req models.CreateGroupRequest
	if !bindJSON(c, &req, "invalid group payload") {
		return
	}
	group, err := h.groups.Create(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Patch group
// @Description Reparenting under a descendant fails with circular reference
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param payload body object true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /people/groups/{id} [patch]
func (h *GroupHandler) Update(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	group, err := h.groups.Update(c.Request.Context(), tenantFromContext(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Soft-delete group
// @Tags People
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 204
// @Router /people/groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.groups.Delete(c.Request.Context(), tenantFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Descendants godoc
// @Summary List descendant group ids
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /people/groups/{id}/descendants [get]
func (h *GroupHandler) Descendants(c *gin.Context) {
	ids, err := h.groups.Descendants(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}
