package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// MembershipHandler exposes group membership endpoints.
type MembershipHandler struct {
	memberships *service.MembershipService
}

// NewMembershipHandler constructs MembershipHandler.
func NewMembershipHandler(memberships *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

// List godoc
// @Summary List memberships
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param person_id query string false "Person"
// @Param group_id query string false "Group"
// @Param status query string false "ACTIVE, INACTIVE or SUSPENDED"
// @Success 200 {object} response.Envelope
// @Router /people/memberships [get]
func (h *MembershipHandler) List(c *gin.Context) {
	filter := models.MembershipFilter{
		PersonID:    c.Query("person_id"),
		GroupID:     c.Query("group_id"),
		Status:      models.MembershipStatus(c.Query("status")),
		PageRequest: pageRequest(c),
	}
	items, pagination, err := h.memberships.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, items, pagination)
}

// Get godoc
// @Summary Get membership
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Success 200 {object} response.Envelope
// @Router /people/memberships/{id} [get]
func (h *MembershipHandler) Get(c *gin.Context) {
	m, err := h.memberships.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, m, nil)
}

// Create godoc
// @Summary Add person to group
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateMembershipRequest true "Membership payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people/memberships [post]
func (h *MembershipHandler) Create(c *gin.Context) {
	var req models.CreateMembershipRequest
	if !bindJSON(c, &req, "invalid membership payload") {
		return
	}
	m, err := h.memberships.Create(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// End godoc
// @Summary End membership
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Param payload body models.EndMembershipRequest false "End date"
// @Success 200 {object} response.Envelope
// @Router /people/memberships/{id}/end [post]
func (h *MembershipHandler) End(c *gin.Context) {
	var req models.EndMembershipRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid end payload") {
		return
	}
	m, err := h.memberships.End(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, m, nil)
}

// Suspend godoc
// @Summary Suspend membership
// @Tags People
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Param payload body models.SuspendMembershipRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /people/memberships/{id}/suspend [post]
func (h *MembershipHandler) Suspend(c *gin.Context) {
	var req models.SuspendMembershipRequest
	if !bindJSON(c, &req, "invalid suspend payload") {
		return
	}
	m, err := h.memberships.Suspend(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, m, nil)
}

// Reactivate godoc
// @Summary Reactivate suspended membership
// @Tags People
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people/memberships/{id}/reactivate [post]
func (h *MembershipHandler) Reactivate(c *gin.Context) {
	m, err := h.memberships.Reactivate(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, m, nil)
}
