package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/middleware"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/middleware/tenantid"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

func tenantFromContext(c *gin.Context) string {
	return tenantid.Value(c)
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// pageRequest reads page, limit, sort and order query parameters.
func pageRequest(c *gin.Context) models.PageRequest {
	var p models.PageRequest
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		p.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		p.PageSize = size
	}
	p.SortBy = c.Query("sort")
	p.SortOrder = c.Query("order")
	return p
}

func queryBool(c *gin.Context, key string) *bool {
	switch strings.ToLower(c.Query(key)) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

// bindJSON decodes the body into dest, writing a validation error on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// bindPatch decodes a partial update body.
func bindPatch(c *gin.Context) (dto.Patch, bool) {
	var patch dto.Patch
	if !bindJSON(c, &patch, "invalid patch payload") {
		return nil, false
	}
	return patch, true
}

// listResponse writes a paginated list with any collected response meta.
func listResponse(c *gin.Context, data interface{}, pagination *models.Pagination) {
	response.JSON(c, http.StatusOK, data, pagination, middleware.ExtractMeta(c))
}
