package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/middleware/tenantid"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

// TenantResolver maps a tenant key (id or slug) to an active tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, key string) (*models.Tenant, error)
}

// Tenant resolves the request tenant from header, falling back to the first
// label of the host, and stores its id for handlers.
func Tenant(resolver TenantResolver, header, baseDomain string) gin.HandlerFunc {
	if header == "" {
		header = "X-Tenant-ID"
	}
	baseDomain = strings.ToLower(strings.Trim(baseDomain, "."))

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(header))
		if key == "" {
			key = subdomain(c.Request.Host, baseDomain)
		}
		if key == "" {
			response.Error(c, appErrors.ErrTenantRequired)
			c.Abort()
			return
		}

		tenant, err := resolver.Resolve(c.Request.Context(), key)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		tenantid.Set(c, tenant.ID)
		c.Next()
	}
}

func subdomain(host, baseDomain string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "."))
	if net.ParseIP(host) != nil {
		return ""
	}
	if baseDomain != "" {
		if !strings.HasSuffix(host, "."+baseDomain) {
			return ""
		}
		label := strings.TrimSuffix(host, "."+baseDomain)
		if strings.Contains(label, ".") {
			return ""
		}
		return label
	}
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	return labels[0]
}
