package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/pkg/middleware/requestid"
	"github.com/noah-isme/eduorg-api/pkg/middleware/tenantid"
)

// Audit actions recorded for privileged writes.
const (
	AuditActionUserCreate        = "USER_CREATE"
	AuditActionCertificateIssue  = "CERTIFICATE_ISSUE"
	AuditActionCertificateRevoke = "CERTIFICATE_REVOKE"
	AuditActionEnrollmentStatus  = "ENROLLMENT_STATUS"
	AuditActionWaitlistProcess   = "WAITLIST_PROCESS"
)

// Audit writes one audit line after each successful request on the route.
func Audit(logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit")

	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("resource_id", c.Param("id")),
			zap.String("tenant_id", tenantid.Value(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
		}
		if claims := ClaimsFromContext(c); claims != nil {
			fields = append(fields, zap.String("user_id", claims.UserID), zap.String("role", string(claims.Role)))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		logger.Info("audit", fields...)
	}
}
