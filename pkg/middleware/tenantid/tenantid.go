package tenantid

import "github.com/gin-gonic/gin"

const contextKey = "tenant_id"

// Set stores the resolved tenant identifier on the Gin context.
func Set(c *gin.Context, id string) {
	c.Set(contextKey, id)
}

// Value returns the tenant identifier stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
