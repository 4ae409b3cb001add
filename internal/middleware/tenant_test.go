package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/middleware/tenantid"
)

const acmeID = "8c1d4f0e-0000-4000-8000-000000000001"

type stubResolver struct {
	keys []string
}

func (s *stubResolver) Resolve(ctx context.Context, key string) (*models.Tenant, error) {
	s.keys = append(s.keys, key)
	switch key {
	case "acme", acmeID:
		return &models.Tenant{ID: acmeID, Slug: "acme", Active: true}, nil
	case "closed":
		return nil, appErrors.Clone(appErrors.ErrForbidden, "tenant is inactive")
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
}

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid token")
	}
	return claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, tenantid.Value(c))
	})
	r.GET("/resource/:id", handlers...)
	return r
}

func serve(r *gin.Engine, host string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource/42", nil)
	if host != "" {
		req.Host = host
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenantFromHeader(t *testing.T) {
	resolver := &stubResolver{}
	r := newRouter(Tenant(resolver, "", "eduorg.test"))

	w := serve(r, "api.eduorg.test", map[string]string{"X-Tenant-ID": " acme "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, acmeID, w.Body.String())
	assert.Equal(t, []string{"acme"}, resolver.keys)
}

func TestTenantFromSubdomain(t *testing.T) {
	resolver := &stubResolver{}
	r := newRouter(Tenant(resolver, "X-Org", "eduorg.test"))

	w := serve(r, "acme.eduorg.test:8080", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, acmeID, w.Body.String())

	w = serve(r, "acme.other.test", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrTenantRequired.Code)
}

func TestTenantRejections(t *testing.T) {
	r := newRouter(Tenant(&stubResolver{}, "", ""))

	assert.Equal(t, http.StatusBadRequest, serve(r, "127.0.0.1:8080", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "localhost", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "", map[string]string{"X-Tenant-ID": "closed"}).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "", map[string]string{"X-Tenant-ID": "ghost"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, "acme.eduorg.example", nil).Code)
}

func TestSubdomain(t *testing.T) {
	cases := []struct {
		host, base, want string
	}{
		{"acme.eduorg.test", "eduorg.test", "acme"},
		{"ACME.EduOrg.Test.", "eduorg.test", "acme"},
		{"a.b.eduorg.test", "eduorg.test", ""},
		{"eduorg.test", "eduorg.test", ""},
		{"acme.example.com", "", "acme"},
		{"example.com", "", ""},
		{"[::1]:443", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, subdomain(tc.host, tc.base), tc.host)
	}
}

func TestJWTRequiresMatchingTenant(t *testing.T) {
	validator := stubValidator{
		"good":    {UserID: "u-1", TenantID: acmeID, Role: models.RoleStaff},
		"foreign": {UserID: "u-2", TenantID: "another-tenant", Role: models.RoleAdmin},
	}
	r := newRouter(Tenant(&stubResolver{}, "", ""), JWT(validator))
	header := func(token string) map[string]string {
		return map[string]string{"X-Tenant-ID": "acme", "Authorization": token}
	}

	assert.Equal(t, http.StatusOK, serve(r, "", header("Bearer good")).Code)
	assert.Equal(t, http.StatusOK, serve(r, "", header("bearer good")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "", header("")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "", header("Token good")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "", header("Bearer forged")).Code)

	w := serve(r, "", header("Bearer foreign"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "another tenant")
}

func TestRBAC(t *testing.T) {
	validator := stubValidator{
		"admin":   {UserID: "u-1", TenantID: acmeID, Role: models.RoleAdmin},
		"student": {UserID: "u-2", TenantID: acmeID, Role: models.RoleStudent},
		"self":    {UserID: "42", TenantID: acmeID, Role: models.RoleStudent},
	}
	bearer := func(token string) map[string]string {
		return map[string]string{"Authorization": "Bearer " + token}
	}

	adminOnly := newRouter(JWT(validator), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, serve(adminOnly, "", bearer("admin")).Code)
	assert.Equal(t, http.StatusForbidden, serve(adminOnly, "", bearer("student")).Code)

	selfOrAdmin := newRouter(JWT(validator), RBAC(string(models.RoleAdmin), "SELF"))
	assert.Equal(t, http.StatusOK, serve(selfOrAdmin, "", bearer("self")).Code)
	assert.Equal(t, http.StatusForbidden, serve(selfOrAdmin, "", bearer("student")).Code)

	noClaims := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(noClaims, "", nil).Code)
}
