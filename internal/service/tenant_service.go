package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/pkg/cache"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type tenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// TenantService resolves request tenant keys to active tenants.
type TenantService struct {
	repo   tenantRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewTenantService builds a TenantService. cache may be nil.
func NewTenantService(repo tenantRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Resolve looks up a tenant by id or slug. Unknown keys are NotFound and
// inactive tenants Forbidden.
func (s *TenantService) Resolve(ctx context.Context, key string) (*models.Tenant, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrTenantRequired, "tenant could not be resolved")
	}

	cacheKey := cache.Key("tenant", key)
	var tenant models.Tenant
	if !s.cache.Get(ctx, cacheKey, &tenant) {
		found, err := s.lookup(ctx, key)
		if err != nil {
			return nil, lookupErr(err, "tenant not found", "failed to resolve tenant")
		}
		tenant = *found
		s.cache.Set(ctx, cacheKey, tenant, s.ttl)
	}

	if !tenant.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "tenant is inactive")
	}
	return &tenant, nil
}

func (s *TenantService) lookup(ctx context.Context, key string) (*models.Tenant, error) {
	if _, err := uuid.Parse(key); err == nil {
		return s.repo.FindByID(ctx, key)
	}
	return s.repo.FindBySlug(ctx, key)
}
