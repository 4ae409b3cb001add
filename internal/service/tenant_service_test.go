package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type fakeTenantRepo struct {
	tenants []models.Tenant
	calls   int
}

func (f *fakeTenantRepo) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	f.calls++
	for _, t := range f.tenants {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTenantRepo) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	f.calls++
	for _, t := range f.tenants {
		if t.Slug == slug {
			cp := t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestTenantServiceResolve(t *testing.T) {
	repo := &fakeTenantRepo{tenants: []models.Tenant{
		{ID: testTenant, Slug: "acme", Name: "Acme Academy", Active: true},
		{ID: "0d6f1b2c-0000-4000-8000-000000000002", Slug: "closed", Name: "Closed", Active: false},
	}}
	svc := NewTenantService(repo, nil, 0, zap.NewNop())
	ctx := context.Background()

	byID, err := svc.Resolve(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, "acme", byID.Slug)

	bySlug, err := svc.Resolve(ctx, " ACME ")
	require.NoError(t, err)
	assert.Equal(t, testTenant, bySlug.ID)

	_, err = svc.Resolve(ctx, "closed")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Resolve(ctx, "unknown")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Resolve(ctx, "  ")
	assert.ErrorIs(t, err, appErrors.ErrTenantRequired)
}
