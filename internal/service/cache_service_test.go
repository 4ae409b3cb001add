package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type memoryCache struct {
	values map[string][]byte
	err    error
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.err != nil {
		return m.err
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	store := &memoryCache{values: map[string][]byte{}}
	svc := NewCacheService(store, nil, 0, zap.NewNop(), true)
	ctx := context.Background()

	var got string
	assert.False(t, svc.Get(ctx, "tenant:acme", &got))

	svc.Set(ctx, "tenant:acme", "abc", 0)
	require.True(t, svc.Get(ctx, "tenant:acme", &got))
	assert.Equal(t, "abc", got)

	svc.Set(ctx, "tenant:beta", "def", time.Minute)
	svc.Invalidate(ctx, "tenant:*")
	assert.Empty(t, store.values)
}

func TestCacheServiceFailsOpen(t *testing.T) {
	store := &memoryCache{values: map[string][]byte{}, err: errors.New("connection refused")}
	svc := NewCacheService(store, nil, time.Minute, zap.NewNop(), true)

	var got string
	assert.False(t, svc.Get(context.Background(), "k", &got))
	assert.NotPanics(t, func() { svc.Set(context.Background(), "k", "v", 0) })
}

func TestCacheServiceDisabled(t *testing.T) {
	store := &memoryCache{values: map[string][]byte{}}
	svc := NewCacheService(store, nil, 0, zap.NewNop(), false)
	svc.Set(context.Background(), "k", "v", 0)
	assert.Empty(t, store.values)
	assert.False(t, svc.Enabled())

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	nilRepo := NewCacheService(nil, nil, 0, nil, true)
	assert.False(t, nilRepo.Enabled())
}
