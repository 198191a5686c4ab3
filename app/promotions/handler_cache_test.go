package promotions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytheresa/storefront-pricing/pricing"
	promosrc "github.com/mytheresa/storefront-pricing/promotions"
)

// --- Fake Redis ---

type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestHandleReload_BypassesRedisCache(t *testing.T) {
	// Arrange
	version := "old"
	backend := pricing.SourceFunc(func(ctx context.Context) ([]pricing.Promotion, error) {
		return []pricing.Promotion{{
			ID: version, Name: version, Kind: pricing.DiscountPercentage,
			Value: decimal.NewFromInt(10), Scope: pricing.ScopeStoreWide,
		}}, nil
	})
	client := &memoryRedis{values: map[string]string{}}
	cache := promosrc.NewRedisCache(client, backend, "", time.Hour)
	pricer := newTestPricer(t, cache)
	require.NoError(t, pricer.Load(context.Background()))
	require.Equal(t, "old", pricer.Promotions()[0].ID)

	version = "new"
	handler := NewPromotionsHandler(pricer)
	rec := httptest.NewRecorder()

	// Act
	handler.HandleReload(rec, httptest.NewRequest("POST", "/promotions/reload", nil))

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Promotions, 1)
	assert.Equal(t, "new", resp.Promotions[0].ID)

	shared, err := cache.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", shared[0].ID, "other instances see the reloaded list")
}
