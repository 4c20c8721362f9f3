package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
)

func TestBuildAnalysisKey(t *testing.T) {
	content := []byte("SKU,2024-06-03,2024-06-10\nA,10,8\n")
	params := AnalysisParams{PlanningWindow: 90, DefaultLeadWeeks: 2, EvaluationDate: "2024-07-01", CalendarVersion: "2024-2026"}

	key := BuildAnalysisKey(content, params)
	assert.True(t, strings.HasPrefix(key, analysisKeyPrefix+":"))
	assert.Equal(t, key, BuildAnalysisKey(content, params))

	other := params
	other.PlanningWindow = 30
	assert.NotEqual(t, key, BuildAnalysisKey(content, other))

	other = params
	other.PurchaseOrders = []byte("po")
	assert.NotEqual(t, key, BuildAnalysisKey(content, other))

	assert.NotEqual(t, key, BuildAnalysisKey([]byte("SKU\n"), params))
}

func TestNoopAnalysisCache(t *testing.T) {
	c, err := NewAnalysisCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", &Analysis{Dataset: "x"}))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@example.test:6390/1"})
	require.NoError(t, err)
	assert.Equal(t, "example.test:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}
