package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/logger"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	ok, _ := rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, retry := rl.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, retry)

	ok, _ = rl.allow("10.0.0.2")
	assert.True(t, ok, "buckets are per IP")

	now = now.Add(time.Second)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)
}

func TestRateLimiter_SweepDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.allow("10.0.0.1")

	now = now.Add(cleanupIdleDuration + time.Second)
	rl.sweep()
	assert.Empty(t, rl.buckets)
}

func TestRateLimiter_DisabledAndMiddleware(t *testing.T) {
	off := NewRateLimiter(0, 1)
	for i := 0; i < 5; i++ {
		ok, _ := off.allow("10.0.0.1")
		require.True(t, ok)
	}

	h := NewAPIHandler(&fakeEngine{}, nil, nil, nil, logger.NewNop())
	r := SetupRouter(config.ServerConfig{}, h, nil, NewRateLimiter(0.001, 1), nil)
	path := "/api/v1/analyze/" + testAddress

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, path, "").Code)
	rec := do(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/health", "").Code, "health is not limited")
}
