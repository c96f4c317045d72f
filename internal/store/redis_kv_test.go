package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalstream/internal/domain"
)

func setupKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_SetGet(t *testing.T) {
	_, kv := setupKV(t)

	require.NoError(t, kv.Set(context.Background(), "k", "v", time.Minute))

	val, err := kv.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisKV_MissReturnsErrMiss(t *testing.T) {
	_, kv := setupKV(t)

	_, err := kv.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_TTLExpiry(t *testing.T) {
	mr, kv := setupKV(t)

	require.NoError(t, kv.Set(context.Background(), "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := kv.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLatestVitalsCache_Roundtrip(t *testing.T) {
	_, kv := setupKV(t)
	cache := NewLatestVitalsCache(kv)

	quality := 0.8
	level := "high"
	in := domain.LatestVitals{
		HeartRate:    185,
		SpO2:         98,
		Temp:         36.8,
		Timestamp:    1700000000,
		QualityScore: &quality,
		AlertLevel:   &level,
	}
	require.NoError(t, cache.Set(context.Background(), in))

	out, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestLatestVitalsCache_Miss(t *testing.T) {
	_, kv := setupKV(t)
	cache := NewLatestVitalsCache(kv)

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrMiss)
}
