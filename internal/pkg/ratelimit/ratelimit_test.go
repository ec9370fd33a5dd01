package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgredis "github.com/vbg-space/core/internal/pkg/redis"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func exhaust(t *testing.T, l Limiter, p Policy, key string) {
	t.Helper()
	for i := 1; i <= p.Limit; i++ {
		res, err := l.Hit(context.Background(), p, key)
		require.NoError(t, err)
		require.True(t, res.Allowed, "hit %d", i)
		assert.Equal(t, p.Limit-i, res.Remaining)
	}
}

func TestMemoryLimiterBlocksAfterLimit(t *testing.T) {
	now := base.Add(5 * time.Minute)
	l := NewMemoryLimiter().WithClock(func() time.Time { return now })

	exhaust(t, l, LoginPolicy, "1.2.3.4")
	res, err := l.Hit(context.Background(), LoginPolicy, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 10*time.Minute, res.ResetIn)

	// other clients are unaffected
	res, err = l.Hit(context.Background(), LoginPolicy, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = base.Add(15 * time.Minute)
	res, err = l.Hit(context.Background(), LoginPolicy, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterSweep(t *testing.T) {
	now := base
	l := NewMemoryLimiter().WithClock(func() time.Time { return now })
	_, _ = l.Hit(context.Background(), AdminPolicy, "a")
	_, _ = l.Hit(context.Background(), SubmissionPolicy, "a")

	now = base.Add(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Sweep())
}

func TestPoliciesAreSeparate(t *testing.T) {
	l := NewMemoryLimiter().WithClock(func() time.Time { return base })
	exhaust(t, l, LoginPolicy, "ip")
	res, err := l.Hit(context.Background(), AdminPolicy, "ip")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	now := base.Add(30 * time.Minute)
	l := NewRedisLimiter(client, "test:rl").WithClock(func() time.Time { return now })

	exhaust(t, l, SubmissionPolicy, "9.9.9.9")
	res, err := l.Hit(context.Background(), SubmissionPolicy, "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30*time.Minute, res.ResetIn)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Hour+time.Second, mr.TTL(keys[0]))

	now = base.Add(time.Hour)
	res, err = l.Hit(context.Background(), SubmissionPolicy, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err = NewRedisLimiter(client, "").Hit(context.Background(), LoginPolicy, "ip")
	assert.Error(t, err)
}
