package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/vbg-space/core/internal/pkg/redis"
)

// Policy describes one fixed-window limit.
type Policy struct {
	Name    string
	Limit   int
	Window  time.Duration
	Message string
}

// Default policies for the public and admin surfaces.
var (
	SubmissionPolicy = Policy{Name: "submission", Limit: 10, Window: time.Hour, Message: "too many requests, try again in an hour"}
	LoginPolicy      = Policy{Name: "login", Limit: 5, Window: 15 * time.Minute, Message: "too many attempts, try again in 15 minutes"}
	AdminPolicy      = Policy{Name: "admin", Limit: 60, Window: time.Minute, Message: "slow down"}
)

// Result is the outcome of a single hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts hits per key inside fixed windows.
type Limiter interface {
	Hit(ctx context.Context, p Policy, key string) (Result, error)
}

func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

func buildResult(p Policy, count int64, resetAt, now time.Time) Result {
	remaining := p.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(p.Limit),
		Limit:     p.Limit,
		Remaining: remaining,
		ResetIn:   resetAt.Sub(now),
	}
}

// RedisLimiter keeps counters in Redis so they survive restarts.
type RedisLimiter struct {
	client *pkgredis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *pkgredis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "vbg:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// WithClock replaces the time source used to pick the window.
func (l *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

func (l *RedisLimiter) Hit(ctx context.Context, p Policy, key string) (Result, error) {
	now := l.now()
	start := windowStart(now, p.Window)
	redisKey := fmt.Sprintf("%s:%s:%s:%d", l.prefix, p.Name, key, start.Unix())

	count, err := l.client.IncrWindow(ctx, redisKey, p.Window+time.Second)
	if err != nil {
		return Result{}, err
	}
	return buildResult(p, count, start.Add(p.Window), now), nil
}

type bucket struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter is the in-process limiter used when Redis is not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// WithClock replaces the time source.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Hit(_ context.Context, p Policy, key string) (Result, error) {
	now := l.now()
	k := p.Name + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[k]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: windowStart(now, p.Window).Add(p.Window)}
		l.buckets[k] = b
	}
	b.count++
	return buildResult(p, b.count, b.resetAt, now), nil
}

// Sweep drops expired buckets and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}
