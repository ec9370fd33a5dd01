package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/vbg-space/core/internal/pkg/redis"
)

// RedisStore keeps sessions as JSON values with a TTL.
type RedisStore struct {
	client *pkgredis.Client
	prefix string
}

func NewRedisStore(client *pkgredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "vbg:sess"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string { return s.prefix + ":" + id }

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, ok, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ID), payload, ttl)
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(id))
}

type memoryItem struct {
	sess      Session
	expiresAt time.Time
}

// MemoryStore is the in-process store used when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

// WithClock replaces the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(item.expiresAt) {
		delete(s.items, id)
		return nil, ErrNotFound
	}
	sess := item.sess
	sess.ID = id
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.ID] = memoryItem{sess: *sess, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}
