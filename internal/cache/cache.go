// Package cache provides the read-path response cache. The API handlers
// store rendered JSON payloads here so hot endpoints skip the database
// between syncs.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"coinswiper/internal/observability"
)

// Cache stores opaque payloads with a TTL.
type Cache interface {
	// Get returns the payload and true on a hit. Expired entries miss.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores the payload for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete drops the key if present.
	Delete(ctx context.Context, key string)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Entries are evicted lazily on read and by
// a periodic sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates a memory cache sweeping expired entries every minute.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}
	go m.sweep(time.Minute)
	return m
}

var _ Cache = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		observability.RecordCacheMiss()
		return nil, false
	}
	observability.RecordCacheHit()
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Close stops the sweeper.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Redis is a Cache backed by a shared Redis instance, used when several
// replicas should serve the same cached payloads.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis cache and verifies connectivity.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client}, nil
}

var _ Cache = (*Redis)(nil)

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		observability.RecordCacheMiss()
		return nil, false
	}
	observability.RecordCacheHit()
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	// Cache writes are best-effort.
	r.client.Set(ctx, key, value, ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) {
	r.client.Del(ctx, key)
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
