package catalog

import (
	"context"
	"encoding/json"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when the manual is not found in the cache
var ErrCacheMiss = errors.New("manual not found in cache")

// Cache stores the encoded manuals
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

type memoryCache struct {
	mu      sync.RWMutex
	storage map[string]memoryEntry
}

// NewMemoryCache returns a Cache in the process memory
func NewMemoryCache() Cache {
	return &memoryCache{}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.storage[key]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		return nil, ErrCacheMiss
	}
	return e.data, nil
}

func (m *memoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string]memoryEntry)
	}
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.storage[key] = e
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, key)
	return nil
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache returns a Cache backed by Redis
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, errors.Wrap(err, "failed to get manual from Redis")
	}
	return data, nil
}

func (c *redisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store manual in Redis")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete manual from Redis")
	}
	return nil
}

// CachedSource serves the manual from the cache,
// loading it from the wrapped source on a miss.
//
// The keys are organized as `<prefix>/manuals/<name>/<hash of the source identity>`.
type CachedSource struct {
	name   string
	source Source
	cache  Cache
	ttl    time.Duration
	key    string
}

// NewCachedSource returns a Source that caches the manual for ttl,
// zero ttl keeps the entry until Invalidate
func NewCachedSource(name, prefix string, source Source, cache Cache, ttl time.Duration) *CachedSource {
	identity := name
	if id, ok := source.(interface{ Identity() string }); ok {
		identity = id.Identity()
	}
	return &CachedSource{
		name:   name,
		source: source,
		cache:  cache,
		ttl:    ttl,
		key:    path.Join(prefix, "manuals", name, strconv.FormatUint(xxhash.Sum64String(identity), 16)),
	}
}

// Key returns the cache key
func (s *CachedSource) Key() string {
	return s.key
}

// Load implements Source
func (s *CachedSource) Load(ctx context.Context) (*Manual, error) {
	data, err := s.cache.Get(ctx, s.key)
	if err == nil {
		m, perr := ParseManual(data, FormatJSON)
		if perr == nil {
			metricskey.StatsCatalogCacheHits.IncrCounter(1, s.name)
			return m, nil
		}
		logger.ContextKV(ctx, xlog.WARNING, "reason", "invalid_cache_entry", "key", s.key, "err", perr.Error())
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "cache_get", "key", s.key, "err", err.Error())
	}

	m, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode manual")
	}
	if err = s.cache.Set(ctx, s.key, data, s.ttl); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "cache_set", "key", s.key, "err", err.Error())
	}
	return m, nil
}

// Invalidate drops the cached manual
func (s *CachedSource) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, s.key)
}
