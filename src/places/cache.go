package places

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Cache stores encoded upstream responses.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// MemcachedCache is a Cache backed by memcached. Cache failures are treated
// as misses.
type MemcachedCache struct {
	client *memcache.Client
	onErr  func(error)
}

func NewMemcachedCache(servers []string, onErr func(error)) *MemcachedCache {
	if onErr == nil {
		onErr = func(error) {}
	}
	return &MemcachedCache{client: memcache.New(servers...), onErr: onErr}
}

func (m *MemcachedCache) Get(key string) ([]byte, bool) {
	item, err := m.client.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			m.onErr(err)
		}
		return nil, false
	}
	return item.Value, true
}

func (m *MemcachedCache) Set(key string, value []byte, ttl time.Duration) {
	if err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: expiration(ttl, time.Now()),
	}); err != nil {
		m.onErr(err)
	}
}

// memcached reads expirations above 30 days as absolute unix times.
const maxRelativeExpiration = 30 * 24 * time.Hour

func expiration(ttl time.Duration, now time.Time) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > maxRelativeExpiration {
		return int32(now.Add(ttl).Unix())
	}
	return int32(ttl / time.Second)
}

// cacheKey never includes the API key and always fits memcached's key limits.
func cacheKey(args NearbyArgs) string {
	sum := sha1.Sum([]byte(searchParams(args, "").Encode()))
	return "places:nearby:" + hex.EncodeToString(sum[:])
}
