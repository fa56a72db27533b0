package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned by [Cache.Get] when nothing is cached.
	ErrCacheMiss = errors.New("profile cache miss")
	// ErrCacheUnavailable wraps Redis failures.
	ErrCacheUnavailable = errors.New("profile cache unavailable")
)

const (
	defaultCachePrefix = "egp"
	defaultCacheTTL    = 5 * time.Minute
)

type cachedProfile struct {
	Profile Profile         `json:"profile"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Stored  int64           `json:"stored"`
}

// Cache stores profiles in Redis keyed by session. The session key is the
// SHA-256 of the session credential, so raw credentials never reach Redis.
type Cache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCache returns a cache using prefix (default "egp") and ttl
// (default 5m).
func NewCache(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = defaultCachePrefix
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

// SessionKey derives the cache identity of a session credential. Empty
// credentials have no key.
func SessionKey(credential string) string {
	if credential == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) key(session string) string {
	return c.prefix + ":" + session
}

// Get returns the cached profile for session or [ErrCacheMiss].
func (c *Cache) Get(ctx context.Context, session string) (Profile, error) {
	if session == "" {
		return Profile{}, ErrCacheMiss
	}
	data, err := c.redis.Get(ctx, c.key(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Profile{}, ErrCacheMiss
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	var cp cachedProfile
	if err := json.Unmarshal(data, &cp); err != nil {
		// A corrupt entry is treated as absent and removed.
		_ = c.redis.Del(ctx, c.key(session)).Err()
		return Profile{}, ErrCacheMiss
	}
	cp.Profile.Raw = cp.Raw
	return cp.Profile, nil
}

// Set stores p for session with the cache TTL.
func (c *Cache) Set(ctx context.Context, session string, p Profile) error {
	if session == "" {
		return nil
	}
	data, err := json.Marshal(cachedProfile{Profile: p, Raw: p.Raw, Stored: time.Now().Unix()})
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(session), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Invalidate drops the cached profile for session. Missing entries are not
// an error.
func (c *Cache) Invalidate(ctx context.Context, session string) error {
	if session == "" {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(session)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Lookup returns the cached profile, fetching and storing it on a miss. A
// Redis outage degrades to a live fetch.
func (c *Cache) Lookup(ctx context.Context, session string, fetch func(context.Context) (Profile, error)) (Profile, bool, error) {
	p, err := c.Get(ctx, session)
	if err == nil {
		return p, true, nil
	}

	p, err = fetch(ctx)
	if err != nil {
		return Profile{}, false, err
	}
	_ = c.Set(ctx, session, p)
	return p, false, nil
}
