package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewCache(rdb, "", ttl), mr
}

func TestSessionKeyHidesCredential(t *testing.T) {
	if SessionKey("") != "" {
		t.Fatal("empty credential has no key")
	}
	k := SessionKey("header.payload.sig")
	if len(k) != 64 || strings.Contains(k, "payload") {
		t.Fatalf("unexpected key %q", k)
	}
	if SessionKey("header.payload.sig") != k {
		t.Fatal("key must be deterministic")
	}
}

func TestCacheSetGetInvalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	session := SessionKey("cred")

	if _, err := c.Get(ctx, session); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	in := Profile{ID: "u1", Role: "admin", Raw: []byte(`{"id":"u1","role":"admin","plan":"pro"}`)}
	if err := c.Set(ctx, session, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("egp:" + session); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	got, err := c.Get(ctx, session)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Role != "admin" || got.ID != "u1" || string(got.Raw) != string(in.Raw) {
		t.Fatalf("unexpected profile %+v", got)
	}

	if err := c.Invalidate(ctx, session); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Invalidate(ctx, session); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
	if _, err := c.Get(ctx, session); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after invalidate, got %v", err)
	}
}

func TestCacheExpires(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()
	if err := c.Set(ctx, "s", Profile{Role: "admin"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(31 * time.Second)
	if _, err := c.Get(ctx, "s"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	if err := mr.Set("egp:s", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := c.Get(context.Background(), "s"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if mr.Exists("egp:s") {
		t.Fatal("corrupt entry should be removed")
	}
}

func TestCacheLookup(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (Profile, error) {
		calls++
		return Profile{Role: "contributor"}, nil
	}

	p, hit, err := c.Lookup(ctx, "s", fetch)
	if err != nil || hit || p.Role != "contributor" {
		t.Fatalf("first lookup: %+v hit=%v err=%v", p, hit, err)
	}
	p, hit, err = c.Lookup(ctx, "s", fetch)
	if err != nil || !hit || p.Role != "contributor" {
		t.Fatalf("second lookup: %+v hit=%v err=%v", p, hit, err)
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}

	_, _, err = c.Lookup(ctx, "other", func(context.Context) (Profile, error) { return Profile{}, ErrRejected })
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestCacheRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	c := NewCache(rdb, "", time.Minute)
	mr.Close()

	if _, err := c.Get(context.Background(), "s"); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	p, hit, err := c.Lookup(context.Background(), "s", func(context.Context) (Profile, error) {
		return Profile{Role: "admin"}, nil
	})
	if err != nil || hit || p.Role != "admin" {
		t.Fatalf("lookup should fall back to fetch: %+v %v %v", p, hit, err)
	}
}
