package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"algohub/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new redis cache failed: %v", err)
	}
	return c
}

func TestRedisCacheGetMissingKey(t *testing.T) {
	c := newTestCache(t)

	value, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty value for missing key, got %q", value)
	}
}

func TestRedisCacheSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "guard", "first", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected first SetNX to win")
	}

	ok, err = c.SetNX(ctx, "guard", "second", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if ok {
		t.Fatalf("expected second SetNX to lose")
	}

	value, err := c.Get(ctx, "guard")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "first" {
		t.Fatalf("expected value from first SetNX, got %q", value)
	}
}

func TestRedisCacheIncr(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		if got != want {
			t.Fatalf("Incr() = %d, want %d", got, want)
		}
	}
}

type cachedRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestGetWithCachedNullCaching(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	fetches := 0

	fetch := func(ctx context.Context) (*cachedRecord, error) {
		fetches++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		record, err := cache.GetWithCached[*cachedRecord](
			ctx, c, "record:1", time.Minute, time.Minute,
			func(r *cachedRecord) bool { return r == nil },
			func(r *cachedRecord) string { data, _ := json.Marshal(r); return string(data) },
			func(data string) (*cachedRecord, error) {
				var r cachedRecord
				if err := json.Unmarshal([]byte(data), &r); err != nil {
					return nil, err
				}
				return &r, nil
			},
			fetch,
		)
		if err != nil {
			t.Fatalf("get with cached failed: %v", err)
		}
		if record != nil {
			t.Fatalf("expected nil record")
		}
	}

	// Second read must hit the cached null sentinel, not the fetcher.
	if fetches != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetches)
	}
}
