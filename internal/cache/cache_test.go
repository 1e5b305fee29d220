package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/models"
)

func TestMemoryCache_GetSet(t *testing.T) {
	cache := NewMemoryCache[models.Identity]()
	ctx := context.Background()

	err := cache.Set(ctx, "identity:1", models.Identity{ID: "1", Email: "a@example.com"}, time.Minute)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := cache.Get(ctx, "identity:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value.Email != "a@example.com" {
		t.Errorf("Expected a@example.com, got %q", value.Email)
	}
}

func TestMemoryCache_GetMiss(t *testing.T) {
	cache := NewMemoryCache[models.Identity]()

	_, err := cache.Get(context.Background(), "non-existent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()
	now := time.Now()
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "expire-key", 100, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := cache.Get(ctx, "expire-key"); err != nil {
		t.Fatalf("Get failed before expiration: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := cache.Get(ctx, "expire-key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiration, got %v", err)
	}

	// Expired entries are dropped on the next write.
	_ = cache.Set(ctx, "other", 1, time.Minute)
	cache.mu.RLock()
	_, stillThere := cache.items["expire-key"]
	cache.mu.RUnlock()
	if stillThere {
		t.Error("expired entry should have been evicted")
	}
}

func TestMemoryCache_DeleteAndClose(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", 1, time.Minute)
	_ = cache.Set(ctx, "b", 2, time.Minute)

	if err := cache.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := cache.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after close, got %v", err)
	}
	if err := cache.Health(ctx); err != nil {
		t.Errorf("Health should always succeed, got %v", err)
	}
}

func TestMemoryCache_GetWithFetch(t *testing.T) {
	cache := NewMemoryCache[models.Identity]()
	ctx := context.Background()
	var calls atomic.Int32

	fetch := func(_ context.Context, key string) (models.Identity, error) {
		calls.Add(1)
		return models.Identity{ID: key}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetWithFetch(ctx, "identity:42", time.Minute, fetch)
		if err != nil {
			t.Fatalf("GetWithFetch failed: %v", err)
		}
		if got.ID != "identity:42" {
			t.Errorf("unexpected value %+v", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls.Load())
	}
}

func TestMemoryCache_GetWithFetch_FetchError(t *testing.T) {
	cache := NewMemoryCache[models.Identity]()
	ctx := context.Background()
	wantErr := errors.New("database down")

	_, err := cache.GetWithFetch(ctx, "k", time.Minute,
		func(context.Context, string) (models.Identity, error) {
			return models.Identity{}, wantErr
		},
	)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected fetch error, got %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Error("failed fetch must not populate the cache")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_ = cache.Set(ctx, "shared", n, time.Minute)
			_, _ = cache.Get(ctx, "shared")
			_ = cache.Delete(ctx, "shared")
		}(int64(i))
	}
	wg.Wait()
}
