package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"beomusic_backend/internal/model"
)

// =============================================================================
// Shared Store Contract
// =============================================================================
//
// Both stores must make the same transitions, so every case runs against
// MemoryStore and, when a Redis server is reachable, RedisStore.

func newSession(id string) *model.BrowseSession {
	return &model.BrowseSession{
		ID:       id,
		ViewerID: "viewer-1",
		SongID:   "song-1",
		State:    model.SessionIdle,
		PageSize: 2,
	}
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, model.ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
		if _, err := store.BeginLoad(ctx, "missing"); !errors.Is(err, model.ErrSessionNotFound) {
			t.Errorf("BeginLoad error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		if err := store.Create(ctx, newSession("s1")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		got, err := store.Get(ctx, "s1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ViewerID != "viewer-1" || got.SongID != "song-1" || got.State != model.SessionIdle || got.PageSize != 2 {
			t.Errorf("unexpected session: %+v", got)
		}
	})

	t.Run("load cycle", func(t *testing.T) {
		store := newStore(t)
		store.Create(ctx, newSession("s1"))

		loading, err := store.BeginLoad(ctx, "s1")
		if err != nil {
			t.Fatalf("BeginLoad failed: %v", err)
		}
		if loading.State != model.SessionLoading || loading.Generation != 1 {
			t.Fatalf("after begin: state=%s gen=%d", loading.State, loading.Generation)
		}

		// A second load while one is in flight is suppressed.
		if _, err := store.BeginLoad(ctx, "s1"); !errors.Is(err, model.ErrLoadInProgress) {
			t.Errorf("concurrent BeginLoad error = %v, want ErrLoadInProgress", err)
		}

		loaded, err := store.Complete(ctx, "s1", loading.Generation, "200", true)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if loaded.State != model.SessionLoaded || loaded.Cursor != "200" || !loaded.HasMore {
			t.Errorf("after complete: %+v", loaded)
		}

		next, err := store.BeginLoad(ctx, "s1")
		if err != nil {
			t.Fatalf("second BeginLoad failed: %v", err)
		}
		if next.Cursor != "200" || next.Generation != 2 {
			t.Errorf("second load should resume from cursor 200 at gen 2, got %+v", next)
		}
		if _, err := store.Complete(ctx, "s1", next.Generation, "100", false); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}

		if _, err := store.BeginLoad(ctx, "s1"); !errors.Is(err, model.ErrNoMorePages) {
			t.Errorf("BeginLoad on exhausted session = %v, want ErrNoMorePages", err)
		}
	})

	t.Run("failed needs reset", func(t *testing.T) {
		store := newStore(t)
		store.Create(ctx, newSession("s1"))
		loading, _ := store.BeginLoad(ctx, "s1")

		failed, err := store.Fail(ctx, "s1", loading.Generation, "deadline exceeded")
		if err != nil {
			t.Fatalf("Fail failed: %v", err)
		}
		if failed.State != model.SessionFailed || failed.LastError != "deadline exceeded" {
			t.Errorf("after fail: %+v", failed)
		}

		if _, err := store.BeginLoad(ctx, "s1"); !errors.Is(err, model.ErrSessionFailed) {
			t.Errorf("BeginLoad on failed session = %v, want ErrSessionFailed", err)
		}

		reset, err := store.Reset(ctx, "s1")
		if err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if reset.State != model.SessionIdle || reset.Cursor != "" || reset.LastError != "" {
			t.Errorf("after reset: %+v", reset)
		}
		if _, err := store.BeginLoad(ctx, "s1"); err != nil {
			t.Errorf("BeginLoad after reset failed: %v", err)
		}
	})

	t.Run("stale generation is dropped", func(t *testing.T) {
		store := newStore(t)
		store.Create(ctx, newSession("s1"))
		stale, _ := store.BeginLoad(ctx, "s1")

		if _, err := store.Reset(ctx, "s1"); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}

		if _, err := store.Complete(ctx, "s1", stale.Generation, "999", true); !errors.Is(err, model.ErrSessionGone) {
			t.Errorf("Complete with stale generation = %v, want ErrSessionGone", err)
		}
		if _, err := store.Fail(ctx, "s1", stale.Generation, "late"); !errors.Is(err, model.ErrSessionGone) {
			t.Errorf("Fail with stale generation = %v, want ErrSessionGone", err)
		}

		got, _ := store.Get(ctx, "s1")
		if got.State != model.SessionIdle || got.Cursor != "" {
			t.Errorf("stale result leaked into session: %+v", got)
		}
	})

	t.Run("closed session drops result", func(t *testing.T) {
		store := newStore(t)
		store.Create(ctx, newSession("s1"))
		loading, _ := store.BeginLoad(ctx, "s1")

		if err := store.Delete(ctx, "s1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Complete(ctx, "s1", loading.Generation, "1", true); !errors.Is(err, model.ErrSessionGone) {
			t.Errorf("Complete after delete = %v, want ErrSessionGone", err)
		}
		if _, err := store.Get(ctx, "s1"); !errors.Is(err, model.ErrSessionNotFound) {
			t.Errorf("Get after delete = %v, want ErrSessionNotFound", err)
		}
	})
}

// =============================================================================
// Memory Store
// =============================================================================

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore(time.Hour)
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Create(context.Background(), newSession("s1"))

	now = now.Add(59 * time.Second)
	if _, err := store.Get(context.Background(), "s1"); err != nil {
		t.Fatalf("session expired early: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := store.Get(context.Background(), "s1"); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound after TTL", err)
	}
}

func TestMemoryStore_CreateSweepsAbandonedSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	// ARRANGE: viewers that open a session and never come back
	for i := 0; i < 1000; i++ {
		store.Create(ctx, newSession(fmt.Sprintf("abandoned-%d", i)))
	}
	if got := store.Len(); got != 1000 {
		t.Fatalf("Len = %d, want 1000", got)
	}

	// ACT
	now = now.Add(24 * time.Hour)
	store.Create(ctx, newSession("fresh"))

	// ASSERT
	if got := store.Len(); got != 1 {
		t.Errorf("Len after TTL = %d, want 1", got)
	}
	if _, err := store.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh session swept: %v", err)
	}
}

func TestMemoryStore_SweepKeepsLiveSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	store.Create(ctx, newSession("old"))
	now = now.Add(50 * time.Second)
	store.Create(ctx, newSession("recent"))

	// old has expired, recent has not
	now = now.Add(20 * time.Second)
	store.Create(ctx, newSession("new"))

	if got := store.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if _, err := store.Get(ctx, "recent"); err != nil {
		t.Errorf("live session swept: %v", err)
	}
}

// =============================================================================
// Redis Store (integration)
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	// DB 1 keeps test keys away from dev data
	opts.DB = 1

	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewRedisStore(setupTestRedis(t), time.Minute)
	})
}

func TestRedisStore_SetsTTL(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	store.Create(ctx, newSession("s1"))

	ttl, err := client.PTTL(ctx, sessionKey("s1")).Result()
	if err != nil {
		t.Fatalf("PTTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, want (0, 1m]", ttl)
	}
}
