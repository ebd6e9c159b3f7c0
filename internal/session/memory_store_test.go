package session

import (
	"context"
	"testing"
	"time"
)

func newTestStore(ttl time.Duration) *MemoryStore {
	// Интервал свипера задран, чтобы фоновая очистка не мешала тестам.
	return NewMemoryStore(ttl, time.Hour)
}

func TestMemoryStoreGetMiss(t *testing.T) {
	store := newTestStore(time.Minute)
	defer store.Close()

	if _, ok := store.Get(context.Background(), "abcd"); ok {
		t.Fatalf("expected miss for unknown code")
	}
}

func TestMemoryStoreSetReplacesPrompt(t *testing.T) {
	store := newTestStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, "abcd", "first")
	store.Set(ctx, "abcd", "second")

	rec, ok := store.Get(ctx, "abcd")
	if !ok {
		t.Fatalf("expected record")
	}
	if rec.Prompt != "second" {
		t.Fatalf("expected prompt to be replaced, got %q", rec.Prompt)
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	store := newTestStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	store.Set(ctx, "abcd", "hello")

	// Чуть раньше TTL — запись жива и промпт исходный.
	store.now = func() time.Time { return base.Add(time.Minute - time.Second) }
	rec, ok := store.Get(ctx, "abcd")
	if !ok {
		t.Fatalf("expected record before TTL")
	}
	if rec.Prompt != "hello" {
		t.Fatalf("unexpected prompt: %q", rec.Prompt)
	}

	// Чуть позже TTL — miss, запись удаляется.
	store.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	if _, ok := store.Get(ctx, "abcd"); ok {
		t.Fatalf("expected miss after TTL")
	}
	if _, exists := store.sessions["abcd"]; exists {
		t.Fatalf("expected expired record to be deleted")
	}
}

func TestMemoryStoreWriteRefreshesTimestamp(t *testing.T) {
	store := newTestStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	store.Set(ctx, "abcd", "hello")

	// Запись обновлена за секунду до истечения — TTL отсчитывается заново.
	store.now = func() time.Time { return base.Add(time.Minute - time.Second) }
	store.Set(ctx, "abcd", "updated")

	store.now = func() time.Time { return base.Add(2*time.Minute - 2*time.Second) }
	rec, ok := store.Get(ctx, "abcd")
	if !ok {
		t.Fatalf("expected refreshed record to be alive")
	}
	if rec.Prompt != "updated" {
		t.Fatalf("unexpected prompt: %q", rec.Prompt)
	}
}

func TestMemoryStoreTTLZeroNeverExpires(t *testing.T) {
	store := newTestStore(0)
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	store.Set(ctx, "abcd", "hello")

	store.now = func() time.Time { return base.Add(1000 * time.Hour) }
	if _, ok := store.Get(ctx, "abcd"); !ok {
		t.Fatalf("record should not expire when ttl=0")
	}
	if deleted := store.sweep(store.now()); deleted != 0 {
		t.Fatalf("sweep should not delete anything when ttl=0, deleted %d", deleted)
	}
}

func TestMemoryStoreSweepDeletesExpiredOnly(t *testing.T) {
	store := newTestStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	store.Set(ctx, "old1", "a")
	store.Set(ctx, "old2", "b")

	store.now = func() time.Time { return base.Add(30 * time.Second) }
	store.Set(ctx, "young", "c")

	deleted := store.sweep(base.Add(time.Minute + time.Second))
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if _, exists := store.sessions["young"]; !exists {
		t.Fatalf("live record should survive the sweep")
	}
}
