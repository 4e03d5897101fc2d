package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/model"
)

type fakeDurableStore struct {
	entries map[string]*model.CacheEntry
	fail    bool
	touches int
	puts    int
}

func (f *fakeDurableStore) Get(ctx context.Context, fileHash string) (*model.CacheEntry, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	entry, ok := f.entries[fileHash]
	if !ok {
		return nil, database.ErrCacheEntryNotFound
	}
	return entry, nil
}

func (f *fakeDurableStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	if f.fail {
		return errors.New("connection refused")
	}
	if f.entries == nil {
		f.entries = make(map[string]*model.CacheEntry)
	}
	f.entries[entry.FileHash] = entry
	f.puts++
	return nil
}

func (f *fakeDurableStore) Touch(ctx context.Context, fileHash string) error {
	if f.fail {
		return errors.New("connection refused")
	}
	f.touches++
	return nil
}

func (f *fakeDurableStore) PurgeExpired(ctx context.Context) (int64, error) {
	if f.fail {
		return 0, errors.New("connection refused")
	}
	var removed int64
	now := time.Now()
	for hash, entry := range f.entries {
		if now.After(entry.ExpiresAt) {
			delete(f.entries, hash)
			removed++
		}
	}
	return removed, nil
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewContentAddressedCache(DefaultCacheConfig(), nil)
	ctx := context.Background()

	content := []byte("scanned answer sheet bytes")
	hash := HashBytes(content)

	result := &model.ExtractionResult{
		FileName:    "scan.pdf",
		ExamID:      "MATH-101",
		StudentName: "Jane Doe",
		Confidence:  0.9,
	}
	cache.Put(ctx, hash, "scan.pdf", int64(len(content)), result)

	if got := cache.AccessCount(hash); got != 1 {
		t.Fatalf("expected access count 1 after put, got %d", got)
	}

	cached := cache.Get(ctx, hash)
	if cached == nil {
		t.Fatal("expected cache hit for identical content")
	}
	if cached.ExamID != result.ExamID || cached.StudentName != result.StudentName {
		t.Fatalf("cached result differs: got %+v", cached)
	}
	if got := cache.AccessCount(hash); got != 2 {
		t.Fatalf("expected access count 2 after get, got %d", got)
	}
}

func TestCacheIdenticalContentSameHash(t *testing.T) {
	a := HashBytes([]byte("same bytes"))
	b := HashBytes([]byte("same bytes"))
	if a != b {
		t.Fatalf("identical content must hash identically: %s vs %s", a, b)
	}
	if a == HashBytes([]byte("other bytes")) {
		t.Fatal("different content must not collide in tests")
	}
}

func TestCacheExpiredEntryIsMiss(t *testing.T) {
	cache := NewContentAddressedCache(CacheConfig{MaxEntries: 10, TTL: time.Millisecond}, nil)
	ctx := context.Background()

	hash := HashBytes([]byte("short-lived"))
	cache.Put(ctx, hash, "scan.pdf", 11, &model.ExtractionResult{FileName: "scan.pdf"})

	time.Sleep(5 * time.Millisecond)

	if got := cache.Get(ctx, hash); got != nil {
		t.Fatal("expected miss for expired entry")
	}

	stats := cache.Stats()
	if stats.TotalEntries != 0 {
		t.Fatalf("expected expired entry purged on access, have %d entries", stats.TotalEntries)
	}
}

func TestCacheDurableHitRepopulatesMemory(t *testing.T) {
	ctx := context.Background()
	hash := HashBytes([]byte("archived scan"))

	payload, err := json.Marshal(&model.ExtractionResult{FileName: "archived.pdf", ExamID: "CS-301"})
	if err != nil {
		t.Fatalf("failed to encode seed result: %v", err)
	}
	now := time.Now()
	store := &fakeDurableStore{entries: map[string]*model.CacheEntry{
		hash: {
			FileHash:       hash,
			FileName:       "archived.pdf",
			FileSize:       13,
			Result:         payload,
			CreatedAt:      now.Add(-time.Hour),
			ExpiresAt:      now.Add(time.Hour),
			AccessCount:    4,
			LastAccessedAt: now.Add(-time.Hour),
		},
	}}
	cache := NewContentAddressedCache(DefaultCacheConfig(), store)

	got := cache.Get(ctx, hash)
	if got == nil || got.ExamID != "CS-301" {
		t.Fatalf("expected durable-tier hit, got %+v", got)
	}
	if count := cache.AccessCount(hash); count != 5 {
		t.Fatalf("expected stored access count carried over and incremented to 5, got %d", count)
	}
	if store.touches != 1 {
		t.Fatalf("expected one durable touch, got %d", store.touches)
	}

	// Repopulated entry serves from memory even if the durable tier goes away
	store.fail = true
	if cache.Get(ctx, hash) == nil {
		t.Fatal("expected in-memory hit after repopulation")
	}
}

func TestCacheFailingDurableTierDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	store := &fakeDurableStore{fail: true}
	cache := NewContentAddressedCache(DefaultCacheConfig(), store)

	hash := HashBytes([]byte("fresh scan"))
	result := &model.ExtractionResult{FileName: "scan.pdf", ExamID: "MATH-101"}

	// Durable writes fail; callers never see the error
	cache.Put(ctx, hash, "scan.pdf", 10, result)

	got := cache.Get(ctx, hash)
	if got == nil || got.ExamID != "MATH-101" {
		t.Fatalf("memory tier must keep serving when the store is down, got %+v", got)
	}

	if cache.Get(ctx, HashBytes([]byte("absent"))) != nil {
		t.Fatal("expected plain miss when the durable lookup fails")
	}

	memRemoved, storeRemoved := cache.CleanupExpired(ctx)
	if memRemoved != 0 || storeRemoved != 0 {
		t.Fatalf("expected cleanup to degrade quietly, got %d/%d", memRemoved, storeRemoved)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	cache := NewContentAddressedCache(CacheConfig{MaxEntries: 2, TTL: time.Hour}, nil)
	ctx := context.Background()

	first := HashBytes([]byte("first"))
	second := HashBytes([]byte("second"))
	cache.Put(ctx, first, "first.pdf", 5, &model.ExtractionResult{FileName: "first.pdf"})
	time.Sleep(2 * time.Millisecond)
	cache.Put(ctx, second, "second.pdf", 6, &model.ExtractionResult{FileName: "second.pdf"})
	time.Sleep(2 * time.Millisecond)

	// Refresh first so second becomes the LRU victim
	if cache.Get(ctx, first) == nil {
		t.Fatal("expected hit for first entry")
	}
	time.Sleep(2 * time.Millisecond)

	third := HashBytes([]byte("third"))
	cache.Put(ctx, third, "third.pdf", 5, &model.ExtractionResult{FileName: "third.pdf"})

	if cache.Get(ctx, second) != nil {
		t.Fatal("expected least-recently-used entry evicted")
	}
	if cache.Get(ctx, first) == nil || cache.Get(ctx, third) == nil {
		t.Fatal("expected surviving entries to remain cached")
	}
}

func TestCacheStats(t *testing.T) {
	cache := NewContentAddressedCache(DefaultCacheConfig(), nil)
	ctx := context.Background()

	hot := HashBytes([]byte("hot"))
	cold := HashBytes([]byte("cold"))
	cache.Put(ctx, hot, "hot.pdf", 100, &model.ExtractionResult{FileName: "hot.pdf"})
	cache.Put(ctx, cold, "cold.pdf", 50, &model.ExtractionResult{FileName: "cold.pdf"})

	cache.Get(ctx, hot)
	cache.Get(ctx, hot)
	cache.Get(ctx, HashBytes([]byte("absent")))

	stats := cache.Stats()
	if stats.TotalEntries != 2 {
		t.Fatalf("expected 2 entries, got %d", stats.TotalEntries)
	}
	if stats.TotalSize != 150 {
		t.Fatalf("expected total size 150, got %d", stats.TotalSize)
	}
	// 2 hits, 1 miss
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Fatalf("expected hit rate ~0.667, got %v", stats.HitRate)
	}
	if len(stats.TopFiles) == 0 || stats.TopFiles[0].FileName != "hot.pdf" {
		t.Fatalf("expected hot.pdf ranked first, got %+v", stats.TopFiles)
	}
}
