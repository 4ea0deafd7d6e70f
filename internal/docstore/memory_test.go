package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects snapshots delivered by a watch.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]Document
}

func (r *recorder) record(docs []Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, docs)
}

func (r *recorder) last() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestMemory_SetGetReplace(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "insights", "a", map[string]any{"title": "First", "views": 3}))
	require.NoError(t, store.Set(ctx, "insights", "a", map[string]any{"title": "Second"}))

	doc, err := store.Get(ctx, "insights", "a")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, map[string]any{"title": "Second"}, doc.Data, "set is a full replace")

	missing, err := store.Get(ctx, "insights", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "hero", "main", map[string]any{"headline": "Original"}))
	doc, _ := store.Get(ctx, "hero", "main")
	doc.Data["headline"] = "Mutated"

	again, _ := store.Get(ctx, "hero", "main")
	assert.Equal(t, "Original", again.Data["headline"])
}

func TestMemory_CreateOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	created, err := store.Create(ctx, "hero", "main", map[string]any{"headline": "Seed"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Create(ctx, "hero", "main", map[string]any{"headline": "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	doc, _ := store.Get(ctx, "hero", "main")
	assert.Equal(t, "Seed", doc.Data["headline"])
}

func TestMemory_AddAssignsID(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	id1, err := store.Add(ctx, "inquiries", map[string]any{"name": "A"})
	require.NoError(t, err)
	id2, err := store.Add(ctx, "inquiries", map[string]any{"name": "B"})
	require.NoError(t, err)
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestMemory_UpdateMergesAndRequiresDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "inquiries", "q1", map[string]any{"status": "new", "name": "Asha"}))
	require.NoError(t, store.Update(ctx, "inquiries", "q1", map[string]any{"status": "reviewed"}))

	doc, _ := store.Get(ctx, "inquiries", "q1")
	assert.Equal(t, map[string]any{"status": "reviewed", "name": "Asha"}, doc.Data)

	err := store.Update(ctx, "inquiries", "missing", map[string]any{"status": "archived"})
	var notFound *ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ID)
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "jobs", "j1", map[string]any{"title": "Associate"}))
	require.NoError(t, store.Delete(ctx, "jobs", "j1"))
	require.NoError(t, store.Delete(ctx, "jobs", "j1"))
	require.NoError(t, store.Delete(ctx, "never", "existed"))

	doc, _ := store.Get(ctx, "jobs", "j1")
	assert.Nil(t, doc)
}

func TestMemory_FindFiltersOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	seed := map[string]map[string]any{
		"a": {"date": "2025-01-01T00:00:00Z", "isFeatured": true},
		"b": {"date": "2025-03-01T00:00:00Z", "isFeatured": false},
		"c": {"date": "2025-02-01T00:00:00Z", "isFeatured": true},
		"d": {"isFeatured": true},
	}
	for id, data := range seed {
		require.NoError(t, store.Set(ctx, "insights", id, data))
	}

	all, err := store.Find(ctx, Query{Collection: "insights", OrderBy: "date", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(all), "documents without the sort key go last")

	featured, err := store.Find(ctx, Query{Collection: "insights", OrderBy: "date", Descending: true}.Where("isFeatured", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "d"}, ids(featured))

	limited, err := store.Find(ctx, Query{Collection: "insights", OrderBy: "date", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(limited))
}

func TestMemory_FindMatchesNumericFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "insights", "ep", map[string]any{"season": 2}))
	found, err := store.Find(ctx, Query{Collection: "insights"}.Where("season", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"ep"}, ids(found))
}

func TestMemory_WatchDeliversInitialAndChanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "jobs", "j1", map[string]any{"status": "active", "postedDate": "2025-01-01"}))

	rec := &recorder{}
	stop := store.Watch(ctx, Query{Collection: "jobs", OrderBy: "postedDate", Descending: true}.Where("status", "active"), rec.record, nil)
	defer stop()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j1"}, ids(rec.last()))

	require.NoError(t, store.Set(ctx, "jobs", "j2", map[string]any{"status": "active", "postedDate": "2025-02-01"}))
	require.Eventually(t, func() bool { return len(rec.last()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j2", "j1"}, ids(rec.last()))

	require.NoError(t, store.Update(ctx, "jobs", "j1", map[string]any{"status": "closed"}))
	require.Eventually(t, func() bool { return len(rec.last()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j2"}, ids(rec.last()))
}

func TestMemory_WatchStopsDelivering(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	rec := &recorder{}
	stop := store.Watch(ctx, Query{Collection: "authors"}, rec.record, nil)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	stop()
	stop()
	require.NoError(t, store.Set(ctx, "authors", "x", map[string]any{"name": "N"}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestMemory_WatchEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemory()
	defer store.Close()

	rec := &recorder{}
	store.Watch(ctx, Query{Collection: "offices"}, rec.record, nil)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	// goleak in TestMain verifies the goroutine exits.
}

func TestMemory_WatchDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	var mu sync.Mutex
	var seen []*Document
	stop := store.WatchDocument(ctx, "hero", "main", func(d *Document) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, d)
	}, nil)
	defer stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Nil(t, seen[0], "absent document is reported as nil")
	mu.Unlock()

	require.NoError(t, store.Set(ctx, "hero", "main", map[string]any{"headline": "Strategic Counsel"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] != nil && seen[len(seen)-1].Data["headline"] == "Strategic Counsel"
	}, time.Second, 5*time.Millisecond)
}

func TestMemory_CloseStopsWatches(t *testing.T) {
	store := NewMemory()
	rec := &recorder{}
	store.Watch(context.Background(), Query{Collection: "events"}, rec.record, nil)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Close())

	// A watch registered after close terminates immediately.
	store.Watch(context.Background(), Query{Collection: "events"}, rec.record, nil)
}
