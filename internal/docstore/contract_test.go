package docstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// watchTimeout allows for the emulator and LISTEN round trips.
const watchTimeout = 5 * time.Second

// uniqueCollection keeps runs against a shared database apart.
func uniqueCollection(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("create only when absent", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("hero")

		created, err := store.Create(ctx, coll, "main", map[string]any{"headline": "First"})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = store.Create(ctx, coll, "main", map[string]any{"headline": "Second"})
		require.NoError(t, err)
		assert.False(t, created)

		doc, err := store.Get(ctx, coll, "main")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "First", doc.Data["headline"])
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("authors")

		require.NoError(t, store.Delete(ctx, coll, "missing"))
		require.NoError(t, store.Set(ctx, coll, "a1", map[string]any{"name": "R. Iyer"}))
		require.NoError(t, store.Delete(ctx, coll, "a1"))
		require.NoError(t, store.Delete(ctx, coll, "a1"))

		doc, err := store.Get(ctx, coll, "a1")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("update merges and reports missing documents", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("inquiries")

		err := store.Update(ctx, coll, "nope", map[string]any{"status": "reviewed"})
		var notFound *ErrNotFound
		require.True(t, errors.As(err, &notFound), "got %v", err)
		assert.Equal(t, "nope", notFound.ID)

		require.NoError(t, store.Set(ctx, coll, "q1", map[string]any{"name": "Meera", "status": "new"}))
		require.NoError(t, store.Update(ctx, coll, "q1", map[string]any{"status": "reviewed"}))
		doc, err := store.Get(ctx, coll, "q1")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, map[string]any{"name": "Meera", "status": "reviewed"}, doc.Data)
	})

	t.Run("find filters then orders", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("insights")

		docs := map[string]map[string]any{
			"a": {"type": "articles", "date": "2025-01-10"},
			"b": {"type": "articles", "date": "2025-03-02"},
			"c": {"type": "news", "date": "2025-04-01"},
			"d": {"type": "articles", "date": "2025-02-14"},
		}
		for id, data := range docs {
			require.NoError(t, store.Set(ctx, coll, id, data))
		}

		found, err := store.Find(ctx, Query{Collection: coll, OrderBy: "date", Descending: true}.Where("type", "articles"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "d", "a"}, ids(found))

		latest, err := store.Find(ctx, Query{Collection: coll, OrderBy: "date", Descending: true, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(latest))
	})

	t.Run("watch delivers snapshot then changes", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("jobs")
		require.NoError(t, store.Set(ctx, coll, "j1", map[string]any{"status": "active", "postedDate": "2025-01-01"}))

		rec := &recorder{}
		stop := store.Watch(ctx, Query{Collection: coll, OrderBy: "postedDate", Descending: true}.Where("status", "active"), rec.record, nil)
		defer stop()

		require.Eventually(t, func() bool { return len(rec.last()) == 1 }, watchTimeout, 10*time.Millisecond)

		require.NoError(t, store.Set(ctx, coll, "j2", map[string]any{"status": "active", "postedDate": "2025-02-01"}))
		require.Eventually(t, func() bool { return len(rec.last()) == 2 }, watchTimeout, 10*time.Millisecond)
		assert.Equal(t, []string{"j2", "j1"}, ids(rec.last()))
	})

	t.Run("document watch reports absence then the document", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("hero")

		var mu sync.Mutex
		var seen []*Document
		stop := store.WatchDocument(ctx, coll, "main", func(d *Document) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, d)
		}, nil)
		defer stop()

		last := func() (*Document, int) {
			mu.Lock()
			defer mu.Unlock()
			if len(seen) == 0 {
				return nil, 0
			}
			return seen[len(seen)-1], len(seen)
		}
		require.Eventually(t, func() bool { _, n := last(); return n >= 1 }, watchTimeout, 10*time.Millisecond)
		first, _ := last()
		assert.Nil(t, first)

		require.NoError(t, store.Set(ctx, coll, "main", map[string]any{"headline": "Counsel"}))
		require.Eventually(t, func() bool {
			d, _ := last()
			return d != nil && d.Data["headline"] == "Counsel"
		}, watchTimeout, 10*time.Millisecond)
	})

	t.Run("stop waits for an in-flight callback", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		coll := uniqueCollection("authors")

		entered := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int32
		var inCallback atomic.Bool
		stop := store.Watch(ctx, Query{Collection: coll}, func([]Document) {
			inCallback.Store(true)
			defer inCallback.Store(false)
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
		}, nil)

		select {
		case <-entered:
		case <-time.After(watchTimeout):
			t.Fatal("initial snapshot was not delivered")
		}

		var returned atomic.Bool
		var busyAtReturn atomic.Bool
		go func() {
			stop()
			busyAtReturn.Store(inCallback.Load())
			returned.Store(true)
		}()

		assert.Never(t, returned.Load, 50*time.Millisecond, 5*time.Millisecond,
			"stop returned while a callback was running")
		close(release)
		require.Eventually(t, returned.Load, watchTimeout, 5*time.Millisecond)
		assert.False(t, busyAtReturn.Load())

		after := calls.Load()
		require.NoError(t, store.Set(ctx, coll, "late", map[string]any{"name": "Late"}))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, after, calls.Load(), "no callback after stop returned")
	})
}

func TestMemory_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		store := NewMemory()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
