package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Each watch runs its own goroutine that
// delivers the latest snapshot; intermediate snapshots may be coalesced.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	watchers    map[*memoryWatch]struct{}
	closed      bool
}

type memoryWatch struct {
	collection string
	docID      string
	signal     chan struct{}
	done       chan struct{}
	finished   chan struct{}
	stopOnce   sync.Once
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]any),
		watchers:    make(map[*memoryWatch]struct{}),
	}
}

// Get returns a copy of the document.
func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Data: clone(data)}, nil
}

// Set replaces the document.
func (m *Memory) Set(_ context.Context, collection, id string, data map[string]any) error {
	norm, err := normalize(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.collectionLocked(collection)[id] = norm
	m.mu.Unlock()
	m.notify(collection, id)
	return nil
}

// Create writes the document unless id is taken.
func (m *Memory) Create(_ context.Context, collection, id string, data map[string]any) (bool, error) {
	norm, err := normalize(data)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	coll := m.collectionLocked(collection)
	if _, exists := coll[id]; exists {
		m.mu.Unlock()
		return false, nil
	}
	coll[id] = norm
	m.mu.Unlock()
	m.notify(collection, id)
	return true, nil
}

// Add inserts under a random id.
func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Update merges fields into an existing document.
func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	norm, err := normalize(fields)
	if err != nil {
		return err
	}
	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return &ErrNotFound{Collection: collection, ID: id}
	}
	for k, v := range norm {
		doc[k] = v
	}
	m.mu.Unlock()
	m.notify(collection, id)
	return nil
}

// Delete removes the document if present.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	_, existed := m.collections[collection][id]
	delete(m.collections[collection], id)
	m.mu.Unlock()
	if existed {
		m.notify(collection, id)
	}
	return nil
}

// Find runs q against the current contents.
func (m *Memory) Find(_ context.Context, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(q), nil
}

// Watch delivers q's results now and after every change to the collection.
func (m *Memory) Watch(ctx context.Context, q Query, onSnapshot SnapshotFunc, _ ErrorFunc) func() {
	w := m.register(q.Collection, "")
	go m.run(ctx, w, func() {
		m.mu.Lock()
		docs := m.findLocked(q)
		m.mu.Unlock()
		onSnapshot(docs)
	})
	return func() { m.stopWatch(w) }
}

// WatchDocument delivers the document now and after every change to it.
func (m *Memory) WatchDocument(ctx context.Context, collection, id string, onChange DocumentFunc, _ ErrorFunc) func() {
	w := m.register(collection, id)
	go m.run(ctx, w, func() {
		doc, _ := m.Get(ctx, collection, id)
		onChange(doc)
	})
	return func() { m.stopWatch(w) }
}

// Close stops every watch and waits for in-flight callbacks.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	watchers := make([]*memoryWatch, 0, len(m.watchers))
	for w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()
	for _, w := range watchers {
		m.stopWatch(w)
	}
	return nil
}

func (m *Memory) collectionLocked(name string) map[string]map[string]any {
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[string]map[string]any)
		m.collections[name] = coll
	}
	return coll
}

func (m *Memory) findLocked(q Query) []Document {
	var docs []Document
	for id, data := range m.collections[q.Collection] {
		if matches(data, q.Filters) {
			docs = append(docs, Document{ID: id, Data: clone(data)})
		}
	}
	sortByID(docs)
	sortDocuments(docs, q.OrderBy, q.Descending)
	return applyLimit(docs, q.Limit)
}

func (m *Memory) register(collection, docID string) *memoryWatch {
	w := &memoryWatch{
		collection: collection,
		docID:      docID,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	w.signal <- struct{}{}
	m.mu.Lock()
	closed := m.closed
	if !closed {
		m.watchers[w] = struct{}{}
	}
	m.mu.Unlock()
	if closed {
		w.stopOnce.Do(func() { close(w.done) })
	}
	return w
}

func (m *Memory) unregister(w *memoryWatch) {
	w.stopOnce.Do(func() {
		m.mu.Lock()
		delete(m.watchers, w)
		m.mu.Unlock()
		close(w.done)
	})
}

// stopWatch ends w and blocks until its goroutine has returned.
func (m *Memory) stopWatch(w *memoryWatch) {
	m.unregister(w)
	<-w.finished
}

func (m *Memory) run(ctx context.Context, w *memoryWatch, deliver func()) {
	defer close(w.finished)
	for {
		select {
		case <-ctx.Done():
			m.unregister(w)
			return
		case <-w.done:
			return
		case <-w.signal:
			select {
			case <-w.done:
				return
			default:
			}
			deliver()
		}
	}
}

func (m *Memory) notify(collection, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for w := range m.watchers {
		if w.collection != collection || (w.docID != "" && w.docID != id) {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func sortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func clone(data map[string]any) map[string]any {
	out, err := normalize(data)
	if err != nil {
		return map[string]any{}
	}
	return out
}
