// Package docstore provides schema-less document storage with live queries.
// Backends: Firestore, PostgreSQL (JSONB) and an in-process memory store.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Document is one record of a collection.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// SnapshotFunc receives the full result set of a watched query.
type SnapshotFunc func([]Document)

// DocumentFunc receives a watched document, or nil when it does not exist.
type DocumentFunc func(*Document)

// ErrorFunc receives the error that terminated a watch.
type ErrorFunc func(error)

// Store is implemented by every backend. Watches deliver the current result
// immediately and again after every change until stop is called or ctx ends.
// Callbacks for one watch never overlap. Stop blocks until any in-flight
// callback has returned, so it must not be called from inside a callback.
type Store interface {
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Set replaces the document, creating it when absent.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Create writes the document only if id is unused and reports whether it did.
	Create(ctx context.Context, collection, id string, data map[string]any) (bool, error)
	// Add inserts a document under a store-assigned id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, q Query) ([]Document, error)
	Watch(ctx context.Context, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (stop func())
	WatchDocument(ctx context.Context, collection, id string, onChange DocumentFunc, onError ErrorFunc) (stop func())
	Close() error
}

// ErrNotFound is returned by Update when the document is absent.
type ErrNotFound struct {
	Collection string
	ID         string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("document not found: %s/%s", e.Collection, e.ID)
}

// normalize converts data into plain JSON values (map[string]any, []any,
// float64, string, bool, nil) so every backend compares the same shapes.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// matches reports whether data satisfies every filter.
func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got, ok := data[f.Field]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalizeValue(got), normalizeValue(f.Value)) {
			return false
		}
	}
	return true
}

// sortDocuments orders docs by field. Documents lacking the field sort last.
func sortDocuments(docs []Document, field string, descending bool) {
	if field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Data[field]
		b, bok := docs[j].Data[field]
		if !aok || !bok {
			return aok && !bok
		}
		c := compare(a, b)
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if !av {
				return -1
			}
			return 1
		}
		return 0
	}
	return 0
}

func applyLimit(docs []Document, limit int) []Document {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}

// stopAndWait returns a stop function that cancels a watch and blocks until
// its goroutine has returned, so no callback runs after stop returns.
func stopAndWait(cancel context.CancelFunc, finished <-chan struct{}) func() {
	return func() {
		cancel()
		<-finished
	}
}
