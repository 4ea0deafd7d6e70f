package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is a Store backed by Cloud Firestore. Queries that combine
// equality filters with an ordering are ordered client-side so no composite
// index is required.
type Firestore struct {
	client *firestore.Client
	log    *zap.Logger
}

// NewFirestore creates a client for projectID. FIRESTORE_EMULATOR_HOST is
// honoured by the underlying client.
func NewFirestore(ctx context.Context, projectID string, logger *zap.Logger) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return NewFirestoreWithClient(client, logger), nil
}

// NewFirestoreWithClient wraps an existing client.
func NewFirestoreWithClient(client *firestore.Client, logger *zap.Logger) *Firestore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Firestore{client: client, log: logger}
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return toDocument(snap), nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Create(ctx context.Context, collection, id string, data map[string]any) (bool, error) {
	_, err := f.client.Collection(collection).Doc(id).Create(ctx, data)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s/%s: %w", collection, id, err)
	}
	return true, nil
}

func (f *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return &ErrNotFound{Collection: collection, ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) Find(ctx context.Context, q Query) ([]Document, error) {
	snaps, err := f.query(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	return finish(toDocuments(snaps), q), nil
}

func (f *Firestore) Watch(ctx context.Context, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := f.query(q).Snapshots(ctx)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled || errors.Is(err, iterator.Done) {
					return
				}
				f.log.Warn("firestore watch failed", zap.String("collection", q.Collection), zap.Error(err))
				if onError != nil {
					onError(fmt.Errorf("watch %s: %w", q.Collection, err))
				}
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				if onError != nil {
					onError(fmt.Errorf("read snapshot %s: %w", q.Collection, err))
				}
				return
			}
			onSnapshot(finish(toDocuments(snaps), q))
		}
	}()

	return stopAndWait(cancel, finished)
}

func (f *Firestore) WatchDocument(ctx context.Context, collection, id string, onChange DocumentFunc, onError ErrorFunc) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := f.client.Collection(collection).Doc(id).Snapshots(ctx)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if status.Code(err) == codes.NotFound {
				onChange(nil)
				continue
			}
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				f.log.Warn("firestore document watch failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
				if onError != nil {
					onError(fmt.Errorf("watch %s/%s: %w", collection, id, err))
				}
				return
			}
			if !snap.Exists() {
				onChange(nil)
				continue
			}
			onChange(toDocument(snap))
		}
	}()

	return stopAndWait(cancel, finished)
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

// query translates q. Ordering and limits are pushed to the server only
// when there are no filters.
func (f *Firestore) query(q Query) firestore.Query {
	fq := f.client.Collection(q.Collection).Query
	for _, filter := range q.Filters {
		fq = fq.Where(filter.Field, "==", filter.Value)
	}
	if len(q.Filters) == 0 && q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
		if q.Limit > 0 {
			fq = fq.Limit(q.Limit)
		}
	}
	return fq
}

func finish(docs []Document, q Query) []Document {
	if len(q.Filters) > 0 {
		sortDocuments(docs, q.OrderBy, q.Descending)
	}
	return applyLimit(docs, q.Limit)
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, *toDocument(snap))
	}
	return docs
}

func toDocument(snap *firestore.DocumentSnapshot) *Document {
	data, err := normalize(snap.Data())
	if err != nil {
		data = snap.Data()
	}
	return &Document{ID: snap.Ref.ID, Data: data}
}
