package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// changeChannel carries "<collection>/<id>" after every write.
const changeChannel = "docstore_changes"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data);
`

// Postgres is a Store over a single JSONB table. One shared connection
// LISTENs for change notifications and fans them out to every watch; a
// watch borrows a pool connection only while it re-runs its query. The
// pool size comes from pool_max_conns in the database URL.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger

	mu           sync.Mutex
	watchers     map[*pgWatch]struct{}
	listening    bool
	stopListen   context.CancelFunc
	listenDone   chan struct{}
	closed       bool
	retryBackoff time.Duration
}

type pgWatch struct {
	collection string
	docID      string
	signal     chan struct{}
	cancel     context.CancelFunc
	finished   chan struct{}
}

// ConnectPostgres opens and verifies a connection pool.
func ConnectPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		pool:         pool,
		log:          logger,
		watchers:     make(map[*pgWatch]struct{}),
		retryBackoff: time.Second,
	}, nil
}

// Migrate creates the documents table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, raw)
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	p.notify(ctx, collection, id)
	return nil
}

func (p *Postgres) Create(ctx context.Context, collection, id string, data map[string]any) (bool, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, string(raw),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	p.notify(ctx, collection, id)
	return true, nil
}

func (p *Postgres) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := p.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		 WHERE collection = $1 AND id = $2`,
		collection, id, string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Collection: collection, ID: id}
	}
	p.notify(ctx, collection, id)
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() > 0 {
		p.notify(ctx, collection, id)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, q Query) ([]Document, error) {
	sql, args, err := buildFindSQL(q)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", q.Collection, err)
		}
		doc, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", q.Collection, err)
	}
	return docs, nil
}

func (p *Postgres) Watch(ctx context.Context, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	return p.watch(ctx, q.Collection, "", func(ctx context.Context) error {
		docs, err := p.Find(ctx, q)
		if err != nil {
			return err
		}
		onSnapshot(docs)
		return nil
	}, onError)
}

func (p *Postgres) WatchDocument(ctx context.Context, collection, id string, onChange DocumentFunc, onError ErrorFunc) func() {
	return p.watch(ctx, collection, id, func(ctx context.Context) error {
		doc, err := p.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		onChange(doc)
		return nil
	}, onError)
}

// Close stops every watch and the listener, then closes the pool.
func (p *Postgres) Close() error {
	p.mu.Lock()
	p.closed = true
	watchers := make([]*pgWatch, 0, len(p.watchers))
	for w := range p.watchers {
		watchers = append(watchers, w)
	}
	stopListen, listenDone := p.stopListen, p.listenDone
	p.mu.Unlock()

	for _, w := range watchers {
		w.cancel()
		<-w.finished
	}
	if stopListen != nil {
		stopListen()
		<-listenDone
	}
	p.pool.Close()
	return nil
}

func (p *Postgres) watch(ctx context.Context, collection, id string, deliver func(context.Context) error, onError ErrorFunc) func() {
	ctx, cancel := context.WithCancel(ctx)
	w := &pgWatch{
		collection: collection,
		docID:      id,
		signal:     make(chan struct{}, 1),
		cancel:     cancel,
		finished:   make(chan struct{}),
	}
	w.signal <- struct{}{}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		close(w.finished)
		return func() {}
	}
	p.watchers[w] = struct{}{}
	p.startListenerLocked()
	p.mu.Unlock()

	go p.run(ctx, w, deliver, onError)
	return stopAndWait(cancel, w.finished)
}

// run re-runs deliver whenever the listener signals a matching change.
func (p *Postgres) run(ctx context.Context, w *pgWatch, deliver func(context.Context) error, onError ErrorFunc) {
	defer close(w.finished)
	defer func() {
		p.mu.Lock()
		delete(p.watchers, w)
		p.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
			if err := deliver(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Warn("postgres watch failed", zap.String("collection", w.collection), zap.Error(err))
				if onError != nil {
					onError(err)
				}
				return
			}
		}
	}
}

func (p *Postgres) startListenerLocked() {
	if p.listening {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.listening = true
	p.stopListen = cancel
	p.listenDone = make(chan struct{})
	go p.listen(ctx, p.listenDone)
}

// listen holds the one LISTEN connection and reconnects until ctx ends.
func (p *Postgres) listen(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := p.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("postgres listener disconnected", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryBackoff):
		}
	}
}

// listenOnce wakes every watch once LISTEN is active: changes made before
// that point, or while disconnected, produced no notification.
func (p *Postgres) listenOnce(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return fmt.Errorf("listen %s: %w", changeChannel, err)
	}
	defer func() {
		unlistenCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN "+changeChannel)
	}()

	p.broadcast(func(*pgWatch) bool { return true })
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		collection, id, _ := strings.Cut(n.Payload, "/")
		p.broadcast(func(w *pgWatch) bool {
			return w.collection == collection && (w.docID == "" || w.docID == id)
		})
	}
}

// broadcast wakes every watch that match selects. Pending wakes coalesce.
func (p *Postgres) broadcast(match func(*pgWatch) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for w := range p.watchers {
		if !match(w) {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func (p *Postgres) notify(ctx context.Context, collection, id string) {
	if _, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, changeChannel, collection+"/"+id); err != nil {
		p.log.Warn("failed to publish document change", zap.String("collection", collection), zap.Error(err))
	}
}

func buildFindSQL(q Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	if len(q.Filters) > 0 {
		containment := make(map[string]any, len(q.Filters))
		for _, f := range q.Filters {
			containment[f.Field] = f.Value
		}
		raw, err := json.Marshal(containment)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		args = append(args, string(raw))
		fmt.Fprintf(&sb, ` AND data @> $%d::jsonb`, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data->>$%d %s NULLS LAST, id`, len(args), dir)
	} else {
		sb.WriteString(` ORDER BY id`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	return sb.String(), args, nil
}

func decodeRow(id string, raw []byte) (*Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &Document{ID: id, Data: data}, nil
}
