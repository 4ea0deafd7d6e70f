package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	idxInsights     = "akp_insights"
	idxInquiries    = "akp_inquiries"
	idxApplications = "akp_applications"
)

// HealthInterval is how often Meili re-checks the server.
const HealthInterval = 10 * time.Second

// Meili implements Backend via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	log     *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
	once    sync.Once

	// ids remembers what each index holds so Replace can drop stale hits.
	mu  sync.Mutex
	ids map[string]map[string]struct{}
}

// NewMeili connects to Meilisearch and configures the indexes. The
// returned value is usable even when the server is down; Healthy reports
// false until it comes back.
func NewMeili(url, apiKey string, log *zap.Logger) *Meili {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		log:    log,
		done:   make(chan struct{}),
		ids:    make(map[string]map[string]struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		log.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

type indexSpec struct {
	uid        string
	filterable []string
	searchable []string
}

var indexSpecs = []indexSpec{
	{uid: idxInsights, filterable: []string{"kind", "category"}, searchable: []string{"title", "desc"}},
	{uid: idxInquiries, filterable: []string{"kind", "status"}, searchable: []string{"name", "uniqueId", "email"}},
	{uid: idxApplications, filterable: []string{"status"}, searchable: []string{"name", "uniqueId", "email", "jobTitle"}},
}

func (m *Meili) configureIndexes() {
	for _, def := range indexSpecs {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: def.uid, PrimaryKey: "id"}); err != nil {
			m.log.Debug("create index (may already exist)", zap.String("index", def.uid), zap.Error(err))
		}
		index := m.client.Index(def.uid)
		filterable := make([]interface{}, len(def.filterable))
		for i, v := range def.filterable {
			filterable[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.log.Warn("update filterable attributes", zap.String("index", def.uid), zap.Error(err))
		}
		searchable := def.searchable
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			m.log.Warn("update searchable attributes", zap.String("index", def.uid), zap.Error(err))
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			was := m.healthy.Swap(err == nil)
			if err == nil && !was {
				m.log.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the health monitor.
func (m *Meili) Close() {
	m.once.Do(func() { close(m.done) })
}

// Name identifies the backend in responses.
func (m *Meili) Name() string { return "meilisearch" }

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search runs one multi-search across the requested indexes.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	targets := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxInquiries, ResultInquiry},
		{idxApplications, ResultApplication},
		{idxInsights, ResultInsight},
	}
	var queries []*meili.SearchRequest
	for _, t := range targets {
		if !q.wants(t.rtyp) {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              t.uid,
			Query:                 q.Text,
			Limit:                 int64(q.limit()),
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		})
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}
	return results, total, nil
}

// ReplaceInsights upserts recs and drops insights no longer present.
func (m *Meili) ReplaceInsights(_ context.Context, recs []InsightRecord) error {
	return replace(m, idxInsights, recs, func(r InsightRecord) string { return r.ID })
}

// ReplaceInquiries upserts recs and drops inquiries no longer present.
func (m *Meili) ReplaceInquiries(_ context.Context, recs []InquiryRecord) error {
	return replace(m, idxInquiries, recs, func(r InquiryRecord) string { return r.ID })
}

// ReplaceApplications upserts recs and drops applications no longer present.
func (m *Meili) ReplaceApplications(_ context.Context, recs []ApplicationRecord) error {
	return replace(m, idxApplications, recs, func(r ApplicationRecord) string { return r.ID })
}

func replace[T any](m *Meili, uid string, recs []T, id func(T) string) error {
	if !m.healthy.Load() {
		return fmt.Errorf("meilisearch unhealthy")
	}
	index := m.client.Index(uid)

	next := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		next[id(r)] = struct{}{}
	}
	if len(recs) > 0 {
		if _, err := index.AddDocuments(recs, nil); err != nil {
			return fmt.Errorf("index %s: %w", uid, err)
		}
	}

	m.mu.Lock()
	prev := m.ids[uid]
	m.ids[uid] = next
	m.mu.Unlock()

	for stale := range prev {
		if _, ok := next[stale]; ok {
			continue
		}
		if _, err := index.DeleteDocument(stale, nil); err != nil {
			return fmt.Errorf("delete %s from %s: %w", stale, uid, err)
		}
	}
	return nil
}

func indexResultType(uid string) ResultType {
	switch uid {
	case idxInsights:
		return ResultInsight
	case idxInquiries:
		return ResultInquiry
	case idxApplications:
		return ResultApplication
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{
		Type:   rtyp,
		ID:     decodeString(hit, "id"),
		Status: decodeString(hit, "status"),
		Email:  decodeString(hit, "email"),
	}
	switch rtyp {
	case ResultInsight:
		r.Title = firstNonBlank(decodeFormatted(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormatted(hit, "desc"), decodeString(hit, "desc"))
	case ResultInquiry:
		r.Title = firstNonBlank(decodeFormatted(hit, "name"), decodeString(hit, "name"))
		r.Snippet = decodeString(hit, "kind")
		r.Reference = decodeString(hit, "uniqueId")
	case ResultApplication:
		r.Title = firstNonBlank(decodeFormatted(hit, "name"), decodeString(hit, "name"))
		r.Snippet = decodeString(hit, "jobTitle")
		r.Reference = decodeString(hit, "uniqueId")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeFormatted(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
