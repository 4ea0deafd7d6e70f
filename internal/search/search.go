// Package search provides the admin omni-search over inquiries and
// applications and the public insight search.
package search

import (
	"context"
	"strings"

	"github.com/minehubyt/Anand-Pandey/internal/content"
)

// ResultType identifies which collection a hit came from.
type ResultType string

const (
	ResultInsight     ResultType = "insight"
	ResultInquiry     ResultType = "inquiry"
	ResultApplication ResultType = "application"
)

// ParseResultType accepts the query-string form of a type filter.
func ParseResultType(s string) ResultType {
	switch t := ResultType(strings.ToLower(strings.TrimSpace(s))); t {
	case ResultInsight, ResultInquiry, ResultApplication:
		return t
	default:
		return ""
	}
}

// Result is a single search hit.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet,omitempty"`
	Reference string     `json:"reference,omitempty"`
	Status    string     `json:"status,omitempty"`
	Email     string     `json:"email,omitempty"`
}

// Query holds search parameters. An empty Type searches every collection.
type Query struct {
	Text   string
	Type   ResultType
	Limit  int
	Offset int
}

// DefaultLimit applies when Query.Limit is zero.
const DefaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q Query) wants(t ResultType) bool {
	return q.Type == "" || q.Type == t
}

// Response is returned by the search endpoints.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Backend string   `json:"backend"`
}

// InsightRecord is the indexed form of an insight.
type InsightRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Desc     string `json:"desc"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
	Date     string `json:"date"`
}

// InquiryRecord is the indexed form of an inquiry.
type InquiryRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UniqueID string `json:"uniqueId"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Date     string `json:"date"`
}

// ApplicationRecord is the indexed form of a job application.
type ApplicationRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UniqueID string `json:"uniqueId"`
	JobTitle string `json:"jobTitle"`
	Status   string `json:"status"`
	Date     string `json:"date"`
}

// Snapshot is a full image of the searchable collections. A nil slice
// leaves that collection untouched on Replace.
type Snapshot struct {
	Insights     []InsightRecord
	Inquiries    []InquiryRecord
	Applications []ApplicationRecord
}

// Searcher executes queries.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
}

// Indexer keeps a backend in line with the content store.
type Indexer interface {
	ReplaceInsights(ctx context.Context, recs []InsightRecord) error
	ReplaceInquiries(ctx context.Context, recs []InquiryRecord) error
	ReplaceApplications(ctx context.Context, recs []ApplicationRecord) error
}

// Backend is a searchable index.
type Backend interface {
	Searcher
	Indexer
	Healthy() bool
	Name() string
}

// FromInsight converts an insight into its record.
func FromInsight(in content.Insight) InsightRecord {
	return InsightRecord{
		ID:       in.ID,
		Title:    in.Title,
		Desc:     in.Desc,
		Category: in.Category,
		Kind:     string(in.Type),
		Date:     in.Date,
	}
}

// FromInquiry converts an inquiry into its record.
func FromInquiry(iq content.Inquiry) InquiryRecord {
	return InquiryRecord{
		ID:       iq.ID,
		Name:     iq.Name,
		Email:    iq.Email,
		UniqueID: iq.UniqueID,
		Kind:     iq.Type,
		Status:   iq.Status,
		Date:     iq.Date,
	}
}

// FromApplication converts a job application into its record.
func FromApplication(a content.JobApplication) ApplicationRecord {
	return ApplicationRecord{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		UniqueID: a.ReferenceCode,
		JobTitle: a.JobTitle,
		Status:   a.Status,
		Date:     a.SubmittedDate,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
