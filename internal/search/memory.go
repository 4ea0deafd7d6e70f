package search

import (
	"context"
	"strings"
	"sync"
)

// Memory is the in-process substring index. Matching is case-insensitive
// on name, reference and email for inquiries and applications, and on
// title and description for insights.
type Memory struct {
	mu           sync.RWMutex
	insights     []InsightRecord
	inquiries    []InquiryRecord
	applications []ApplicationRecord
}

// NewMemory creates an empty index.
func NewMemory() *Memory {
	return &Memory{}
}

// Name identifies the backend in responses.
func (m *Memory) Name() string { return "memory" }

// Healthy is always true.
func (m *Memory) Healthy() bool { return true }

// ReplaceInsights swaps the insight set.
func (m *Memory) ReplaceInsights(_ context.Context, recs []InsightRecord) error {
	m.mu.Lock()
	m.insights = append([]InsightRecord(nil), recs...)
	m.mu.Unlock()
	return nil
}

// ReplaceInquiries swaps the inquiry set.
func (m *Memory) ReplaceInquiries(_ context.Context, recs []InquiryRecord) error {
	m.mu.Lock()
	m.inquiries = append([]InquiryRecord(nil), recs...)
	m.mu.Unlock()
	return nil
}

// ReplaceApplications swaps the application set.
func (m *Memory) ReplaceApplications(_ context.Context, recs []ApplicationRecord) error {
	m.mu.Lock()
	m.applications = append([]ApplicationRecord(nil), recs...)
	m.mu.Unlock()
	return nil
}

// Search returns every record containing the query text. An empty query
// matches everything, as the admin list does before anything is typed.
func (m *Memory) Search(_ context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	m.mu.RLock()
	var all []Result
	if q.wants(ResultInquiry) {
		for _, r := range m.inquiries {
			if contains(needle, r.Name, r.UniqueID, r.Email) {
				all = append(all, Result{
					Type: ResultInquiry, ID: r.ID, Title: r.Name,
					Snippet: r.Kind, Reference: r.UniqueID, Status: r.Status, Email: r.Email,
				})
			}
		}
	}
	if q.wants(ResultApplication) {
		for _, r := range m.applications {
			if contains(needle, r.Name, r.UniqueID, r.Email) {
				all = append(all, Result{
					Type: ResultApplication, ID: r.ID, Title: r.Name,
					Snippet: r.JobTitle, Reference: r.UniqueID, Status: r.Status, Email: r.Email,
				})
			}
		}
	}
	if q.wants(ResultInsight) {
		for _, r := range m.insights {
			if contains(needle, r.Title, r.Desc) {
				all = append(all, Result{
					Type: ResultInsight, ID: r.ID, Title: r.Title, Snippet: r.Desc,
				})
			}
		}
	}
	m.mu.RUnlock()

	total := len(all)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := min(q.Offset+q.limit(), total)
	return all[q.Offset:end], total, nil
}

func contains(needle string, fields ...string) bool {
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
