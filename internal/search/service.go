package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/content"
)

// Service is the facade that tries the primary backend first and falls
// back to the in-process index.
type Service struct {
	primary  Backend
	fallback *Memory
	log      *zap.Logger
}

// NewService creates a search service. primary may be nil when no search
// server is configured.
func NewService(primary Backend, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{primary: primary, fallback: NewMemory(), log: log}
}

// Search answers q from the primary backend when healthy, otherwise from
// the fallback index.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primary != nil && s.primary.Healthy() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Backend: s.primary.Name()}
		}
		s.log.Warn("primary search failed, falling back", zap.Error(err))
	}
	results, total, _ := s.fallback.Search(ctx, q)
	return Response{Results: nonNil(results), Total: total, Backend: s.fallback.Name()}
}

// Apply pushes a snapshot to both indexes. Collections left nil in snap
// are not touched.
func (s *Service) Apply(ctx context.Context, snap Snapshot) {
	for _, b := range s.backends() {
		if snap.Insights != nil {
			s.report(b, "insights", b.ReplaceInsights(ctx, snap.Insights))
		}
		if snap.Inquiries != nil {
			s.report(b, "inquiries", b.ReplaceInquiries(ctx, snap.Inquiries))
		}
		if snap.Applications != nil {
			s.report(b, "applications", b.ReplaceApplications(ctx, snap.Applications))
		}
	}
}

func (s *Service) backends() []Backend {
	bs := []Backend{s.fallback}
	if s.primary != nil && s.primary.Healthy() {
		bs = append(bs, s.primary)
	}
	return bs
}

func (s *Service) report(b Backend, collection string, err error) {
	if err != nil {
		s.log.Warn("search index update failed",
			zap.String("backend", b.Name()),
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
}

// Watch keeps the indexes in line with live content until ctx ends. The
// returned function cancels every subscription.
func (s *Service) Watch(ctx context.Context, svc *content.Service) content.Unsubscribe {
	onErr := func(err error) {
		s.log.Warn("search subscription ended", zap.Error(err))
	}
	unsubs := []content.Unsubscribe{
		svc.SubscribeInsights(ctx, func(items []content.Insight) {
			s.Apply(ctx, Snapshot{Insights: mapSlice(items, FromInsight)})
		}, onErr),
		svc.SubscribeInquiries(ctx, func(items []content.Inquiry) {
			s.Apply(ctx, Snapshot{Inquiries: mapSlice(items, FromInquiry)})
		}, onErr),
		svc.SubscribeAllApplications(ctx, func(items []content.JobApplication) {
			s.Apply(ctx, Snapshot{Applications: mapSlice(items, FromApplication)})
		}, onErr),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Reindex reads every searchable collection once and rebuilds both
// indexes.
func (s *Service) Reindex(ctx context.Context, svc *content.Service) (Snapshot, error) {
	insights, err := svc.ListInsights(ctx, content.InsightFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list insights: %w", err)
	}
	inquiries, err := svc.ListInquiries(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list inquiries: %w", err)
	}
	apps, err := svc.ListApplications(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list applications: %w", err)
	}
	snap := Snapshot{
		Insights:     mapSlice(insights, FromInsight),
		Inquiries:    mapSlice(inquiries, FromInquiry),
		Applications: mapSlice(apps, FromApplication),
	}
	s.Apply(ctx, snap)
	return snap, nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
