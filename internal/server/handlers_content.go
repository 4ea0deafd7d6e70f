package server

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/search"
	"github.com/minehubyt/Anand-Pandey/internal/server/middleware"
)

func (s *Server) handleHero(w http.ResponseWriter, r *http.Request) {
	hero, err := s.deps.Content.GetHero(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if hero == nil {
		s.fail(w, r, &ErrNotFound{What: "hero", ID: content.HeroID})
		return
	}
	s.jsonResponse(w, http.StatusOK, hero)
}

// insightFilter reads ?type=, ?featured= and ?hero= from the query string.
func insightFilter(r *http.Request) content.InsightFilter {
	q := r.URL.Query()
	featured, _ := strconv.ParseBool(q.Get("featured"))
	hero, _ := strconv.ParseBool(q.Get("hero"))
	return content.InsightFilter{
		Type:       content.InsightType(q.Get("type")),
		Featured:   featured,
		ShowInHero: hero,
	}
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.deps.Content.ListInsights(r.Context(), insightFilter(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(insights))
}

// handleInsight accepts an id or a title slug.
func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in, err := s.deps.Content.FindInsightBySlug(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if in == nil {
		s.fail(w, r, &ErrNotFound{What: "insight", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, in)
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.deps.Content.ListAuthors(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(authors))
}

func (s *Server) handleOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := s.deps.Content.ListOffices(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(offices))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Content.ListEvents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(events))
}

// handleJobs lists active openings.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Content.ListJobs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, nonNilSlice(jobs))
}

func (s *Server) handlePracticeAreas(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.deps.Content.PracticeAreas())
}

func (s *Server) handleSearchInsights(w http.ResponseWriter, r *http.Request) {
	q := searchQuery(r)
	q.Type = search.ResultInsight
	s.jsonResponse(w, http.StatusOK, s.searcher().Search(r.Context(), q))
}

// searcher falls back to an in-process index when no search service is
// wired, loading it from the store on first use.
func (s *Server) searcher() *search.Service {
	s.searchOnce.Do(func() {
		if s.deps.Search != nil {
			return
		}
		svc := search.NewService(nil, s.log)
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if _, err := svc.Reindex(ctx, s.deps.Content); err != nil {
			s.log.Warn("failed to build search index", zap.Error(err))
		}
		s.stopSearch = svc.Watch(context.Background(), s.deps.Content)
		s.deps.Search = svc
	})
	return s.deps.Search
}

func searchQuery(r *http.Request) search.Query {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	typ := search.ParseResultType(q.Get("type"))
	return search.Query{Text: q.Get("q"), Type: typ, Limit: limit, Offset: offset}
}

// handleStream pushes a snapshot event on every change to a collection
// until the client disconnects. Inquiries and applications are staff-only;
// signed-in users get their own records from the mine=true variant.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := r.PathValue("collection")
	user := middleware.GetIdentity(r)
	mine := r.URL.Query().Get("mine") == "true"

	var sse *SSEWriter
	send := func(v any) {
		if err := sse.WriteSnapshot(v); err != nil {
			s.log.Debug("stream write failed", zap.String("collection", collection), zap.Error(err))
		}
	}
	onErr := func(err error) {
		s.log.Warn("stream subscription failed", zap.String("collection", collection), zap.Error(err))
		sse.WriteError(connectionMessage)
	}

	var subscribe func() content.Unsubscribe
	svc := s.deps.Content
	switch collection {
	case content.CollectionHero:
		subscribe = func() content.Unsubscribe {
			return svc.SubscribeHero(ctx, func(h *content.Hero) { send(h) }, onErr)
		}
	case content.CollectionInsights:
		f := insightFilter(r)
		subscribe = func() content.Unsubscribe {
			return svc.SubscribeInsightsWhere(ctx, f, func(v []content.Insight) { send(nonNilSlice(v)) }, onErr)
		}
	case content.CollectionAuthors:
		subscribe = func() content.Unsubscribe {
			return svc.SubscribeAuthors(ctx, func(v []content.Author) { send(nonNilSlice(v)) }, onErr)
		}
	case content.CollectionOffices:
		subscribe = func() content.Unsubscribe {
			return svc.SubscribeOffices(ctx, func(v []content.Office) { send(nonNilSlice(v)) }, onErr)
		}
	case content.CollectionEvents:
		subscribe = func() content.Unsubscribe {
			return svc.SubscribeEvents(ctx, func(v []content.Event) { send(nonNilSlice(v)) }, onErr)
		}
	case content.CollectionJobs:
		all := user.IsAdmin() && r.URL.Query().Get("all") == "true"
		subscribe = func() content.Unsubscribe {
			fn := func(v []content.Job) { send(nonNilSlice(v)) }
			if all {
				return svc.SubscribeAllJobs(ctx, fn, onErr)
			}
			return svc.SubscribeJobs(ctx, fn, onErr)
		}
	case content.CollectionInquiries, content.CollectionApplications:
		switch {
		case mine && user != nil:
		case user.IsAdmin():
		case user == nil:
			s.errorResponse(w, http.StatusUnauthorized, "authentication required")
			return
		default:
			s.errorResponse(w, http.StatusForbidden, "admin access required")
			return
		}
		subscribe = s.privateStream(ctx, collection, user.UID, mine, send, onErr)
	default:
		s.fail(w, r, &ErrNotFound{What: "collection", ID: collection})
		return
	}

	var err error
	sse, err = NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	defer sse.Close()
	unsubscribe := subscribe()
	defer unsubscribe()
	<-ctx.Done()
}

func (s *Server) privateStream(ctx context.Context, collection, uid string, mine bool, send func(any), onErr content.ErrorHandler) func() content.Unsubscribe {
	svc := s.deps.Content
	if collection == content.CollectionInquiries {
		fn := func(v []content.Inquiry) { send(nonNilSlice(v)) }
		return func() content.Unsubscribe {
			if mine {
				return svc.SubscribeUserInquiries(ctx, uid, fn, onErr)
			}
			return svc.SubscribeInquiries(ctx, fn, onErr)
		}
	}
	fn := func(v []content.JobApplication) { send(nonNilSlice(v)) }
	return func() content.Unsubscribe {
		if mine {
			return svc.SubscribeUserApplications(ctx, uid, fn, onErr)
		}
		return svc.SubscribeAllApplications(ctx, fn, onErr)
	}
}

// nonNilSlice keeps empty collections encoding as [] rather than null.
func nonNilSlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
