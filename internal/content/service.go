package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/docstore"
	"github.com/minehubyt/Anand-Pandey/internal/navigation"
)

// Unsubscribe stops a subscription and waits for a running callback to
// finish. Calling it more than once is safe; calling it from inside the
// callback deadlocks.
type Unsubscribe func()

// ErrorHandler receives the error that ended a subscription.
type ErrorHandler func(error)

// Service reads and writes site content. It holds no cache: every
// subscription callback carries a fresh snapshot.
type Service struct {
	store docstore.Store
	log   *zap.Logger
	now   func() time.Time
	intn  func(int) int

	mu       sync.RWMutex
	practice []PracticeArea
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the creation-timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom overrides the reference-code random source.
func WithRandom(intn func(int) int) Option {
	return func(s *Service) { s.intn = intn }
}

// NewService creates a Service over store.
func NewService(store docstore.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      zap.NewNop(),
		now:      time.Now,
		intn:     rand.IntN,
		practice: DefaultPracticeAreas,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying document store.
func (s *Service) Store() docstore.Store {
	return s.store
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// save replaces the document when id is set, otherwise inserts it.
func (s *Service) save(ctx context.Context, collection, id string, v any) (string, error) {
	data, err := encode(v)
	if err != nil {
		return "", err
	}
	if id != "" {
		if err := s.store.Set(ctx, collection, id, data); err != nil {
			return "", err
		}
		return id, nil
	}
	return s.store.Add(ctx, collection, data)
}

func getOne[T any](ctx context.Context, s *Service, collection, id string) (*T, error) {
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil || doc == nil {
		return nil, err
	}
	var out T
	if err := decode(*doc, "id", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, s *Service, q docstore.Query) ([]T, error) {
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

func watchList[T any](ctx context.Context, s *Service, q docstore.Query, fn func([]T), onErr ErrorHandler) Unsubscribe {
	report := s.reporter(q.Collection, onErr)
	stop := s.store.Watch(ctx, q, func(docs []docstore.Document) {
		items, err := decodeAll[T](docs)
		if err != nil {
			report(err)
			return
		}
		fn(items)
	}, report)
	return Unsubscribe(stop)
}

func (s *Service) reporter(collection string, onErr ErrorHandler) func(error) {
	return func(err error) {
		s.log.Warn("subscription error", zap.String("collection", collection), zap.Error(err))
		if onErr != nil {
			onErr(err)
		}
	}
}

// ---- Hero ----

// DefaultHero is written by SeedHero when no hero exists.
var DefaultHero = Hero{
	Headline:        "Strategic Legal Counsel for a Complex World",
	Subtext:         "Providing precise legal strategy and uncompromising advocacy for global enterprises and individuals.",
	BackgroundImage: "https://images.unsplash.com/photo-1589829545856-d10d557cf95f?auto=format&fit=crop&q=80&w=2400",
	CTAText:         "DISCUSS MANDATE",
}

// SeedHero writes DefaultHero unless a hero document already exists.
func (s *Service) SeedHero(ctx context.Context) (bool, error) {
	data, err := encode(DefaultHero)
	if err != nil {
		return false, err
	}
	created, err := s.store.Create(ctx, CollectionHero, HeroID, data)
	if err != nil {
		return false, fmt.Errorf("failed to seed hero: %w", err)
	}
	if created {
		s.log.Info("seeded hero content")
	}
	return created, nil
}

// GetHero returns nil when no hero exists.
func (s *Service) GetHero(ctx context.Context) (*Hero, error) {
	return getOne[Hero](ctx, s, CollectionHero, HeroID)
}

// SaveHero replaces the singleton.
func (s *Service) SaveHero(ctx context.Context, h Hero) error {
	_, err := s.save(ctx, CollectionHero, HeroID, h)
	return err
}

// SubscribeHero delivers the hero, or nil while none exists.
func (s *Service) SubscribeHero(ctx context.Context, fn func(*Hero), onErr ErrorHandler) Unsubscribe {
	report := s.reporter(CollectionHero, onErr)
	stop := s.store.WatchDocument(ctx, CollectionHero, HeroID, func(doc *docstore.Document) {
		if doc == nil {
			fn(nil)
			return
		}
		var h Hero
		if err := decode(*doc, "id", &h); err != nil {
			report(err)
			return
		}
		fn(&h)
	}, report)
	return Unsubscribe(stop)
}

// ---- Insights ----

// InsightFilter narrows insight listings. Zero values match everything.
type InsightFilter struct {
	Type       InsightType
	Featured   bool
	ShowInHero bool
}

func (f InsightFilter) query() docstore.Query {
	q := docstore.Query{Collection: CollectionInsights, OrderBy: "date", Descending: true}
	if f.Type != "" {
		q = q.Where("type", string(f.Type))
	}
	if f.Featured {
		q = q.Where("isFeatured", true)
	}
	if f.ShowInHero {
		q = q.Where("showInHero", true)
	}
	return q
}

// SubscribeInsights delivers every insight, newest first.
func (s *Service) SubscribeInsights(ctx context.Context, fn func([]Insight), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, InsightFilter{}.query(), fn, onErr)
}

// SubscribeInsightsWhere delivers insights matching f, newest first.
func (s *Service) SubscribeInsightsWhere(ctx context.Context, f InsightFilter, fn func([]Insight), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, f.query(), fn, onErr)
}

// SubscribeHeroInsights delivers insights flagged for the hero carousel.
func (s *Service) SubscribeHeroInsights(ctx context.Context, fn func([]Insight), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, InsightFilter{ShowInHero: true}.query(), fn, onErr)
}

// SubscribeFeaturedInsights delivers featured insights.
func (s *Service) SubscribeFeaturedInsights(ctx context.Context, fn func([]Insight), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, InsightFilter{Featured: true}.query(), fn, onErr)
}

// ListInsights returns insights matching f, newest first.
func (s *Service) ListInsights(ctx context.Context, f InsightFilter) ([]Insight, error) {
	return findAll[Insight](ctx, s, f.query())
}

// GetInsight returns nil when absent.
func (s *Service) GetInsight(ctx context.Context, id string) (*Insight, error) {
	return getOne[Insight](ctx, s, CollectionInsights, id)
}

// FindInsightBySlug resolves a path segment that is either an insight id or
// the slug of its title. When titles collide the newest insight owns the
// slug; InsightRef gives the others their id path.
func (s *Service) FindInsightBySlug(ctx context.Context, slugOrID string) (*Insight, error) {
	if slugOrID == "" {
		return nil, nil
	}
	if in, err := s.GetInsight(ctx, slugOrID); err != nil || in != nil {
		return in, err
	}
	all, err := s.ListInsights(ctx, InsightFilter{})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if navigation.Slugify(all[i].Title) == slugOrID {
			return &all[i], nil
		}
	}
	return nil, nil
}

// InsightRef returns the path segment that addresses in: the slug of its
// title when no other insight shares that slug, otherwise its id.
func (s *Service) InsightRef(ctx context.Context, in *Insight) (string, error) {
	slug := navigation.Slugify(in.Title)
	if slug == "" {
		return in.ID, nil
	}
	if other, err := s.GetInsight(ctx, slug); err != nil {
		return "", err
	} else if other != nil && other.ID != in.ID {
		return in.ID, nil
	}
	all, err := s.ListInsights(ctx, InsightFilter{})
	if err != nil {
		return "", err
	}
	for i := range all {
		if all[i].ID != in.ID && navigation.Slugify(all[i].Title) == slug {
			return in.ID, nil
		}
	}
	return slug, nil
}

// SaveInsight replaces by id or inserts with the current date.
func (s *Service) SaveInsight(ctx context.Context, in Insight) (string, error) {
	if in.ID == "" {
		in.Date = s.timestamp()
	}
	return s.save(ctx, CollectionInsights, in.ID, in)
}

// DeleteInsight is idempotent.
func (s *Service) DeleteInsight(ctx context.Context, id string) error {
	return s.store.Delete(ctx, CollectionInsights, id)
}

// ---- Authors ----

func (s *Service) SubscribeAuthors(ctx context.Context, fn func([]Author), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, docstore.Query{Collection: CollectionAuthors}, fn, onErr)
}

func (s *Service) ListAuthors(ctx context.Context) ([]Author, error) {
	return findAll[Author](ctx, s, docstore.Query{Collection: CollectionAuthors})
}

func (s *Service) GetAuthor(ctx context.Context, id string) (*Author, error) {
	return getOne[Author](ctx, s, CollectionAuthors, id)
}

func (s *Service) SaveAuthor(ctx context.Context, a Author) (string, error) {
	return s.save(ctx, CollectionAuthors, a.ID, a)
}

func (s *Service) DeleteAuthor(ctx context.Context, id string) error {
	return s.store.Delete(ctx, CollectionAuthors, id)
}

// ---- Offices ----

func (s *Service) SubscribeOffices(ctx context.Context, fn func([]Office), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, docstore.Query{Collection: CollectionOffices}, fn, onErr)
}

func (s *Service) ListOffices(ctx context.Context) ([]Office, error) {
	return findAll[Office](ctx, s, docstore.Query{Collection: CollectionOffices})
}

func (s *Service) SaveOffice(ctx context.Context, o Office) (string, error) {
	return s.save(ctx, CollectionOffices, o.ID, o)
}

func (s *Service) DeleteOffice(ctx context.Context, id string) error {
	return s.store.Delete(ctx, CollectionOffices, id)
}

// ---- Events ----

func eventsQuery() docstore.Query {
	return docstore.Query{Collection: CollectionEvents, OrderBy: "date", Descending: true}
}

func (s *Service) SubscribeEvents(ctx context.Context, fn func([]Event), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, eventsQuery(), fn, onErr)
}

func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	return findAll[Event](ctx, s, eventsQuery())
}

func (s *Service) SaveEvent(ctx context.Context, e Event) (string, error) {
	return s.save(ctx, CollectionEvents, e.ID, e)
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.store.Delete(ctx, CollectionEvents, id)
}

// ---- Jobs ----

func activeJobsQuery() docstore.Query {
	return docstore.Query{Collection: CollectionJobs, OrderBy: "postedDate", Descending: true}.Where("status", string(JobActive))
}

func allJobsQuery() docstore.Query {
	return docstore.Query{Collection: CollectionJobs, OrderBy: "postedDate", Descending: true}
}

// SubscribeJobs delivers open listings only.
func (s *Service) SubscribeJobs(ctx context.Context, fn func([]Job), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, activeJobsQuery(), fn, onErr)
}

// SubscribeAllJobs delivers every listing for the admin editor.
func (s *Service) SubscribeAllJobs(ctx context.Context, fn func([]Job), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, allJobsQuery(), fn, onErr)
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	return findAll[Job](ctx, s, activeJobsQuery())
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return getOne[Job](ctx, s, CollectionJobs, id)
}

// SaveJob replaces by id or inserts with the current posting date. New
// listings default to active.
func (s *Service) SaveJob(ctx context.Context, j Job) (string, error) {
	if j.Status == "" {
		j.Status = JobActive
	}
	if j.ID == "" {
		j.PostedDate = s.timestamp()
	}
	return s.save(ctx, CollectionJobs, j.ID, j)
}

func (s *Service) DeleteJob(ctx context.Context, id string) error {
	return s.store.Delete(ctx, CollectionJobs, id)
}

// ---- Applications ----

func applicationsQuery() docstore.Query {
	return docstore.Query{Collection: CollectionApplications, OrderBy: "submittedDate", Descending: true}
}

// SubmitApplication stores app with a fresh reference code, the Received
// status and the submission time.
func (s *Service) SubmitApplication(ctx context.Context, app JobApplication) (*JobApplication, error) {
	app.ID = ""
	app.Status = ApplicationReceived
	app.ReferenceCode = NewReferenceCode(ApplicationPrefix, s.intn)
	app.SubmittedDate = s.timestamp()
	id, err := s.save(ctx, CollectionApplications, "", app)
	if err != nil {
		return nil, fmt.Errorf("failed to submit application: %w", err)
	}
	app.ID = id
	return &app, nil
}

func (s *Service) GetApplication(ctx context.Context, id string) (*JobApplication, error) {
	return getOne[JobApplication](ctx, s, CollectionApplications, id)
}

// SubscribeUserApplications delivers one user's applications, newest first.
func (s *Service) SubscribeUserApplications(ctx context.Context, userID string, fn func([]JobApplication), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, applicationsQuery().Where("userId", userID), fn, onErr)
}

func (s *Service) SubscribeAllApplications(ctx context.Context, fn func([]JobApplication), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, applicationsQuery(), fn, onErr)
}

func (s *Service) ListUserApplications(ctx context.Context, userID string) ([]JobApplication, error) {
	return findAll[JobApplication](ctx, s, applicationsQuery().Where("userId", userID))
}

func (s *Service) ListApplications(ctx context.Context) ([]JobApplication, error) {
	return findAll[JobApplication](ctx, s, applicationsQuery())
}

// UpdateApplicationStatus sets the status field. Any known status may follow
// any other here; transition rules belong to the caller.
func (s *Service) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	if !ApplicationTransitions.Known(status) {
		return &ErrInvalidStatus{Collection: CollectionApplications, Status: status}
	}
	return s.store.Update(ctx, CollectionApplications, id, map[string]any{"status": status})
}

// ---- Inquiries ----

func inquiriesQuery() docstore.Query {
	return docstore.Query{Collection: CollectionInquiries, OrderBy: "date", Descending: true}
}

// AddInquiry stores in with a fresh reference code, the new status and the
// submission time, and returns the stored record.
func (s *Service) AddInquiry(ctx context.Context, in Inquiry) (*Inquiry, error) {
	in.ID = ""
	in.Status = InquiryNew
	in.UniqueID = NewReferenceCode(InquiryPrefix, s.intn)
	in.Date = s.timestamp()
	id, err := s.save(ctx, CollectionInquiries, "", in)
	if err != nil {
		return nil, fmt.Errorf("failed to add inquiry: %w", err)
	}
	in.ID = id
	return &in, nil
}

func (s *Service) GetInquiry(ctx context.Context, id string) (*Inquiry, error) {
	return getOne[Inquiry](ctx, s, CollectionInquiries, id)
}

func (s *Service) SubscribeInquiries(ctx context.Context, fn func([]Inquiry), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, inquiriesQuery(), fn, onErr)
}

func (s *Service) SubscribeUserInquiries(ctx context.Context, userID string, fn func([]Inquiry), onErr ErrorHandler) Unsubscribe {
	return watchList(ctx, s, inquiriesQuery().Where("userId", userID), fn, onErr)
}

func (s *Service) ListInquiries(ctx context.Context) ([]Inquiry, error) {
	return findAll[Inquiry](ctx, s, inquiriesQuery())
}

func (s *Service) ListUserInquiries(ctx context.Context, userID string) ([]Inquiry, error) {
	return findAll[Inquiry](ctx, s, inquiriesQuery().Where("userId", userID))
}

// UpdateInquiryStatus sets the status field; see UpdateApplicationStatus.
func (s *Service) UpdateInquiryStatus(ctx context.Context, id, status string) error {
	if !InquiryTransitions.Known(status) {
		return &ErrInvalidStatus{Collection: CollectionInquiries, Status: status}
	}
	return s.store.Update(ctx, CollectionInquiries, id, map[string]any{"status": status})
}

// ---- Users ----

// SaveUserProfile replaces the profile keyed by UID.
func (s *Service) SaveUserProfile(ctx context.Context, p UserProfile) error {
	if p.UID == "" {
		return fmt.Errorf("user profile requires a uid")
	}
	data, err := encode(p)
	if err != nil {
		return err
	}
	delete(data, "uid")
	return s.store.Set(ctx, CollectionUsers, p.UID, data)
}

// GetUserProfile returns nil when absent.
func (s *Service) GetUserProfile(ctx context.Context, uid string) (*UserProfile, error) {
	doc, err := s.store.Get(ctx, CollectionUsers, uid)
	if err != nil || doc == nil {
		return nil, err
	}
	var p UserProfile
	if err := decode(*doc, "uid", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserByEmail returns nil when no profile has that email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*UserProfile, error) {
	docs, err := s.store.Find(ctx, docstore.Query{Collection: CollectionUsers, Limit: 1}.Where("email", email))
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	var p UserProfile
	if err := decode(docs[0], "uid", &p); err != nil {
		return nil, err
	}
	return &p, nil
}
