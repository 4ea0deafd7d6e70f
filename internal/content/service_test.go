package content

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/minehubyt/Anand-Pandey/internal/docstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store := docstore.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(store, opts...)
}

// latest keeps the most recent subscription snapshot.
type latest[T any] struct {
	mu    sync.Mutex
	calls int
	value T
}

func (l *latest[T]) set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.value = v
}

func (l *latest[T]) get() (T, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.calls
}

func TestSeedHero_OnlyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.SeedHero(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, svc.SaveHero(ctx, Hero{Headline: "Edited"}))

	created, err = svc.SeedHero(ctx)
	require.NoError(t, err)
	assert.False(t, created, "seed must not overwrite an edited hero")

	hero, err := svc.GetHero(ctx)
	require.NoError(t, err)
	require.NotNil(t, hero)
	assert.Equal(t, "Edited", hero.Headline)
	assert.Equal(t, HeroID, hero.ID)
}

func TestSaveInsight_InsertStampsDateAndReplaceKeepsID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	id, err := svc.SaveInsight(ctx, Insight{Type: InsightTypeArticles, Title: "GST Reform", Desc: "short"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := svc.GetInsight(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fixedNow.Format(time.RFC3339), got.Date)

	// Full replace: fields omitted from the update are gone.
	_, err = svc.SaveInsight(ctx, Insight{ID: id, Type: InsightTypeArticles, Title: "GST Reform 2.0", Date: got.Date})
	require.NoError(t, err)

	got, err = svc.GetInsight(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "GST Reform 2.0", got.Title)
	assert.Empty(t, got.Desc)
}

func TestSubscribeInsights_AdminEditReachesSubscriber(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.SaveInsight(ctx, Insight{ID: "x", Type: InsightTypeInsights, Title: "Before", Date: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	var seen latest[[]Insight]
	unsubscribe := svc.SubscribeInsights(ctx, seen.set, nil)
	defer unsubscribe()

	require.Eventually(t, func() bool {
		v, _ := seen.get()
		return len(v) == 1 && v[0].Title == "Before"
	}, time.Second, 5*time.Millisecond)

	_, err = svc.SaveInsight(ctx, Insight{ID: "x", Type: InsightTypeInsights, Title: "After", Date: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, _ := seen.get()
		return len(v) == 1 && v[0].Title == "After" && v[0].ID == "x"
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeFeaturedAndHeroInsights(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, in := range []Insight{
		{ID: "a", Type: InsightTypeInsights, Title: "A", Date: "2025-01-01T00:00:00Z", IsFeatured: true},
		{ID: "b", Type: InsightTypeReports, Title: "B", Date: "2025-02-01T00:00:00Z", ShowInHero: true},
		{ID: "c", Type: InsightTypePodcasts, Title: "C", Date: "2025-03-01T00:00:00Z", IsFeatured: true, ShowInHero: true},
	} {
		_, err := svc.SaveInsight(ctx, in)
		require.NoError(t, err)
	}

	var featured, hero latest[[]Insight]
	stopFeatured := svc.SubscribeFeaturedInsights(ctx, featured.set, nil)
	defer stopFeatured()
	stopHero := svc.SubscribeHeroInsights(ctx, hero.set, nil)
	defer stopHero()

	require.Eventually(t, func() bool {
		f, fc := featured.get()
		h, hc := hero.get()
		return fc > 0 && hc > 0 && len(f) == 2 && len(h) == 2
	}, time.Second, 5*time.Millisecond)

	f, _ := featured.get()
	h, _ := hero.get()
	assert.Equal(t, "c", f[0].ID, "newest first")
	assert.Equal(t, "a", f[1].ID)
	assert.Equal(t, "c", h[0].ID)
	assert.Equal(t, "b", h[1].ID)

	podcasts, err := svc.ListInsights(ctx, InsightFilter{Type: InsightTypePodcasts})
	require.NoError(t, err)
	require.Len(t, podcasts, 1)
	assert.Equal(t, "c", podcasts[0].ID)
}

func TestFindInsightBySlug(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.SaveInsight(ctx, Insight{ID: "abc123", Type: InsightTypeArticles, Title: "Arbitration in India: 2025 Outlook"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{name: "by id", input: "abc123", wantID: "abc123"},
		{name: "by slug", input: "arbitration-in-india-2025-outlook", wantID: "abc123"},
		{name: "unknown", input: "missing-article", wantID: ""},
		{name: "empty", input: "", wantID: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FindInsightBySlug(ctx, tt.input)
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestInsightRef(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	save := func(in Insight) *Insight {
		t.Helper()
		in.Type = InsightTypeArticles
		_, err := svc.SaveInsight(ctx, in)
		require.NoError(t, err)
		return &in
	}
	unique := save(Insight{ID: "u1", Title: "Shipping Disputes", Date: "2025-01-01T00:00:00Z"})
	older := save(Insight{ID: "o1", Title: "Budget 2025", Date: "2025-02-01T00:00:00Z"})
	newer := save(Insight{ID: "n1", Title: "Budget 2025!", Date: "2025-03-01T00:00:00Z"})
	symbols := save(Insight{ID: "s1", Title: "???", Date: "2025-01-05T00:00:00Z"})

	tests := []struct {
		name string
		in   *Insight
		want string
	}{
		{name: "unique title uses slug", in: unique, want: "shipping-disputes"},
		{name: "colliding older uses id", in: older, want: "o1"},
		{name: "colliding newer uses id", in: newer, want: "n1"},
		{name: "empty slug uses id", in: symbols, want: "s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.InsightRef(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			found, err := svc.FindInsightBySlug(ctx, got)
			require.NoError(t, err)
			require.NotNil(t, found, "every insight stays reachable through its ref")
			assert.Equal(t, tt.in.ID, found.ID)
		})
	}
}

func TestInsightRef_SlugTakenByAnotherID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.SaveInsight(ctx, Insight{ID: "tax-guide", Type: InsightTypeArticles, Title: "Something Else"})
	require.NoError(t, err)
	in := Insight{ID: "x9", Type: InsightTypeArticles, Title: "Tax Guide"}
	_, err = svc.SaveInsight(ctx, in)
	require.NoError(t, err)

	got, err := svc.InsightRef(ctx, &in)
	require.NoError(t, err)
	assert.Equal(t, "x9", got)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	id, err := svc.SaveAuthor(ctx, Author{Name: "A. K. Pandey"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAuthor(ctx, id))
	require.NoError(t, svc.DeleteAuthor(ctx, id))
	require.NoError(t, svc.DeleteOffice(ctx, "never-existed"))

	authors, err := svc.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestSubscribeJobs_ActiveOnly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	openID, err := svc.SaveJob(ctx, Job{Title: "Associate, Litigation"})
	require.NoError(t, err)
	_, err = svc.SaveJob(ctx, Job{Title: "Paralegal", Status: JobClosed})
	require.NoError(t, err)

	var jobs latest[[]Job]
	stop := svc.SubscribeJobs(ctx, jobs.set, nil)
	defer stop()

	require.Eventually(t, func() bool {
		v, calls := jobs.get()
		return calls > 0 && len(v) == 1
	}, time.Second, 5*time.Millisecond)
	v, _ := jobs.get()
	assert.Equal(t, openID, v[0].ID)
	assert.Equal(t, JobActive, v[0].Status)
	assert.Equal(t, fixedNow.Format(time.RFC3339), v[0].PostedDate)
}

func TestAddInquiry_InitialisesTrackingFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, WithRandom(func(n int) int { return 23456 }))

	in, err := svc.AddInquiry(ctx, Inquiry{
		Type:   InquiryAppointment,
		Name:   "Ravi",
		Email:  "ravi@example.com",
		Status: InquiryArchived,
		Details: InquiryDetails{
			PreferredDate: "2025-06-10",
			Query:         "Dispute with a supplier over unpaid invoices",
			AIAnalysis:    &Analysis{SuggestedPracticeArea: "Civil Litigation", Urgency: "Medium", BriefAdvice: "Preserve all invoices."},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "AKP-123456", in.UniqueID)
	assert.Equal(t, InquiryNew, in.Status, "caller-provided status is ignored")
	assert.Equal(t, fixedNow.Format(time.RFC3339), in.Date)

	stored, err := svc.GetInquiry(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, *in, *stored)
}

func TestSubmitApplication_AndUserScopedSubscription(t *testing.T) {
	ctx := context.Background()
	var clock = fixedNow
	svc := newTestService(t, WithClock(func() time.Time { return clock }))

	first, err := svc.SubmitApplication(ctx, JobApplication{JobID: "j1", JobTitle: "Associate", UserID: "u1", Name: "Meera", Email: "meera@example.com"})
	require.NoError(t, err)
	assert.Equal(t, ApplicationReceived, first.Status)
	assert.True(t, IsReferenceCode(first.ReferenceCode))
	assert.Regexp(t, `^APP-\d{6}$`, first.ReferenceCode)

	clock = fixedNow.Add(time.Hour)
	second, err := svc.SubmitApplication(ctx, JobApplication{JobID: "j2", JobTitle: "Counsel", UserID: "u1", Name: "Meera", Email: "meera@example.com"})
	require.NoError(t, err)
	_, err = svc.SubmitApplication(ctx, JobApplication{JobID: "j1", UserID: "u2", Name: "Other", Email: "o@example.com"})
	require.NoError(t, err)

	var apps latest[[]JobApplication]
	stop := svc.SubscribeUserApplications(ctx, "u1", apps.set, nil)
	defer stop()

	require.Eventually(t, func() bool {
		v, _ := apps.get()
		return len(v) == 2
	}, time.Second, 5*time.Millisecond)
	v, _ := apps.get()
	assert.Equal(t, second.ID, v[0].ID, "newest first")
	assert.Equal(t, first.ID, v[1].ID)
}

func TestUpdateStatus_AnyKnownStatusAccepted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	in, err := svc.AddInquiry(ctx, Inquiry{Type: InquiryContact, Name: "N", Email: "n@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateInquiryStatus(ctx, in.ID, InquiryArchived))
	require.NoError(t, svc.UpdateInquiryStatus(ctx, in.ID, InquiryNew), "this layer does not enforce transitions")

	err = svc.UpdateInquiryStatus(ctx, in.ID, "deleted")
	var invalid *ErrInvalidStatus
	require.ErrorAs(t, err, &invalid)

	err = svc.UpdateApplicationStatus(ctx, "missing", ApplicationInterview)
	var notFound *docstore.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestUserProfiles(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.Error(t, svc.SaveUserProfile(ctx, UserProfile{Email: "x@example.com"}))

	profile := UserProfile{UID: "u1", Email: "asha@example.com", DisplayName: "Asha", Role: "applicant", PasswordHash: "hash", CreatedAt: "2025-01-01T00:00:00Z"}
	require.NoError(t, svc.SaveUserProfile(ctx, profile))

	got, err := svc.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &profile, got)

	byEmail, err := svc.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "u1", byEmail.UID)

	none, err := svc.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	assert.Empty(t, got.Public().PasswordHash)
}

func TestSubscribeHero_DeliversNilThenValue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var hero latest[*Hero]
	stop := svc.SubscribeHero(ctx, hero.set, nil)
	defer stop()

	require.Eventually(t, func() bool {
		_, calls := hero.get()
		return calls == 1
	}, time.Second, 5*time.Millisecond)
	v, _ := hero.get()
	assert.Nil(t, v)

	_, err := svc.SeedHero(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, _ := hero.get()
		return v != nil && v.CTAText == "DISCUSS MANDATE"
	}, time.Second, 5*time.Millisecond)
}

// failingStore reports an error on every watch.
type failingStore struct {
	docstore.Store
	err error
}

func (f *failingStore) Watch(_ context.Context, _ docstore.Query, _ docstore.SnapshotFunc, onError docstore.ErrorFunc) func() {
	onError(f.err)
	return func() {}
}

func TestSubscribe_ErrorChannel(t *testing.T) {
	svc := NewService(&failingStore{err: assert.AnError})

	var got error
	stop := svc.SubscribeAuthors(context.Background(), func([]Author) {
		t.Fatal("no snapshot expected")
	}, func(err error) { got = err })
	defer stop()

	assert.ErrorIs(t, got, assert.AnError)
}

func TestUnsubscribe_WaitsForRunningCallback(t *testing.T) {
	svc := newTestService(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	unsubscribe := svc.SubscribeAuthors(context.Background(), func([]Author) {
		close(entered)
		<-release
		finished.Store(true)
	}, nil)
	<-entered

	done := make(chan bool)
	go func() {
		unsubscribe()
		done <- finished.Load()
	}()

	select {
	case <-done:
		t.Fatal("unsubscribe returned while the callback was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.True(t, <-done, "callback completed before unsubscribe returned")
}
