package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/navigation"
	"github.com/minehubyt/Anand-Pandey/internal/pending"
)

type fixture struct {
	app     *App
	host    *navigation.MemoryHost
	sched   *navigation.ManualScheduler
	session *identity.Session
	store   *pending.Memory
}

func newFixture(t *testing.T, location string) *fixture {
	t.Helper()
	host := navigation.NewMemoryHost()
	sched := navigation.NewManualScheduler()
	nav := navigation.NewController(host, sched)
	nav.Mount(location)
	session := identity.NewSession()
	store := pending.NewMemory(0)
	t.Cleanup(func() { _ = store.Close() })
	app := New(nav, session, store, "visitor-1")
	t.Cleanup(app.Close)
	return &fixture{app: app, host: host, sched: sched, session: session, store: store}
}

func (f *fixture) settle() {
	f.sched.Advance(navigation.DefaultTiming.FadeOut + navigation.DefaultTiming.FadeIn)
}

func (f *fixture) lastPath(t *testing.T) string {
	t.Helper()
	entry, ok := f.host.Last()
	require.True(t, ok)
	return entry.Path
}

func TestApplyWhileSignedOut_ResumesAfterLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "/careers/jobs")
	require.Equal(t, navigation.KindJobs, f.app.Screen().View.Kind)

	require.NoError(t, f.app.Apply(ctx, "job-7"))
	f.settle()

	screen := f.app.Screen()
	assert.Equal(t, navigation.KindLogin, screen.View.Kind)
	assert.Empty(t, screen.ApplyJobID)
	assert.Equal(t, "/login", f.lastPath(t))

	f.session.SignIn(&identity.Identity{UID: "u1", Role: identity.RoleApplicant})
	f.settle()

	screen = f.app.Screen()
	assert.Equal(t, navigation.KindJobs, screen.View.Kind)
	assert.Equal(t, "job-7", screen.ApplyJobID, "the form for the same job opens")
	assert.Equal(t, "/careers/jobs", f.lastPath(t))

	// Consumed exactly once: signing out and in again does not reopen it.
	f.app.CloseApplication()
	f.session.SignOut()
	f.settle()
	f.session.SignIn(&identity.Identity{UID: "u1", Role: identity.RoleApplicant})
	f.settle()
	assert.Empty(t, f.app.Screen().ApplyJobID)
}

func TestApplyWhileSignedIn_OpensImmediately(t *testing.T) {
	f := newFixture(t, "/careers/jobs")
	f.session.SignIn(&identity.Identity{UID: "u1", Role: identity.RoleGeneral})

	require.NoError(t, f.app.Apply(context.Background(), "job-9"))
	screen := f.app.Screen()
	assert.Equal(t, "job-9", screen.ApplyJobID)
	assert.Equal(t, navigation.KindJobs, screen.View.Kind)

	got, err := f.store.Take(context.Background(), "visitor-1")
	require.NoError(t, err)
	assert.Nil(t, got, "nothing is deferred for a signed-in visitor")
}

func TestApply_RequiresJobID(t *testing.T) {
	f := newFixture(t, "/")
	assert.Error(t, f.app.Apply(context.Background(), ""))
}

func TestLoginPage_RedirectsByRole(t *testing.T) {
	tests := []struct {
		name string
		user *identity.Identity
		want navigation.Kind
	}{
		{name: "admin goes to portal", user: &identity.Identity{UID: "a", Role: identity.RoleAdmin}, want: navigation.KindAdmin},
		{name: "others go to dashboard", user: &identity.Identity{UID: "b", Role: identity.RoleGeneral}, want: navigation.KindDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "/login")
			f.session.SignIn(tt.user)
			f.settle()
			assert.Equal(t, tt.want, f.app.Screen().View.Kind)
		})
	}
}

func TestSignInElsewhere_StaysOnView(t *testing.T) {
	f := newFixture(t, "/thinking")
	f.session.SignIn(&identity.Identity{UID: "u", Role: identity.RoleGeneral})
	f.settle()
	assert.Equal(t, navigation.KindThinking, f.app.Screen().View.Kind)
	assert.Empty(t, f.host.Entries())
}

func TestGuardedViews(t *testing.T) {
	f := newFixture(t, "/portal/admin")

	screen := f.app.Screen()
	assert.Equal(t, navigation.KindAdmin, screen.View.Kind)
	assert.True(t, screen.LoginGate())

	f.session.SignIn(&identity.Identity{UID: "u", Role: identity.RoleGeneral})
	assert.Equal(t, navigation.AccessForbidden, f.app.Screen().Access)

	f.session.SignOut()
	f.settle()
	f.session.SignIn(&identity.Identity{UID: "admin", Role: identity.RoleAdmin})
	f.settle()
	require.True(t, f.app.nav.Navigate(navigation.KindAdmin, "", ""))
	f.settle()
	assert.Equal(t, navigation.AccessGranted, f.app.Screen().Access)
}

func TestSignOut_NavigatesHome(t *testing.T) {
	f := newFixture(t, "/dashboard")
	f.session.SignIn(&identity.Identity{UID: "u", Role: identity.RoleGeneral})
	require.Equal(t, navigation.AccessGranted, f.app.Screen().Access)

	f.app.SignOut()
	f.settle()
	screen := f.app.Screen()
	assert.Equal(t, navigation.KindHome, screen.View.Kind)
	assert.Equal(t, "/", f.lastPath(t))
}

func TestClose_StopsObservingSession(t *testing.T) {
	f := newFixture(t, "/login")
	f.app.Close()
	f.session.SignIn(&identity.Identity{UID: "u", Role: identity.RoleGeneral})
	f.settle()
	assert.Equal(t, navigation.KindLogin, f.app.Screen().View.Kind)
}
