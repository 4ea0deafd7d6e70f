// Package site holds the root controller: it owns the navigation state
// machine, the auth session and the pending-action store, and decides what
// screen to render.
package site

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/navigation"
	"github.com/minehubyt/Anand-Pandey/internal/pending"
)

// Screen is what the page shell renders.
type Screen struct {
	View          navigation.View
	Access        navigation.Access
	Transitioning bool
	// ApplyJobID is set while the application form for that job is open.
	ApplyJobID string
}

// LoginGate reports whether the login form replaces the view.
func (s Screen) LoginGate() bool {
	return s.Access == navigation.AccessLoginRequired
}

// App is the root controller for one visitor.
type App struct {
	nav     *navigation.Controller
	session *identity.Session
	pending pending.Store
	visitor string
	log     *zap.Logger
	timeout time.Duration

	mu         sync.Mutex
	signedIn   bool
	applyJobID string

	unsubscribe func()
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithStoreTimeout bounds pending-store calls made from auth callbacks.
func WithStoreTimeout(d time.Duration) Option {
	return func(a *App) { a.timeout = d }
}

// New wires an App. visitor keys the pending-action store and must survive
// the login round-trip (a cookie or client id).
func New(nav *navigation.Controller, session *identity.Session, store pending.Store, visitor string, opts ...Option) *App {
	a := &App{
		nav:     nav,
		session: session,
		pending: store,
		visitor: visitor,
		log:     zap.NewNop(),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.signedIn = session.Current() != nil
	a.unsubscribe = session.Subscribe(a.onAuth)
	return a
}

// Navigation exposes the view controller.
func (a *App) Navigation() *navigation.Controller {
	return a.nav
}

// Session exposes the auth session.
func (a *App) Session() *identity.Session {
	return a.session
}

// Apply opens the application form for jobID. Signed-out visitors are sent
// to the login page and the request resumes after they sign in.
func (a *App) Apply(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}
	if a.session.Current() == nil {
		if err := a.pending.Remember(ctx, a.visitor, pending.Action{Type: pending.ActionApply, JobID: jobID}); err != nil {
			return fmt.Errorf("failed to remember pending application: %w", err)
		}
		a.log.Debug("deferring application until sign-in", zap.String("job_id", jobID))
		a.nav.Navigate(navigation.KindLogin, "", "")
		return nil
	}
	a.openApplication(jobID)
	return nil
}

// CloseApplication dismisses the application form.
func (a *App) CloseApplication() {
	a.mu.Lock()
	a.applyJobID = ""
	a.mu.Unlock()
}

// SignOut ends the session.
func (a *App) SignOut() {
	a.session.SignOut()
}

// Screen returns what to render now.
func (a *App) Screen() Screen {
	st := a.nav.State()
	user := a.session.Current()

	a.mu.Lock()
	jobID := a.applyJobID
	a.mu.Unlock()

	return Screen{
		View:          st.View,
		Access:        navigation.Guard(st.View, user != nil, user.IsAdmin()),
		Transitioning: st.Transitioning,
		ApplyJobID:    jobID,
	}
}

// Close detaches from the session.
func (a *App) Close() {
	a.unsubscribe()
}

func (a *App) openApplication(jobID string) {
	a.mu.Lock()
	a.applyJobID = jobID
	a.mu.Unlock()
	a.nav.Navigate(navigation.KindJobs, "", "")
}

func (a *App) onAuth(user *identity.Identity) {
	a.mu.Lock()
	was := a.signedIn
	a.signedIn = user != nil
	a.mu.Unlock()

	switch {
	case user != nil && !was:
		a.afterSignIn(user)
	case user == nil && was:
		a.afterSignOut()
	}
}

func (a *App) afterSignIn(user *identity.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	action, err := a.pending.Take(ctx, a.visitor)
	if err != nil {
		a.log.Warn("failed to load pending action", zap.Error(err))
	}
	if action != nil && action.Type == pending.ActionApply && action.JobID != "" {
		a.log.Info("resuming pending application", zap.String("uid", user.UID), zap.String("job_id", action.JobID))
		a.openApplication(action.JobID)
		return
	}

	if a.nav.State().Target.Kind != navigation.KindLogin {
		return
	}
	if user.IsAdmin() {
		a.nav.Navigate(navigation.KindAdmin, "", "")
		return
	}
	a.nav.Navigate(navigation.KindDashboard, "", "")
}

func (a *App) afterSignOut() {
	a.CloseApplication()
	a.nav.Navigate(navigation.KindHome, "", "")
}
