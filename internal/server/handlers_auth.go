package server

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/navigation"
	"github.com/minehubyt/Anand-Pandey/internal/server/middleware"
	"github.com/minehubyt/Anand-Pandey/internal/site"
)

// VisitorCookie keys the pending-action store across the login round-trip.
const VisitorCookie = "akp_visitor"

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// AuthResponse is returned by every sign-in route.
type AuthResponse struct {
	Token string             `json:"token"`
	User  *identity.Identity `json:"user"`
	// Redirect is where the site goes next: a resumed application, the
	// admin portal or the dashboard.
	Redirect string `json:"redirect"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req identity.RegisterRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.deps.Auth.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.signedIn(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.deps.Auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.signedIn(w, r, http.StatusOK, user)
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.deps.Auth.SignInWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.signedIn(w, r, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.jsonResponse(w, http.StatusOK, map[string]string{"redirect": "/"})
}

// handleMe reloads the caller's identity so role changes show up without a
// new sign-in.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetIdentity(r)
	user, err := s.deps.Auth.Lookup(r.Context(), claims.UID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

// handleApply opens the application form for a job. Anonymous visitors are
// sent to the login page and the form reopens once they sign in.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	job, err := s.deps.Content.GetJob(r.Context(), jobID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if job == nil {
		s.fail(w, r, &ErrNotFound{What: "job", ID: jobID})
		return
	}

	visitor := s.visitor(w, r)
	app, sched := s.newApp(navigation.PathFor(navigation.NewView(navigation.KindJobs, ""), ""), visitor, middleware.GetIdentity(r))
	defer app.Close()

	if err := app.Apply(r.Context(), jobID); err != nil {
		s.fail(w, r, err)
		return
	}
	settle(sched)
	s.jsonResponse(w, http.StatusOK, map[string]string{"redirect": redirectFor(app.Screen())})
}

// signedIn issues the session token and cookie and resolves where the
// visitor lands, consuming any pending action.
func (s *Server) signedIn(w http.ResponseWriter, r *http.Request, status int, user *identity.Identity) {
	token, err := s.deps.Tokens.GenerateToken(user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.deps.Tokens.Expiration().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	app, sched := s.newApp(navigation.PathFor(navigation.NewView(navigation.KindLogin, ""), ""), s.visitor(w, r), nil)
	defer app.Close()
	app.Session().SignIn(user)
	settle(sched)

	s.log.Info("signed in", zap.String("uid", user.UID), zap.String("role", string(user.Role)))
	s.jsonResponse(w, status, AuthResponse{Token: token, User: user, Redirect: redirectFor(app.Screen())})
}

// newApp builds a root controller for one request, mounted at location.
// It runs on a manual scheduler so transitions settle synchronously.
func (s *Server) newApp(location, visitor string, user *identity.Identity) (*site.App, *navigation.ManualScheduler) {
	sched := navigation.NewManualScheduler()
	nav := navigation.NewController(navigation.NewMemoryHost(), sched, navigation.WithLogger(s.log))
	nav.Mount(location)

	session := identity.NewSession()
	if user != nil {
		session.SignIn(user)
	}
	return site.New(nav, session, s.deps.Pending, visitor, site.WithLogger(s.log)), sched
}

func settle(sched *navigation.ManualScheduler) {
	sched.Advance(navigation.DefaultTiming.FadeOut + navigation.DefaultTiming.FadeIn)
}

// redirectFor is the location for a settled screen. An open application
// form is carried as ?apply=.
func redirectFor(sc site.Screen) string {
	path := navigation.PathFor(sc.View, "")
	if sc.ApplyJobID != "" {
		path += "?apply=" + url.QueryEscape(sc.ApplyJobID)
	}
	return path
}

// visitor returns the visitor id, issuing the cookie on first sight.
func (s *Server) visitor(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(VisitorCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
