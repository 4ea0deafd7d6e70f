package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/assets"
	"github.com/minehubyt/Anand-Pandey/internal/classify"
	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
	"github.com/minehubyt/Anand-Pandey/internal/pending"
	"github.com/minehubyt/Anand-Pandey/internal/search"
	"github.com/minehubyt/Anand-Pandey/internal/server/middleware"
	"github.com/minehubyt/Anand-Pandey/internal/server/ratelimit"
)

// Deps are the services the server routes to. Provider, Classifier,
// Uploader, AssetFiles and Search may be nil; the routes they back then
// answer with an error or are not mounted.
type Deps struct {
	Content    *content.Service
	Auth       *identity.Authenticator
	Tokens     *identity.TokenService
	Pending    pending.Store
	Notifier   *messaging.Notifier
	Provider   messaging.Provider
	Classifier *classify.Classifier
	Uploader   *assets.Uploader
	AssetFiles *assets.Memory
	Search     *search.Service
	Logger     *zap.Logger
}

// Config holds server settings.
type Config struct {
	Port            int
	AllowedOrigin   string
	ShutdownTimeout time.Duration
	RateLimit       ratelimit.Config
	FailOpen        bool
	// SecureCookies marks session cookies Secure.
	SecureCookies bool
}

// Server is the site's HTTP server.
type Server struct {
	deps        Deps
	cfg         Config
	log         *zap.Logger
	validate    *validator.Validate
	rateLimiter *ratelimit.Limiter
	failOpen    atomic.Bool
	searchOnce  sync.Once
	stopSearch  content.Unsubscribe
	handler     http.Handler
	httpServer  *http.Server

	// inference calls outlive the request that triggered them.
	inferenceTimeout time.Duration
	sendTimeout      time.Duration
}

// New builds the server and its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Content == nil || deps.Auth == nil || deps.Tokens == nil || deps.Pending == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("server: content, auth, tokens, pending and notifier are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		deps:             deps,
		cfg:              cfg,
		log:              deps.Logger,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		inferenceTimeout: 30 * time.Second,
		sendTimeout:      20 * time.Second,
	}
	s.failOpen.Store(cfg.FailOpen)

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = s.withRateLimit(s.withLogging(s.withCORS(middleware.Authenticate(deps.Tokens)(mux))))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	auth := middleware.RequireAuth(s.deps.Tokens)
	admin := func(h http.HandlerFunc) http.Handler { return auth(middleware.RequireAdmin(h)) }

	mux.HandleFunc("GET /health", s.handleHealth)

	// Email relay. Every method is routed here so non-POST gets a JSON 405
	// rather than the page shell; OPTIONS is answered by withCORS.
	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		mux.HandleFunc(method+" /api/send", s.handleSend)
	}

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/google", s.handleGoogle)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/me", auth(http.HandlerFunc(s.handleMe)))
	mux.HandleFunc("POST /api/apply/{jobID}", s.handleApply)

	mux.HandleFunc("GET /api/hero", s.handleHero)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/insights/{id}", s.handleInsight)
	mux.HandleFunc("GET /api/authors", s.handleAuthors)
	mux.HandleFunc("GET /api/offices", s.handleOffices)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/practice-areas", s.handlePracticeAreas)
	mux.HandleFunc("GET /api/search/insights", s.handleSearchInsights)
	mux.HandleFunc("GET /api/stream/{collection}", s.handleStream)

	mux.HandleFunc("POST /api/bookings", s.handleBooking)
	mux.HandleFunc("POST /api/rfp", s.handleRFP)
	mux.HandleFunc("POST /api/contact", s.handleContact)
	mux.HandleFunc("POST /api/classify", s.handleClassify)
	mux.HandleFunc("POST /api/resume/parse", s.handleResumeParse)
	mux.Handle("POST /api/applications", auth(http.HandlerFunc(s.handleApplication)))

	mux.Handle("GET /api/me/applications", auth(http.HandlerFunc(s.handleMyApplications)))
	mux.Handle("GET /api/me/inquiries", auth(http.HandlerFunc(s.handleMyInquiries)))
	mux.Handle("GET /api/me/activity", auth(http.HandlerFunc(s.handleMyActivity)))

	mux.Handle("GET /api/admin/search", admin(s.handleAdminSearch))
	mux.Handle("GET /api/admin/inquiries", admin(s.handleAdminInquiries))
	mux.Handle("GET /api/admin/applications", admin(s.handleAdminApplications))
	mux.Handle("PUT /api/admin/inquiries/{id}/status", admin(s.handleInquiryStatus))
	mux.Handle("PUT /api/admin/applications/{id}/status", admin(s.handleApplicationStatus))
	mux.Handle("POST /api/admin/assets", admin(s.handleUpload))
	mux.Handle("POST /api/admin/preview", admin(s.handlePreview))
	mux.Handle("POST /api/admin/editor/insert", admin(s.handleInsertTag))
	mux.Handle("PUT /api/admin/users/{uid}/role", admin(s.handleSetRole))
	mux.Handle("GET /api/admin/{kind}", admin(s.handleAdminList))
	mux.Handle("POST /api/admin/{kind}", admin(s.handleAdminSave))
	mux.Handle("PUT /api/admin/{kind}", admin(s.handleAdminSave))
	mux.Handle("DELETE /api/admin/{kind}/{id}", admin(s.handleAdminDelete))

	if s.deps.AssetFiles != nil {
		mux.HandleFunc("GET /assets/{key...}", s.handleAsset)
	}

	mux.HandleFunc("GET /", s.handlePage)
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetFailOpen switches the delivery policy at runtime.
func (s *Server) SetFailOpen(v bool) {
	s.failOpen.Store(v)
}

func (s *Server) policy() messaging.Policy {
	return messaging.Policy{FailOpen: s.failOpen.Load(), Log: s.log}
}

// Start serves until ctx ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.release()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.release()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// Close releases background resources without serving.
func (s *Server) Close() {
	s.release()
}

func (s *Server) release() {
	s.rateLimiter.Stop()
	// Claim the once so a late request cannot start a new index.
	s.searchOnce.Do(func() {})
	if s.stopSearch != nil {
		s.stopSearch()
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the logging wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		}
		if !allowed {
			retry := int(info.RetryAfter.Seconds() + 0.999)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.log.Warn("rate limit exceeded", zap.String("client", clientID(r)), zap.String("path", r.URL.Path))
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
				"error":       "Too many requests. Please try again shortly.",
				"retry_after": retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID is the remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail logs err and answers with its mapped status and public message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.errorResponse(w, status, publicMessage(err))
}

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

// decode reads a JSON body into dst and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// detached returns a context that survives the client disconnecting, so
// a submitted form finishes its writes and confirmations.
func detached(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), d)
}

const storeTimeout = 10 * time.Second

// storeContext bounds store calls that should finish even when the client
// hangs up mid-submission.
func storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return detached(r, storeTimeout)
}
