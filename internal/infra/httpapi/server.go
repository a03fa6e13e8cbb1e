package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"jobtalk/internal/application"
	"jobtalk/internal/document"
)

type Config struct {
	Addr      string
	AuthToken string

	RateLimit  int
	RateWindow time.Duration

	SessionTTL    time.Duration
	SweepInterval time.Duration

	MaxAudioBytes int64
	MaxImageBytes int64

	Document document.Defaults
}

// RequestObserver records per-route request counts and the session gauge.
type RequestObserver interface {
	ObserveRequest(route string, code int, elapsed time.Duration)
	SetSessions(n int)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int, time.Duration) {}
func (noopObserver) SetSessions(int)                           {}

type Server struct {
	cfg         Config
	pipeline    *application.Pipeline
	registry    *Registry
	rateLimiter *RateLimiter
	observer    RequestObserver
	logger      *slog.Logger
	mux         *http.ServeMux
	now         func() time.Time

	mu      sync.Mutex
	server  *http.Server
	running bool
	cancel  context.CancelFunc
}

// NewServer wires the routes. metricsHandler may be nil, in which case
// /metrics is not served.
func NewServer(
	cfg Config,
	pipeline *application.Pipeline,
	observer RequestObserver,
	metricsHandler http.Handler,
	logger *slog.Logger,
) *Server {
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 25 << 20
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}

	s := &Server{
		cfg:         cfg,
		pipeline:    pipeline,
		registry:    NewRegistry(pipeline, cfg.SessionTTL, logger),
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		observer:    observer,
		logger:      logger,
		mux:         http.NewServeMux(),
		now:         time.Now,
	}
	s.registry.OnChange(observer.SetSessions)

	// Mutating endpoints are rate limited per client IP
	s.handle("POST /api/transcribe", s.handleTranscribe, true)
	s.handle("POST /api/categorize", s.handleCategorize, true)

	s.handle("POST /api/sessions", s.handleCreateSession, true)
	s.handle("GET /api/sessions/{id}", s.handleGetSession, false)
	s.handle("POST /api/sessions/{id}/intake", s.handleIntake, true)
	s.handle("POST /api/sessions/{id}/recording", s.handleStartRecording, true)
	s.handle("DELETE /api/sessions/{id}/recording", s.handleStopRecording, false)
	s.handle("POST /api/sessions/{id}/words", s.handleWord, false)
	s.handle("PUT /api/sessions/{id}/fields/{name}", s.handleSetField, true)
	s.handle("PUT /api/sessions/{id}/contact/{name}", s.handleSetContact, true)
	s.handle("POST /api/sessions/{id}/line-items", s.handleAddLineItem, true)
	s.handle("DELETE /api/sessions/{id}/line-items/{itemID}", s.handleRemoveLineItem, true)
	s.handle("POST /api/sessions/{id}/images", s.handleAddImage, true)
	s.handle("PUT /api/sessions/{id}/images/{imageID}", s.handleDescribeImage, true)
	s.handle("DELETE /api/sessions/{id}/images/{imageID}", s.handleRemoveImage, true)
	s.handle("PUT /api/sessions/{id}/payment", s.handleSetPayment, true)
	s.handle("GET /api/sessions/{id}/document", s.handleSessionDocument, false)

	s.mux.HandleFunc("GET /document", s.instrument("GET /document", s.handleDocument))
	// No rate limiting or auth on health and metrics
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if metricsHandler != nil {
		s.mux.Handle("GET /metrics", metricsHandler)
	}
	return s
}

func (s *Server) handle(pattern string, h http.HandlerFunc, limited bool) {
	h = s.requireToken(h)
	if limited {
		h = s.rateLimiter.Middleware(h)
	}
	s.mux.HandleFunc(pattern, s.instrument(pattern, h))
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	janitorCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.cfg.SweepInterval > 0 {
		go s.registry.RunJanitor(janitorCtx, s.cfg.SweepInterval, s.rateLimiter)
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.AuthToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		// Check header first, then query parameter
		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.cfg.AuthToken {
			s.logger.Warn("unauthorized request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		s.observer.ObserveRequest(route, rec.status, elapsed)
		s.logger.Debug("request", "route", route, "status", rec.status, "elapsed", elapsed)
	}
}
