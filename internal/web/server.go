// Package web provides the HTTP API for the flat-text ingest service.
//
// # Architecture
//
// The server is a thin JSON layer over core.Service and storage.Store.
// Requests are routed with chi; every response is JSON. Ingest uploads
// are streamed straight from the multipart body into the record
// pipeline, so memory stays constant regardless of file size. Progress
// is pushed to clients over Server-Sent Events.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tablefeed/tablefeed/internal/config"
	"github.com/tablefeed/tablefeed/internal/core"
	"github.com/tablefeed/tablefeed/internal/storage"
	"github.com/tablefeed/tablefeed/internal/web/middleware"
)

// Server is the HTTP server for the ingest API.
type Server struct {
	cfg     *config.Config
	service *core.Service
	store   *storage.Store
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance. store may be nil when the
// service runs without a database; history endpoints then return 503.
func NewServer(cfg *config.Config, service *core.Service, store *storage.Store) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		store:   store,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Profile catalog
		r.Get("/profiles", s.handleListProfiles)

		// Service status
		r.Get("/status", s.handleStatus)

		// Ingest history (database-backed)
		r.Get("/ingests", s.handleRecentIngests)

		// Ingest operations; uploads get a stricter rate limit
		ingestGroup := r
		if s.cfg.Rate.Enabled && s.cfg.Rate.IngestLimit > 0 {
			uploadLimiter := newRateLimiter(s.cfg.Rate.IngestLimit, time.Minute)
			ingestGroup = r.With(uploadLimiter.middleware)
		}
		ingestGroup.Post("/ingest/{profileKey}", s.handleIngest)
		ingestGroup.Post("/preview/{profileKey}", s.handlePreview)

		r.Get("/ingest/{ingestID}/progress", s.handleIngestProgress)
		r.Get("/ingest/{ingestID}/result", s.handleIngestResult)
		r.Get("/ingest/{ingestID}/records", s.handleIngestRecords)
		r.Post("/ingest/{ingestID}/cancel", s.handleCancelIngest)
		r.Delete("/ingest/{ingestID}", s.handleDeleteIngest)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent framing; the API serves no pages
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	// Start cleanup goroutine
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		// Use X-Real-IP if set upstream
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","code":"RATE001"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
