// Package api exposes the transformation pipeline, cache
// administration, textbook chat and study aids over a JSON HTTP API.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sabaqhq/sabaq/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       log.Logger
	Pipeline     pipelineRunner // Required
	ChatService  askService     // Required
	StudyService studyService   // Required
	CacheStore   cacheAdmin     // Required
	Pool         *pgxpool.Pool  // Optional: nil disables pool stats in /ready
	JWTSecret    []byte         // Required: 32+ bytes
	CORSOrigins  []string       // Allowed origins for CORS
	IsDev        bool           // Disables HSTS
	TrustProxy   bool           // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst    int            // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.ChatService == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.StudyService == nil {
		return nil, errors.New("study service is required")
	}
	if cfg.CacheStore == nil {
		return nil, errors.New("cache store is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	th := &transformHandler{pipeline: cfg.Pipeline, logger: logger}
	ch := &chatHandler{service: cfg.ChatService, logger: logger}
	sh := &studyHandler{service: cfg.StudyService, logger: logger}
	cah := &cacheHandler{store: cfg.CacheStore, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/translate", th.translate)
	mux.HandleFunc("POST /api/v1/personalize", th.personalize)
	mux.HandleFunc("POST /api/v1/chat", ch.ask)
	mux.HandleFunc("POST /api/v1/study/summarize", sh.summarize)
	mux.HandleFunc("POST /api/v1/study/quiz", sh.quiz)
	mux.HandleFunc("POST /api/v1/study/explain-code", sh.explainCode)
	mux.HandleFunc("GET /api/v1/cache/stats", cah.stats)
	mux.HandleFunc("DELETE /api/v1/cache/{content_id}", cah.invalidate)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
	// RequestID precedes Logging so request_id shows in log attributes.
	// CORS precedes RateLimit so preflight OPTIONS gets CORS headers.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.JWTSecret, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack so orchestrators are
	// never rate limited or asked for a token.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
