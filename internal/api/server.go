// Package api provides the HTTP API server and handlers for Shelfmark.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/ratelimit"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// Services groups the application services the handlers depend on.
type Services struct {
	Auth           *service.AuthService
	Library        *service.LibraryService
	Reviews        *service.ReviewService
	Recommendation *service.RecommendationService
}

// Options configures the HTTP server.
type Options struct {
	ClientOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	tokens      *auth.TokenService
	services    *Services
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
	credLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(st *store.Store, tokens *auth.TokenService, services *Services, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:    st,
		tokens:   tokens,
		services: services,
		router:   chi.NewRouter(),
		logger:   logger,
		// 10 attempts per minute per IP on credential endpoints.
		credLimiter: ratelimit.New(10.0/60.0, 10),
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Shelfmark API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerReviewRoutes()
	s.registerRecommendationRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-owned resources.
func (s *Server) Close() {
	s.credLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	if len(opts.ClientOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.ClientOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(rateLimitMiddleware(s.credLimiter, s.logger))
	s.router.Use(s.authMiddleware)
}
