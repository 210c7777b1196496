package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/savegress/remitmatch/internal/matching"
	"github.com/savegress/remitmatch/internal/storage"
)

// Server represents the API server
type Server struct {
	router   chi.Router
	handlers *Handlers
}

// NewServer creates a new API server
func NewServer(matcher *matching.Matcher, store *storage.ClaimStore) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(matcher, store),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1/remitmatch", func(r chi.Router) {
		r.Post("/match", s.handlers.MatchClaims)
		r.Post("/match/batch", s.handlers.MatchClaimsBatch)
		r.Get("/stats", s.handlers.GetStats)

		r.Route("/claims", func(r chi.Router) {
			r.Post("/sync", s.handlers.SyncClaims)
			r.Get("/", s.handlers.ListCachedClaims)
		})
	})
}

// Router returns the chi router
func (s *Server) Router() http.Handler {
	return s.router
}
