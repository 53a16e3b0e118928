package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"enhancer/internal/config"
	"enhancer/internal/core"
	"enhancer/internal/logger"
	"enhancer/internal/persistence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Enhancer runs the enhancement pipeline for a stored original
type Enhancer interface {
	EnhanceByID(ctx context.Context, id int64) (*core.Article, error)
}

// Seeder crawls the listing page and stores what it finds
type Seeder interface {
	Seed(ctx context.Context, store persistence.ArticleStore, limit int) ([]core.Article, error)
}

// Deps are the collaborators behind the HTTP API. Enhancer and Seeder may be nil;
// their endpoints then answer 503 with UnavailableReason.
type Deps struct {
	Store             persistence.ArticleStore
	Enhancer          Enhancer
	Seeder            Seeder
	EnhanceEnabled    bool
	UnavailableReason string
	DefaultCrawlLimit int
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     config.Server
	log        *slog.Logger
	startedAt  time.Time
}

// New creates a new HTTP server instance
func New(deps Deps, cfg config.Server) *Server {
	if deps.DefaultCrawlLimit <= 0 {
		deps.DefaultCrawlLimit = 5
	}

	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		config:    cfg,
		log:       logger.With("component", "server"),
		startedAt: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	// Enhancement waits on search, scraping and generation; keep this below WriteTimeout.
	if s.config.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if s.config.RateLimit.Enabled {
		limit := s.config.RateLimit.Limit
		if limit <= 0 {
			limit = 100
		}
		s.router.Use(middleware.Throttle(limit))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleListArticles)
		r.Post("/", s.handleCreateArticle)
		r.Post("/crawl", s.handleCrawl)
		r.Get("/{id}", s.handleGetArticle)
		r.Put("/{id}", s.handleUpdateArticle)
		r.Delete("/{id}", s.handleDeleteArticle)
		r.Post("/{id}/enhance", s.handleEnhanceArticle)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
		"enhance_enabled", s.deps.EnhanceEnabled,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
