// Package server provides the HTTP server for the tutoring API
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatling/v2/internal/infrastructure/config"
	"github.com/chatling/v2/internal/infrastructure/http/handlers"
	"github.com/chatling/v2/internal/infrastructure/http/middleware"
	"github.com/chatling/v2/internal/infrastructure/monitoring"
	"github.com/chatling/v2/internal/ports/inbound"
	"github.com/chatling/v2/internal/ports/outbound"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
	tutorService inbound.TutorService,
	exerciseService inbound.ExerciseService,
	store outbound.ConversationRepository,
) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
	}
	s.router = s.setupRouter(metrics, tutorService, exerciseService, store)
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter(
	metrics *monitoring.Metrics,
	tutorService inbound.TutorService,
	exerciseService inbound.ExerciseService,
	store outbound.ConversationRepository,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.Metrics(metrics))

	// The write timeout already bounds slow responses; this keeps a stuck
	// upstream from pinning a request past it.
	r.Use(chimiddleware.Timeout(s.config.Server.WriteTimeout))

	chatHandlers := handlers.NewChatHandlers(tutorService, store, s.logger)
	tutorHandlers := handlers.NewTutorHandlers(tutorService, exerciseService, s.logger)

	r.Get("/health", chatHandlers.HandleHealth)
	if s.config.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chatHandlers.HandleChat)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", chatHandlers.HandleListConversations)
			r.Get("/{id}/messages", chatHandlers.HandleListMessages)
			r.Delete("/{id}", chatHandlers.HandleDeleteConversation)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/sentence", tutorHandlers.HandleAnalyzeSentence)
			r.Post("/word", tutorHandlers.HandleQueryWord)
			r.Post("/writing", tutorHandlers.HandleAnalyzeWriting)
		})

		r.Route("/exercises", func(r chi.Router) {
			r.Post("/generate", tutorHandlers.HandleGenerateExercises)
			r.Post("/verify", tutorHandlers.HandleVerifyAnswer)
		})
	})

	return r
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
