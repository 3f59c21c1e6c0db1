package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/optfolio/internal/metrics"
	"github.com/rustyeddy/optfolio/journal"
	"github.com/rustyeddy/optfolio/trading"
)

// HistorySource lists committed txns, newest first.
type HistorySource interface {
	History(ctx context.Context, limit int) ([]journal.TxnRecord, error)
}

// Config holds server configuration
type Config struct {
	Port           int
	Log            zerolog.Logger
	Engine         *trading.Engine
	History        HistorySource // optional
	DevMode        bool
	AllowedOrigins []string
	Now            func() time.Time
}

// Server exposes the ledger engine over HTTP
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	engine  *trading.Engine
	history HistorySource
	port    int
	clock   func() time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		engine:  cfg.Engine,
		history: cfg.History,
		port:    cfg.Port,
		clock:   cfg.Now,
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	s.setupMiddleware(cfg.DevMode, cfg.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool, origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.handleListTrades)
			r.Post("/", s.handleConfirmTrade)
			r.Post("/propose", s.handleProposeTrade)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.tradeIDMiddleware)
				r.Get("/", s.handleGetTrade)
				r.Put("/", s.handleEditTrade)
				r.Delete("/", s.handleRemoveTrade)
				r.Post("/edit/propose", s.handleProposeEdit)
				r.Post("/close", s.handleCloseTrade)
				r.Post("/assign", s.handleAssignTrade)
				r.Post("/roll", s.handleRollTrade)
				r.Post("/expire", s.handleExpireTrade)
			})
		})

		r.Get("/positions", s.handlePositions)
		r.Get("/balances", s.handleBalances)
		r.Get("/premium", s.handlePremium)
		r.Get("/expiring", s.handleExpiring)
		r.Get("/history", s.handleHistory)
		r.Post("/cash", s.handleCash)
		r.Put("/portfolio-value", s.handlePortfolioValue)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
