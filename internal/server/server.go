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

	"tradingfloor/internal/accounts"
	"tradingfloor/internal/scheduler"
)

// MarketChecker reports the live market-open state for the status endpoint.
type MarketChecker func(ctx context.Context) (bool, error)

// RoundReporter reports when the last trading round finished.
type RoundReporter interface {
	LastRound() (time.Time, bool)
}

// Config holds server configuration
type Config struct {
	Port            int
	Log             zerolog.Logger
	Accounts        *accounts.Service
	MarketHours     *scheduler.MarketHoursService
	MarketOpen      MarketChecker
	Rounds          RoundReporter
	IntervalMinutes int
	RunWhenClosed   bool
	DevMode         bool
}

// Server exposes the read-only dashboard API over HTTP.
type Server struct {
	router          *chi.Mux
	server          *http.Server
	log             zerolog.Logger
	accounts        *accounts.Service
	marketHours     *scheduler.MarketHoursService
	marketOpen      MarketChecker
	rounds          RoundReporter
	intervalMinutes int
	runWhenClosed   bool
	startedAt       time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		log:             cfg.Log.With().Str("component", "server").Logger(),
		accounts:        cfg.Accounts,
		marketHours:     cfg.MarketHours,
		marketOpen:      cfg.MarketOpen,
		rounds:          cfg.Rounds,
		intervalMinutes: cfg.IntervalMinutes,
		runWhenClosed:   cfg.RunWhenClosed,
		startedAt:       time.Now().UTC(),
	}

	s.setupMiddleware(cfg.DevMode)
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

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/traders", func(r chi.Router) {
			r.Get("/", s.handleListTraders)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetTrader)
				r.Get("/transactions", s.handleGetTransactions)
				r.Get("/portfolio-history", s.handleGetPortfolioHistory)
				r.Get("/logs", s.handleGetLogs)
			})
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/status", s.handleMarketStatus)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
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
