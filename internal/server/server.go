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

	"github.com/foliotrack/foliotrack/internal/config"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/modules/analytics"
	"github.com/foliotrack/foliotrack/internal/modules/equity"
	"github.com/foliotrack/foliotrack/internal/modules/ledger"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/modules/report"
)

// Handlers bundles the per-module HTTP handlers mounted by the server
type Handlers struct {
	Ledger    *ledger.Handler
	Equity    *equity.Handler
	Prices    *prices.Handler
	Report    *report.Handler
	Analytics *analytics.Handler
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	DB       *database.DB
	Config   *config.Config
	DevMode  bool
	Handlers Handlers
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	cfg      *config.Config
	handlers Handlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		cfg:      cfg.Config,
		handlers: cfg.Handlers,
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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
	// Health check
	s.router.Get("/health", s.handleHealth)

	h := s.handlers

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.Ledger.HandleAddTransaction)
			r.Get("/", h.Ledger.HandleGetTransactions)
			r.Get("/{symbol}", h.Ledger.HandleGetTransactionsBySymbol)
			r.Delete("/{id}", h.Ledger.HandleRemoveTransaction)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", h.Report.HandleGetPortfolio)
			r.Get("/cached", h.Report.HandleGetCachedPortfolio)
			r.Get("/positions", h.Ledger.HandleGetPositions)
			r.Get("/positions/{symbol}", h.Ledger.HandleGetPosition)
			r.Get("/lots", h.Ledger.HandleGetLots)
			r.Get("/pnl", h.Ledger.HandleGetPnL)
		})

		r.Get("/equity", h.Equity.HandleGetEquity)

		r.Route("/prices", func(r chi.Router) {
			r.Post("/update", h.Prices.HandleUpdatePrices)
			r.Get("/{symbol}", h.Prices.HandleGetQuote)
			r.Get("/{symbol}/history", h.Prices.HandleGetHistory)
		})

		r.Get("/analytics/{symbol}", h.Analytics.HandleGetMetrics)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
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
