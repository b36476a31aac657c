// Package web serves the import wizard, dataset browser and preferences API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dsimport/internal/config"
	"github.com/JonMunkholm/dsimport/internal/datasets"
	"github.com/JonMunkholm/dsimport/internal/settings"
	"github.com/JonMunkholm/dsimport/internal/web/middleware"
	"github.com/JonMunkholm/dsimport/internal/wizard"
)

// Deps are the services behind the HTTP handlers.
type Deps struct {
	Sessions *wizard.Manager
	Datasets *datasets.Service
	Settings *settings.Settings
	Presets  *settings.Presets

	// BaseContext parents import runs and background cleanup. Imports are
	// not tied to the request that started them. Defaults to Background.
	BaseContext context.Context
}

// Server is the HTTP server.
type Server struct {
	cfg      *config.Config
	sessions *wizard.Manager
	datasets *datasets.Service
	settings *settings.Settings
	presets  *settings.Presets
	baseCtx  context.Context

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server with middleware and routes installed.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: deps.Sessions,
		datasets: deps.Datasets,
		settings: deps.Settings,
		presets:  deps.Presets,
		baseCtx:  deps.BaseContext,
		router:   chi.NewRouter(),
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(s.securityHeaders)
	s.router.Use(s.rateLimit(s.newLimiter(s.cfg.Rate.RequestsPerMinute)))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	importLimit := s.rateLimit(s.newLimiter(s.cfg.Rate.ImportLimit))

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		// Progress streams stay open for the whole import.
		r.Get("/sessions/{sessionID}/progress", s.handleSessionProgress)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/status", s.handleStatus)

			r.With(importLimit).Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{sessionID}", s.handleGetSession)
			r.Delete("/sessions/{sessionID}", s.handleDeleteSession)
			r.Put("/sessions/{sessionID}/mapping", s.handleSetMapping)
			r.With(importLimit).Post("/sessions/{sessionID}/import", s.handleStartImport)
			r.Post("/sessions/{sessionID}/cancel", s.handleCancelImport)
			r.Post("/sessions/{sessionID}/reset", s.handleResetSession)
			r.Get("/sessions/{sessionID}/result", s.handleSessionResult)
			r.Get("/sessions/{sessionID}/presets", s.handleMatchPresets)
			r.Post("/sessions/{sessionID}/presets/{presetID}", s.handleApplyPreset)

			r.Get("/datasets", s.handleListDatasets)
			r.Get("/datasets/{datasetID}", s.handleGetDataset)
			r.Patch("/datasets/{datasetID}", s.handleRenameDataset)
			r.Delete("/datasets/{datasetID}", s.handleDeleteDataset)
			r.Get("/datasets/{datasetID}/items", s.handleListItems)
			r.Get("/datasets/{datasetID}/imports", s.handleListImports)
			r.Get("/imports/{runID}", s.handleGetImport)

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)

			r.Get("/presets", s.handleListPresets)
			r.Post("/presets", s.handleCreatePreset)
			r.Get("/presets/{presetID}", s.handleGetPreset)
			r.Put("/presets/{presetID}", s.handleUpdatePreset)
			r.Delete("/presets/{presetID}", s.handleDeletePreset)
		})
	})
}

// newLimiter returns nil when rate limiting is disabled.
func (s *Server) newLimiter(perMinute int) *rateLimiter {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return nil
	}
	rl := newRateLimiter(perMinute, time.Minute)
	go rl.run(s.baseCtx)
	return rl
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	slog.Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. A Start that runs afterwards
// returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}
