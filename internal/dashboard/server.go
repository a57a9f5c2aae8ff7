package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trackboard/trackboard/internal/config"
	"github.com/trackboard/trackboard/internal/creds"
	"github.com/trackboard/trackboard/internal/dashboard/views"
	"github.com/trackboard/trackboard/internal/metrics"
	"github.com/trackboard/trackboard/internal/status"
	"github.com/trackboard/trackboard/internal/tracker"
)

// Server is the dashboard HTTP server
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *creds.DB
	store  status.Store
	http   *http.Server
}

// New wires the status store, session database, report fetcher and routes
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	database, err := creds.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := NewStore(cfg, logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	viewEngine, err := views.New()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize views: %w", err)
	}

	tc := tracker.NewClient(tracker.Config{
		BaseURL:          cfg.Tracker.BaseURL,
		Timezone:         cfg.Tracker.Timezone,
		CampaignsPerPage: cfg.Tracker.CampaignsPerPage,
		ReportPerPage:    cfg.Tracker.ReportPerPage,
		Timeout:          cfg.Tracker.Timeout,
	})

	h := NewHandlers(cfg, logger, store, creds.NewRepository(database.DB), tc, viewEngine)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     database,
		store:  store,
	}
	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      s.setupRoutes(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewStore builds the configured status store backend
func NewStore(cfg *config.Config, logger *slog.Logger) (status.Store, error) {
	switch cfg.Storage.Backend {
	case "remote":
		return status.NewRemoteStore(status.RemoteConfig{
			BaseURL: cfg.Storage.Remote.BaseURL,
			Owner:   cfg.Storage.Remote.Owner,
			APIKey:  cfg.Storage.Remote.APIKey,
			Timeout: cfg.Storage.Remote.Timeout,
		}, logger), nil
	default:
		store, err := status.NewBoltStore(cfg.Storage.Local.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open local status store: %w", err)
		}
		return store, nil
	}
}

func (s *Server) setupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", h.Health)

	r.Get("/", h.Home)
	r.Post("/session", h.SessionCreate)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Get("/campaigns/{id}", h.CampaignDetail)
		r.Post("/campaigns/{id}/status", h.StatusToggle)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.requireSessionJSON)
		r.Get("/campaigns", h.APICampaigns)
		r.Get("/report", h.APIReport)
		r.Put("/status/{campaignID}/{key}", h.APIStatusSet)
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting dashboard server", "addr", s.cfg.Server.ListenAddr)
		if s.cfg.Server.TLS.Enabled {
			errCh <- s.http.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			errCh <- s.http.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
		s.close()
		return nil
	}
}

func (s *Server) close() {
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("failed to close status store", "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close session database", "error", err)
	}
}
