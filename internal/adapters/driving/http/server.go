package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
)

// Server is the local HTTP surface: it captures the authorization redirect
// and exposes the session, catalog and leaderboard operations as JSON.
type Server struct {
	httpServer   *http.Server
	router       *http.ServeMux
	version      string
	redirectPath string
	apiToken     string
	logger       *slog.Logger

	flow    driving.AuthorizationFlow
	tokens  driving.TokenService
	catalog driving.CatalogService
	scores  driving.ScoreService // nil when no leaderboard is configured
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// RedirectPath is where the provider sends the user agent back to.
	RedirectPath string

	// APIToken, when set, is required as a bearer token on /api/v1 routes.
	APIToken string
}

// DefaultConfig returns loopback defaults
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8888,
		Version:      "dev",
		RedirectPath: "/callback",
	}
}

// Services groups the driving ports the server exposes.
type Services struct {
	Flow    driving.AuthorizationFlow
	Tokens  driving.TokenService
	Catalog driving.CatalogService
	Scores  driving.ScoreService
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, svc Services, logger *slog.Logger) *Server {
	if cfg.RedirectPath == "" {
		cfg.RedirectPath = DefaultConfig().RedirectPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:       http.NewServeMux(),
		version:      cfg.Version,
		redirectPath: cfg.RedirectPath,
		apiToken:     cfg.APIToken,
		logger:       logger,
		flow:         svc.Flow,
		tokens:       svc.Tokens,
		catalog:      svc.Catalog,
		scores:       svc.Scores,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	api := NewAPITokenMiddleware(s.apiToken)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// The provider redirects the user's browser here; it cannot carry our API token.
	s.router.HandleFunc("GET "+s.redirectPath, s.handleCallback)

	// Session
	s.router.Handle("POST /api/v1/connect", api.Handler(http.HandlerFunc(s.handleConnect)))
	s.router.Handle("POST /api/v1/connect/cancel", api.Handler(http.HandlerFunc(s.handleCancelConnect)))
	s.router.Handle("GET /api/v1/status", api.Handler(http.HandlerFunc(s.handleStatus)))
	s.router.Handle("POST /api/v1/disconnect", api.Handler(http.HandlerFunc(s.handleDisconnect)))

	// Catalog
	s.router.Handle("GET /api/v1/artists", api.Handler(http.HandlerFunc(s.handleSearchArtists)))
	s.router.Handle("GET /api/v1/artists/{id}/albums", api.Handler(http.HandlerFunc(s.handleArtistAlbums)))
	s.router.Handle("GET /api/v1/plays/weekly", api.Handler(http.HandlerFunc(s.handleWeeklyPlays)))

	// Leaderboard
	s.router.Handle("POST /api/v1/scores/weekly", api.Handler(http.HandlerFunc(s.handleSubmitWeeklyScore)))
	s.router.Handle("GET /api/v1/leaderboard", api.Handler(http.HandlerFunc(s.handleLeaderboard)))
	s.router.Handle("GET /api/v1/friends", api.Handler(http.HandlerFunc(s.handleFriends)))
}

// Handler returns the router wrapped in recovery and request logging.
func (s *Server) Handler() http.Handler {
	logging := NewLoggingMiddleware(s.logger)
	recovery := NewRecoveryMiddleware(s.logger)
	return recovery.Handler(logging.Handler(s.router))
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
