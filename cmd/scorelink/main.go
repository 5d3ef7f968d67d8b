package main

// @title           scorelink API
// @version         1.0
// @description     Links a streaming-service account to a social-gaming leaderboard. Local API for the session, catalog and weekly score.

// @host      127.0.0.1:8888
// @BasePath  /
// @schemes   http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Static API token when API_TOKEN is set. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/scorelink/internal/adapters/driven/browser"
	"github.com/custodia-labs/scorelink/internal/adapters/driven/leaderboard"
	"github.com/custodia-labs/scorelink/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/scorelink/internal/adapters/driven/redis"
	"github.com/custodia-labs/scorelink/internal/adapters/driven/spotify"
	"github.com/custodia-labs/scorelink/internal/adapters/driven/vault"
	"github.com/custodia-labs/scorelink/internal/adapters/driving/http"
	"github.com/custodia-labs/scorelink/internal/config"
	"github.com/custodia-labs/scorelink/internal/core/domain"
	"github.com/custodia-labs/scorelink/internal/core/ports/driven"
	"github.com/custodia-labs/scorelink/internal/core/ports/driving"
	"github.com/custodia-labs/scorelink/internal/core/services"
	"github.com/custodia-labs/scorelink/internal/logging"
	"github.com/custodia-labs/scorelink/internal/worker"
)

var version = "dev"

func main() {
	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	if err := run(mode); err != nil {
		fmt.Fprintf(os.Stderr, "scorelink: %v\n", err)
		os.Exit(1)
	}
}

func run(mode string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  !cfg.IsDevelopment(),
		File:  cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("scorelink starting", "version", version, "mode", mode)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	switch mode {
	case "serve":
		return app.serve(ctx)
	case "connect":
		return app.connect(ctx)
	case "status":
		return app.status(ctx)
	case "disconnect":
		return app.tokens.Disconnect(ctx)
	default:
		return fmt.Errorf("unknown command %q (want serve, connect, status or disconnect)", mode)
	}
}

// app holds the wired services and anything that must be closed on exit.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	tokens    *services.TokenService
	flow      *services.AuthorizationFlow
	catalog   driving.CatalogService
	scores    driving.ScoreService
	lock      driven.DistributedLock
	server    *http.Server
	publisher *worker.Publisher
	closers   []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := a.secretStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider := spotify.NewOAuthProvider(spotify.OAuthConfig{
		ClientID:    cfg.Spotify.ClientID,
		RedirectURI: cfg.Spotify.RedirectURI,
		Scopes:      cfg.Spotify.Scopes,
		AuthURL:     cfg.Spotify.AuthURL,
		TokenURL:    cfg.Spotify.TokenURL,
	})

	a.tokens = services.NewTokenService(services.TokenServiceConfig{
		Store:    store,
		Provider: provider,
		Lock:     a.lock,
		Key:      cfg.Secrets.RecordKey,
		Margin:   cfg.Auth.RefreshMargin,
		Logger:   logger,
	})

	pkce, err := services.NewPKCEGenerator(cfg.Auth.VerifierLength, nil)
	if err != nil {
		a.Close()
		return nil, err
	}

	var userAgent driven.UserAgent = browser.NewPrinter(os.Stdout, logger)
	if cfg.OpenBrowser {
		userAgent = browser.New(logger)
	}

	a.flow = services.NewAuthorizationFlow(services.AuthorizationFlowConfig{
		Provider:  provider,
		Tokens:    a.tokens,
		UserAgent: userAgent,
		PKCE:      pkce,
		Timeout:   cfg.Auth.Timeout,
		Logger:    logger,
	})

	api, err := spotify.NewClient(cfg.Spotify.APIURL, nil, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.catalog = services.NewCatalogService(services.CatalogServiceConfig{
		Tokens:   a.tokens,
		API:      api,
		Location: cfg.WeekLocation,
		Logger:   logger,
	})

	if cfg.Leaderboard.Enabled() {
		board, err := leaderboard.NewClient(leaderboard.Config{
			BaseURL:       cfg.Leaderboard.URL,
			LeaderboardID: cfg.Leaderboard.ID,
			PlayerID:      cfg.Leaderboard.PlayerID,
			Secret:        cfg.Leaderboard.Secret,
			Logger:        logger,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.scores = services.NewScoreService(services.ScoreServiceConfig{
			Catalog:       a.catalog,
			Leaderboard:   board,
			LeaderboardID: cfg.Leaderboard.ID,
			PlayerID:      cfg.Leaderboard.PlayerID,
			Location:      cfg.WeekLocation,
			Logger:        logger,
		})
		if cfg.Leaderboard.PublishInterval > 0 {
			a.publisher = worker.NewPublisher(worker.PublisherConfig{
				Tokens:   a.tokens,
				Scores:   a.scores,
				Lock:     a.lock,
				Interval: cfg.Leaderboard.PublishInterval,
				Logger:   logger,
			})
		}
	}

	redirectPath, _ := cfg.RedirectPath()
	a.server = http.NewServer(http.Config{
		Host:         cfg.HTTP.Host,
		Port:         cfg.HTTP.Port,
		Version:      version,
		RedirectPath: redirectPath,
		APIToken:     cfg.HTTP.APIToken,
	}, http.Services{
		Flow:    a.flow,
		Tokens:  a.tokens,
		Catalog: a.catalog,
		Scores:  a.scores,
	}, logger)

	return a, nil
}

// secretStore builds the configured backend, wrapped in encryption when SECRET_KEY is set.
// Shared backends also provide the refresh lock.
func (a *app) secretStore(ctx context.Context) (driven.SecretStore, error) {
	var store driven.SecretStore

	switch a.cfg.Secrets.Backend {
	case config.SecretBackendMemory:
		store = vault.NewMemoryStore()
	case config.SecretBackendFile:
		fs, err := vault.NewFileStore(a.cfg.Secrets.Dir)
		if err != nil {
			return nil, err
		}
		store = fs
	case config.SecretBackendRedis:
		client, err := redisadapter.Connect(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		store = redisadapter.NewSecretStore(client)
		a.lock = redisadapter.NewLock(client)
	case config.SecretBackendPostgres:
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(a.cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		if err := db.InitSchema(ctx); err != nil {
			return nil, err
		}
		store = postgres.NewSecretStore(db)
		a.lock = postgres.NewLeaseLock(db)
	default:
		return nil, fmt.Errorf("unknown secret backend %q", a.cfg.Secrets.Backend)
	}

	if a.cfg.Secrets.Key == "" {
		if a.cfg.Secrets.Backend != config.SecretBackendMemory {
			a.logger.Warn("SECRET_KEY not set; token record stored without encryption")
		}
		return store, nil
	}
	return vault.NewEncryptedStoreFromPassphrase(store, a.cfg.Secrets.Key)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func (a *app) serve(ctx context.Context) error {
	if a.publisher != nil {
		a.publisher.Start(ctx)
		defer a.publisher.Stop()
	}
	return a.server.Run(ctx)
}

// connect runs the server only until one authorization attempt finishes.
func (a *app) connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.server.Run(ctx) }()

	resp, err := a.flow.Begin(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("waiting for authorization", "expires_at", resp.ExpiresAt.Format(time.RFC3339))

	state, err := a.flow.Wait(ctx)
	cancel()
	if runErr := <-serverErr; runErr != nil {
		a.logger.Warn("server stopped with error", "error", runErr)
	}

	switch {
	case errors.Is(err, context.Canceled):
		a.flow.Cancel()
		return errors.New("authorization cancelled")
	case state == domain.FlowStateConnected:
		fmt.Println("Connected.")
		return nil
	case err != nil:
		return fmt.Errorf("authorization failed: %w", err)
	default:
		return fmt.Errorf("authorization ended in state %s", state)
	}
}

func (a *app) status(ctx context.Context) error {
	st, err := a.tokens.Status(ctx)
	if err != nil {
		return err
	}
	switch {
	case st.Connected:
		fmt.Printf("connected (access token expires %s)\n", st.ExpiresAt.Format(time.RFC3339))
	case st.Rejected:
		fmt.Println("session rejected by the streaming service; run disconnect and connect again")
	default:
		fmt.Println("not connected")
	}
	return nil
}
