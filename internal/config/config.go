// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret storage backends
const (
	SecretBackendFile     = "file"
	SecretBackendMemory   = "memory"
	SecretBackendRedis    = "redis"
	SecretBackendPostgres = "postgres"
)

// Config is the full process configuration
type Config struct {
	Env string

	HTTP        HTTPConfig
	Spotify     SpotifyConfig
	Auth        AuthConfig
	Secrets     SecretsConfig
	Leaderboard LeaderboardConfig

	RedisURL    string
	DatabaseURL string

	// WeekLocation decides where ISO weeks start for play counts.
	WeekLocation *time.Location

	LogLevel    string
	LogFile     string
	OpenBrowser bool
}

// HTTPConfig configures the local server
type HTTPConfig struct {
	Host     string
	Port     int
	APIToken string
}

// SpotifyConfig holds the public client registration and endpoints
type SpotifyConfig struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string
	TokenURL    string
	APIURL      string
}

// AuthConfig tunes the authorization flow and token refresh
type AuthConfig struct {
	VerifierLength int
	Timeout        time.Duration
	RefreshMargin  time.Duration
}

// SecretsConfig selects where the token record is kept
type SecretsConfig struct {
	Backend   string
	Dir       string
	Key       string // passphrase for at-rest encryption; empty stores plaintext
	RecordKey string
}

// LeaderboardConfig configures score publishing. An empty URL disables it.
type LeaderboardConfig struct {
	URL             string
	ID              string
	Secret          string
	PlayerID        string
	PublishInterval time.Duration
}

// Enabled reports whether a leaderboard backend is configured
func (c LeaderboardConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:     getEnv("HTTP_HOST", "127.0.0.1"),
			Port:     getEnvInt("HTTP_PORT", 8888),
			APIToken: getEnv("API_TOKEN", ""),
		},
		Spotify: SpotifyConfig{
			ClientID:    getEnv("SPOTIFY_CLIENT_ID", ""),
			RedirectURI: getEnv("SPOTIFY_REDIRECT_URI", "http://127.0.0.1:8888/callback"),
			Scopes:      getEnvList("SPOTIFY_SCOPES", []string{"user-read-recently-played", "user-read-email"}),
			AuthURL:     getEnv("SPOTIFY_AUTH_URL", ""),
			TokenURL:    getEnv("SPOTIFY_TOKEN_URL", ""),
			APIURL:      getEnv("SPOTIFY_API_URL", ""),
		},
		Auth: AuthConfig{
			VerifierLength: getEnvInt("PKCE_VERIFIER_LENGTH", 64),
			Timeout:        getEnvDuration("AUTH_TIMEOUT", 5*time.Minute),
			RefreshMargin:  getEnvDuration("TOKEN_REFRESH_MARGIN", 60*time.Second),
		},
		Secrets: SecretsConfig{
			Backend:   getEnv("SECRET_BACKEND", SecretBackendFile),
			Dir:       getEnv("SECRET_DIR", defaultSecretDir()),
			Key:       getEnv("SECRET_KEY", ""),
			RecordKey: getEnv("SECRET_RECORD_KEY", "spotify_tokens"),
		},
		Leaderboard: LeaderboardConfig{
			URL:             getEnv("LEADERBOARD_URL", ""),
			ID:              getEnv("LEADERBOARD_ID", ""),
			Secret:          getEnv("LEADERBOARD_SECRET", ""),
			PlayerID:        getEnv("PLAYER_ID", ""),
			PublishInterval: getEnvDuration("PUBLISH_INTERVAL", 0),
		},
		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		OpenBrowser: getEnvBool("OPEN_BROWSER", true),
	}

	loc, err := time.LoadLocation(getEnv("WEEK_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("WEEK_TIMEZONE: %w", err)
	}
	cfg.WeekLocation = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Spotify.ClientID == "" {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID is required"))
	}
	if _, err := c.RedirectPath(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.VerifierLength < 43 || c.Auth.VerifierLength > 128 {
		errs = append(errs, fmt.Errorf("PKCE_VERIFIER_LENGTH must be between 43 and 128, got %d", c.Auth.VerifierLength))
	}

	switch c.Secrets.Backend {
	case SecretBackendFile:
		if c.Secrets.Dir == "" {
			errs = append(errs, errors.New("SECRET_DIR is required for the file backend"))
		}
	case SecretBackendMemory:
	case SecretBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case SecretBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SECRET_BACKEND %q", c.Secrets.Backend))
	}

	if c.Leaderboard.Enabled() {
		if c.Leaderboard.ID == "" || c.Leaderboard.Secret == "" || c.Leaderboard.PlayerID == "" {
			errs = append(errs, errors.New("LEADERBOARD_ID, LEADERBOARD_SECRET and PLAYER_ID are required with LEADERBOARD_URL"))
		}
	}

	return errors.Join(errs...)
}

// RedirectPath returns the path component of the redirect URI, which the
// local server listens on.
func (c *Config) RedirectPath() (string, error) {
	u, err := url.Parse(c.Spotify.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("SPOTIFY_REDIRECT_URI: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("SPOTIFY_REDIRECT_URI must be an absolute http(s) URL, got %q", c.Spotify.RedirectURI)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

// IsDevelopment reports whether APP_ENV is development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func defaultSecretDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir + string(os.PathSeparator) + "scorelink"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits on commas or spaces
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
}
