// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultUpstreamURL is the Dify chat-messages endpoint.
	DefaultUpstreamURL = "https://api.dify.ai/v1/chat-messages"

	// DefaultRelayTimeout bounds the single outbound call made per request.
	DefaultRelayTimeout = 120 * time.Second

	// DefaultBodySizeLimit is the echo body-limit applied to uploads.
	DefaultBodySizeLimit = "32M"
)

// ErrMissingAPIKey is returned by Load when DIFY_API_KEY is not configured.
var ErrMissingAPIKey = errors.New("DIFY_API_KEY is not set")

// Config holds the application configuration
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string
	BodySizeLimit string
	// PageConfig is an optional YAML file overriding landing page texts.
	PageConfig string
}

// UpstreamConfig holds the conversational API credential and endpoint
type UpstreamConfig struct {
	APIKey  string
	URL     string
	Timeout time.Duration
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	// Format is "json", "text" or empty for auto-detection.
	Format string
	Level  string
}

// Load reads configuration from an optional .env file and the environment.
// A missing API key is a startup error; there is no fallback credential.
func Load() (*Config, error) {
	// Values already present in the environment win over .env
	_ = godotenv.Load()

	viper.SetDefault("PORT", "5000")
	viper.SetDefault("DIFY_API_URL", DefaultUpstreamURL)
	viper.SetDefault("RELAY_TIMEOUT", "120")
	viper.SetDefault("BODY_SIZE_LIMIT", DefaultBodySizeLimit)
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	timeout, err := parseDuration(viper.GetString("RELAY_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          viper.GetString("PORT"),
			BodySizeLimit: viper.GetString("BODY_SIZE_LIMIT"),
			PageConfig:    viper.GetString("PAGE_CONFIG"),
		},
		Upstream: UpstreamConfig{
			APIKey:  strings.TrimSpace(viper.GetString("DIFY_API_KEY")),
			URL:     viper.GetString("DIFY_API_URL"),
			Timeout: timeout,
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		Logging: LoggingConfig{
			Format: strings.ToLower(viper.GetString("LOG_FORMAT")),
			Level:  viper.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Upstream.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Upstream.URL == "" {
		return nil, errors.New("DIFY_API_URL must not be empty")
	}

	return cfg, nil
}

// parseDuration accepts plain integers (seconds) or Go duration strings ("2m").
func parseDuration(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return DefaultRelayTimeout, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
