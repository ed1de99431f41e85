package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the speech gateway.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// APIKey gates the speech endpoints when non-empty.
	APIKey string

	VoiceProvider string

	EdgeAuthURL          string
	EdgeEndpointOverride string
	EdgeUserAgent        string
	EdgeOutputFormat     string

	CredentialRefreshMargin time.Duration
	BackendHTTPTimeout      time.Duration

	DefaultVoice       string
	DefaultConcurrency int
	MaxConcurrency     int
	DefaultChunkSize   int
	MaxInputChars      int

	LogLevel  string
	LogPretty bool
}

// Load reads an optional .env file, then environment variables, and applies safe defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "speechgate"),
		APIKey:           stringsTrimSpace("API_KEY"),
		VoiceProvider:    envOrDefault("VOICE_PROVIDER", "edge"),
		EdgeAuthURL:      envOrDefault("EDGE_AUTH_URL", "https://dev.microsofttranslator.com/apps/endpoint?api-version=1.0"),
		// Empty means derive the endpoint from the credential's region.
		EdgeEndpointOverride: stringsTrimSpace("EDGE_ENDPOINT_OVERRIDE"),
		EdgeUserAgent:        envOrDefault("EDGE_USER_AGENT", "okhttp/4.5.0"),
		EdgeOutputFormat:     envOrDefault("EDGE_OUTPUT_FORMAT", "audio-24khz-48kbitrate-mono-mp3"),
		DefaultVoice:         envOrDefault("DEFAULT_VOICE", "zh-CN-XiaoxiaoNeural"),
		LogLevel:             strings.ToLower(envOrDefault("LOG_LEVEL", "info")),

		ShutdownTimeout:         15 * time.Second,
		CredentialRefreshMargin: 5 * time.Minute,
		BackendHTTPTimeout:      60 * time.Second,
		DefaultConcurrency:      10,
		MaxConcurrency:          50,
		DefaultChunkSize:        300,
		MaxInputChars:           100000,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CredentialRefreshMargin, err = durationFromEnv("CREDENTIAL_REFRESH_MARGIN", cfg.CredentialRefreshMargin)
	if err != nil {
		return Config{}, err
	}
	cfg.BackendHTTPTimeout, err = durationFromEnv("BACKEND_HTTP_TIMEOUT", cfg.BackendHTTPTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultConcurrency, err = intFromEnv("DEFAULT_CONCURRENCY", cfg.DefaultConcurrency)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxConcurrency, err = intFromEnv("MAX_CONCURRENCY", cfg.MaxConcurrency)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultChunkSize, err = intFromEnv("DEFAULT_CHUNK_SIZE", cfg.DefaultChunkSize)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxInputChars, err = intFromEnv("MAX_INPUT_CHARS", cfg.MaxInputChars)
	if err != nil {
		return Config{}, err
	}
	cfg.LogPretty, err = boolFromEnv("LOG_PRETTY", cfg.LogPretty)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.VoiceProvider)) {
	case "edge", "mock":
	default:
		return fmt.Errorf("invalid VOICE_PROVIDER: %q (expected edge|mock)", c.VoiceProvider)
	}
	if c.DefaultConcurrency <= 0 {
		return fmt.Errorf("DEFAULT_CONCURRENCY must be positive")
	}
	if c.MaxConcurrency < c.DefaultConcurrency {
		return fmt.Errorf("MAX_CONCURRENCY must be >= DEFAULT_CONCURRENCY")
	}
	if c.DefaultChunkSize <= 0 {
		return fmt.Errorf("DEFAULT_CHUNK_SIZE must be positive")
	}
	if c.MaxInputChars <= 0 {
		return fmt.Errorf("MAX_INPUT_CHARS must be positive")
	}
	if c.CredentialRefreshMargin < 0 {
		return fmt.Errorf("CREDENTIAL_REFRESH_MARGIN must be >= 0")
	}
	if c.BackendHTTPTimeout <= 0 {
		return fmt.Errorf("BACKEND_HTTP_TIMEOUT must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
