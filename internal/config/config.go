// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest to lowest:
//  1. Environment variables (runtime override)
//  2. Config file (~/.plantflow/config.yaml, or ./config.yaml)
//  3. Default values
//
// The Gemini API key is never stored in the config struct: Genkit reads
// GEMINI_API_KEY from the environment directly, and Validate() only checks
// its presence so a missing credential fails fast at startup instead of on
// the first model call.
//
// Error handling uses sentinel errors checked with errors.Is(); wrap with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the model credential is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates a temperature outside [0.0, 2.0].
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxRetries indicates an attempt budget outside [1, 10].
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidPlantUMLURL indicates a malformed render server URL.
	ErrInvalidPlantUMLURL = errors.New("invalid PlantUML server URL")

	// ErrInvalidCacheConfig indicates a non-positive cache size or TTL.
	ErrInvalidCacheConfig = errors.New("invalid cache configuration")

	// ErrInvalidAddr indicates a malformed listen address.
	ErrInvalidAddr = errors.New("invalid listen address")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
)

// Config stores application configuration.
type Config struct {
	// Model configuration
	Provider         string  `mapstructure:"provider" json:"provider"`
	ModelName        string  `mapstructure:"model_name" json:"model_name"`
	Temperature      float32 `mapstructure:"temperature" json:"temperature"`
	RetryTemperature float32 `mapstructure:"retry_temperature" json:"retry_temperature"`

	// Generation pipeline
	MaxRetries       int  `mapstructure:"max_retries" json:"max_retries"`
	StrictQuoteCheck bool `mapstructure:"strict_quote_check" json:"strict_quote_check"`

	// PlantUML render server
	PlantUMLURL      string `mapstructure:"plantuml_url" json:"plantuml_url"`
	RenderTimeoutSec int    `mapstructure:"render_timeout_sec" json:"render_timeout_sec"`

	// Result caches
	GenerationCacheSize int `mapstructure:"generation_cache_size" json:"generation_cache_size"`
	GenerationCacheTTL  int `mapstructure:"generation_cache_ttl_hours" json:"generation_cache_ttl_hours"`
	RenderCacheSize     int `mapstructure:"render_cache_size" json:"render_cache_size"`
	RenderCacheTTL      int `mapstructure:"render_cache_ttl_minutes" json:"render_cache_ttl_minutes"`

	// HTTP server
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Observability (optional; empty endpoint disables tracing)
	OtelEndpoint string `mapstructure:"otel_endpoint" json:"otel_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".plantflow")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("provider", ProviderGoogleAI)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("retry_temperature", 0.3)

	viper.SetDefault("max_retries", 3)
	viper.SetDefault("strict_quote_check", false)

	viper.SetDefault("plantuml_url", "https://www.plantuml.com/plantuml")
	viper.SetDefault("render_timeout_sec", 15)

	viper.SetDefault("generation_cache_size", 256)
	viper.SetDefault("generation_cache_ttl_hours", 6)
	viper.SetDefault("render_cache_size", 128)
	viper.SetDefault("render_cache_ttl_minutes", 30)

	viper.SetDefault("addr", "localhost:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	viper.SetDefault("environment", "dev")
	viper.SetDefault("service_name", "plantflow")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper; Validate()
// only checks its presence.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "PLANTFLOW_MODEL_NAME")
	mustBind("max_retries", "PLANTFLOW_MAX_RETRIES")
	mustBind("plantuml_url", "PLANTFLOW_PLANTUML_URL")
	mustBind("addr", "PLANTFLOW_ADDR")
	mustBind("cors_origins", "PLANTFLOW_CORS_ORIGINS")
	mustBind("trust_proxy", "PLANTFLOW_TRUST_PROXY")
	mustBind("rate_burst", "PLANTFLOW_RATE_BURST")
	mustBind("otel_endpoint", "PLANTFLOW_OTEL_ENDPOINT")
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.RetryTemperature < 0.0 || c.RetryTemperature > 2.0 {
		return fmt.Errorf("%w: retry_temperature must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.RetryTemperature)
	}

	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidMaxRetries, c.MaxRetries)
	}

	u, err := url.Parse(c.PlantUMLURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPlantUMLURL, c.PlantUMLURL)
	}

	if c.GenerationCacheSize < 1 || c.GenerationCacheTTL < 1 {
		return fmt.Errorf("%w: generation cache size and TTL must be positive", ErrInvalidCacheConfig)
	}
	if c.RenderCacheSize < 1 || c.RenderCacheTTL < 1 {
		return fmt.Errorf("%w: render cache size and TTL must be positive", ErrInvalidCacheConfig)
	}

	if c.Addr == "" || !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("%w: %q (expected host:port)", ErrInvalidAddr, c.Addr)
	}

	return nil
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash". A ModelName already containing "/" is
// returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// RenderTimeout returns the render fetch timeout as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSec) * time.Second
}

// GenerationTTL returns the generation cache TTL as a duration.
func (c *Config) GenerationTTL() time.Duration {
	return time.Duration(c.GenerationCacheTTL) * time.Hour
}

// RenderTTL returns the render cache TTL as a duration.
func (c *Config) RenderTTL() time.Duration {
	return time.Duration(c.RenderCacheTTL) * time.Minute
}
