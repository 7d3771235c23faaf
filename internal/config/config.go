// Package config loads the inventory dashboard configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"

	"github.com/vyrodovalexey/inventory-dashboard/internal/auth"
	"github.com/vyrodovalexey/inventory-dashboard/internal/store"
)

// Prefix is prepended to every environment variable name.
const Prefix = "APP"

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultIDStrategy      = store.IDStrategyUUID
	DefaultSortLocale      = "en"
	DefaultWSSendBuffer    = 16
	MaxWSSendBuffer        = 1024
)

// Environment variable names.
const (
	EnvServerPort         = "APP_SERVER_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvAuthMode           = "APP_AUTH_MODE"
	EnvBasicAuthUsers     = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys            = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
	EnvSeedDemoData       = "APP_SEED_DEMO_DATA"
	EnvIDStrategy         = "APP_ID_STRATEGY"
	EnvSortLocale         = "APP_SORT_LOCALE"
	EnvWSSendBuffer       = "APP_WS_SEND_BUFFER"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int           `envconfig:"SERVER_PORT" default:"8080" desc:"HTTP listen port"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" desc:"debug, info, warn or error"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" desc:"graceful shutdown limit"`
	MetricsEnabled  bool          `envconfig:"METRICS_ENABLED" default:"true" desc:"serve /metrics"`

	// Authentication mode for mutating requests: none, basic, apikey, multi.
	AuthMode string `envconfig:"AUTH_MODE" default:"none" desc:"none, basic, apikey or multi"`

	// Basic auth users (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string `envconfig:"BASIC_AUTH_USERS" desc:"user:bcrypt pairs"`

	// API keys (format: "key1:name1,key2:name2").
	APIKeys string `envconfig:"API_KEYS" desc:"key:name pairs"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*" desc:"comma separated origins"`

	// Inventory settings.
	SeedDemoData bool   `envconfig:"SEED_DEMO_DATA" default:"true" desc:"load the demo items on start"`
	IDStrategy   string `envconfig:"ID_STRATEGY" default:"uuid" desc:"uuid or sequence"`
	SortLocale   string `envconfig:"SORT_LOCALE" default:"en" desc:"BCP 47 tag used for ordering text"`

	// Dashboard settings.
	WSSendBuffer int `envconfig:"WS_SEND_BUFFER" default:"16" desc:"queued intents per dashboard connection"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New("auth mode must be one of: none, basic, apikey, multi")
	ErrInvalidBasicAuthConfig = errors.New("basic auth users must be set when auth mode is basic")
	ErrInvalidAPIKeyConfig    = errors.New("API keys must be set when auth mode is apikey")
	ErrInvalidMultiAuthConfig = errors.New(
		"basic auth users or API keys must be set when auth mode is multi",
	)
	ErrInvalidIDStrategy   = errors.New("ID strategy must be one of: uuid, sequence")
	ErrInvalidSortLocale   = errors.New("sort locale must be a valid BCP 47 language tag")
	ErrInvalidWSSendBuffer = errors.New("WebSocket send buffer must be between 1 and 1024")
	ErrNoCORSOrigins       = errors.New("at least one CORS origin must be allowed")
)

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Usage writes a table of every supported environment variable to w.
func Usage(w io.Writer) error {
	return envconfig.Usagef(Prefix, &Config{}, w, envconfig.DefaultTableFormat)
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	return c.validateInventory()
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrNoCORSOrigins
	}

	return nil
}

// validateAuth checks the auth mode and the credentials it needs.
func (c *Config) validateAuth() error {
	method, err := auth.ParseMethod(c.AuthMode)
	if err != nil {
		return ErrInvalidAuthMode
	}

	switch method {
	case auth.MethodBasic:
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case auth.MethodAPIKey:
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case auth.MethodMulti:
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	}

	return nil
}

// validateInventory validates store and dashboard settings.
func (c *Config) validateInventory() error {
	switch c.IDStrategy {
	case "", store.IDStrategyUUID, store.IDStrategySequence:
	default:
		return ErrInvalidIDStrategy
	}

	if _, err := c.Locale(); err != nil {
		return err
	}

	if c.WSSendBuffer < 1 || c.WSSendBuffer > MaxWSSendBuffer {
		return ErrInvalidWSSendBuffer
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// Locale parses SortLocale. An empty value selects English.
func (c *Config) Locale() (language.Tag, error) {
	if c.SortLocale == "" {
		return store.DefaultLocale, nil
	}

	tag, err := language.Parse(c.SortLocale)
	if err != nil {
		return language.Und, fmt.Errorf("%w: %q", ErrInvalidSortLocale, c.SortLocale)
	}
	return tag, nil
}

// AuthMethod returns the parsed auth mode.
func (c *Config) AuthMethod() auth.Method {
	method, err := auth.ParseMethod(c.AuthMode)
	if err != nil {
		return auth.MethodNone
	}
	return method
}

// AuthCredentials returns the configured secrets for the authenticator.
func (c *Config) AuthCredentials() auth.Credentials {
	return auth.Credentials{
		BasicUsers: c.BasicAuthUsers,
		APIKeys:    c.APIKeys,
	}
}
