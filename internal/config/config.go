// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types and validates them so the
// service fails fast on bad or missing configuration.
//
// Env vars use the SITTERBOOK_ prefix and dotted keys for nesting:
//
//	SITTERBOOK_SERVER.PORT       -> server.port       -> Config.Server.Port
//	SITTERBOOK_GEOCODER.API_KEY  -> geocoder.api_key  -> Config.Geocoder.APIKey
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads a `.env` file into the process env before
	// anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from every environment variable read into Config.
const EnvPrefix = "SITTERBOOK_"

// ServiceName tags logs, traces and emails.
const ServiceName = "sitterbook"

// Config is the root configuration object for the application.
//
// Observability, Geocoder and Pagination are optional blocks; defaults are
// injected when they are missing.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration" validate:"required"`
	Geocoder      *GeocoderConfig      `koanf:"geocoder"`
	Pagination    *PaginationConfig    `koanf:"pagination"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details ("host:port").
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores the Clerk secret key.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
}

// IntegrationConfig holds credentials for third-party delivery services.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key" validate:"required"`
	FromAddress  string `koanf:"from_address"`
}

// GeocoderConfig points at a MapQuest-compatible geocoding API.
type GeocoderConfig struct {
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Timeout  time.Duration `koanf:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// PaginationConfig tunes the list endpoints.
type PaginationConfig struct {
	DefaultLimit    int     `koanf:"default_limit"`
	MaxLimit        int     `koanf:"max_limit"`
	DefaultRadiusKm float64 `koanf:"default_radius_km"`
	// CountFiltered makes the reported total count only matching records
	// instead of the whole collection.
	CountFiltered bool `koanf:"count_filtered"`
}

// LoadConfig loads configuration from environment variables, validates it and
// applies defaults for the optional blocks.
func LoadConfig() (*Config, error) {
	// "." is the key-path delimiter, so "server.port" is Config.Server.Port.
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Integration.FromAddress == "" {
		mainConfig.Integration.FromAddress = "Sitterbook <onboarding@resend.dev>"
	}

	if mainConfig.Geocoder == nil {
		mainConfig.Geocoder = DefaultGeocoderConfig()
	}
	mainConfig.Geocoder.applyDefaults()
	if err := mainConfig.Geocoder.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geocoder config: %w", err)
	}

	if mainConfig.Pagination == nil {
		mainConfig.Pagination = DefaultPaginationConfig()
	}
	mainConfig.Pagination.applyDefaults()
	if err := mainConfig.Pagination.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pagination config: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always come from here, never from env.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// DefaultGeocoderConfig targets the public MapQuest API without a key.
func DefaultGeocoderConfig() *GeocoderConfig {
	return &GeocoderConfig{
		BaseURL:  "https://www.mapquestapi.com",
		Timeout:  5 * time.Second,
		CacheTTL: 24 * time.Hour,
	}
}

func (c *GeocoderConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.mapquestapi.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// Validate rejects negative durations. A zero CacheTTL disables caching.
func (c *GeocoderConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be non-negative")
	}
	return nil
}

// DefaultPaginationConfig matches the list endpoints' historic behaviour:
// five results per page, 10 km search radius, total counts every record.
// Pages are capped at 100 results.
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		DefaultLimit:    5,
		MaxLimit:        100,
		DefaultRadiusKm: 10,
	}
}

func (c *PaginationConfig) applyDefaults() {
	if c.DefaultLimit == 0 {
		c.DefaultLimit = 5
	}
	if c.MaxLimit == 0 {
		c.MaxLimit = 100
	}
	if c.DefaultRadiusKm == 0 {
		c.DefaultRadiusKm = 10
	}
}

// Validate checks the defaults are usable as page sizes and radii.
func (c *PaginationConfig) Validate() error {
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be at least 1")
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit must be at least default_limit")
	}
	if c.DefaultRadiusKm <= 0 {
		return fmt.Errorf("default_radius_km must be positive")
	}
	return nil
}
