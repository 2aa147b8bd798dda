package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	for key, value := range map[string]string{
		"PRIMARY.ENV":                 "local",
		"SERVER.PORT":                 "8080",
		"SERVER.READ_TIMEOUT":         "30",
		"SERVER.WRITE_TIMEOUT":        "30",
		"SERVER.IDLE_TIMEOUT":         "60",
		"SERVER.CORS_ALLOWED_ORIGINS": "http://localhost:3000",
		"DATABASE.HOST":               "localhost",
		"DATABASE.PORT":               "5432",
		"DATABASE.USER":               "postgres",
		"DATABASE.PASSWORD":           "postgres",
		"DATABASE.NAME":               "sitterbook",
		"DATABASE.SSL_MODE":           "disable",
		"DATABASE.MAX_OPEN_CONNS":     "25",
		"DATABASE.MAX_IDLE_CONNS":     "25",
		"DATABASE.CONN_MAX_LIFETIME":  "300",
		"DATABASE.CONN_MAX_IDLE_TIME": "300",
		"REDIS.ADDRESS":               "localhost:6379",
		"AUTH.SECRET_KEY":             "sk_test_123",
		"INTEGRATION.RESEND_API_KEY":  "re_123",
	} {
		t.Setenv(EnvPrefix+key, value)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "re_123", cfg.Integration.ResendAPIKey)
	assert.NotEmpty(t, cfg.Integration.FromAddress)

	require.NotNil(t, cfg.Pagination)
	assert.Equal(t, 5, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
	assert.Equal(t, 10.0, cfg.Pagination.DefaultRadiusKm)
	assert.False(t, cfg.Pagination.CountFiltered)

	require.NotNil(t, cfg.Geocoder)
	assert.Equal(t, "https://www.mapquestapi.com", cfg.Geocoder.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.Timeout)

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "local", cfg.Observability.Environment)
	assert.False(t, cfg.Observability.NewRelicEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvPrefix+"PAGINATION.DEFAULT_LIMIT", "20")
	t.Setenv(EnvPrefix+"PAGINATION.MAX_LIMIT", "50")
	t.Setenv(EnvPrefix+"PAGINATION.COUNT_FILTERED", "true")
	t.Setenv(EnvPrefix+"GEOCODER.BASE_URL", "http://geocoder.internal")
	t.Setenv(EnvPrefix+"GEOCODER.API_KEY", "mq-key")
	t.Setenv(EnvPrefix+"GEOCODER.CACHE_TTL", "1h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	assert.Equal(t, 10.0, cfg.Pagination.DefaultRadiusKm)
	assert.True(t, cfg.Pagination.CountFiltered)
	assert.Equal(t, "http://geocoder.internal", cfg.Geocoder.BaseURL)
	assert.Equal(t, "mq-key", cfg.Geocoder.APIKey)
	assert.Equal(t, time.Hour, cfg.Geocoder.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.Timeout)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvPrefix+"AUTH.SECRET_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestPaginationConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultPaginationConfig().Validate())
	assert.Error(t, (&PaginationConfig{DefaultLimit: 0, DefaultRadiusKm: 10}).Validate())
	assert.Error(t, (&PaginationConfig{DefaultLimit: 5, MaxLimit: 100, DefaultRadiusKm: -1}).Validate())
	assert.Error(t, (&PaginationConfig{DefaultLimit: 20, MaxLimit: 10, DefaultRadiusKm: 10}).Validate())
}

func TestGeocoderConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultGeocoderConfig().Validate())
	assert.Error(t, (&GeocoderConfig{BaseURL: "not a url"}).Validate())
	assert.Error(t, (&GeocoderConfig{BaseURL: "http://x", Timeout: -time.Second}).Validate())
}

func TestObservabilityConfig_GetLogLevel(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	cfg.Logging.Level = ""

	cfg.Environment = "production"
	assert.Equal(t, "info", cfg.GetLogLevel())

	cfg.Environment = "local"
	assert.Equal(t, "debug", cfg.GetLogLevel())

	cfg.Logging.Level = "warn"
	assert.Equal(t, "warn", cfg.GetLogLevel())
	assert.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
