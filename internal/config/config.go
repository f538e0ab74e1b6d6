// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when present), loads them into structured Go types and validates that
// required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (jobs, report, observability).
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process environment before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the AQUASERVICE_ prefix. A double underscore
	separates nesting levels, a single underscore stays part of the key:

	  AQUASERVICE_SERVER__PORT            -> server.port
	  AQUASERVICE_DATABASE__SSL_MODE      -> database.ssl_mode
	  AQUASERVICE_INTEGRATION__RESEND_API_KEY -> integration.resend_api_key
*/

// EnvPrefix is the prefix every configuration variable must carry.
const EnvPrefix = "AQUASERVICE_"

// ServiceName is the fixed name used in logs, traces and email senders.
const ServiceName = "aquaservice"

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from and the
// `validate:"..."` tags are enforced by go-playground/validator.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration" validate:"required"`
	Jobs          JobsConfig           `koanf:"jobs" validate:"required"`
	Report        ReportConfig         `koanf:"report" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the sustained number of requests per second allowed per client IP.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
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

// DSN builds the postgres URL for pgx from the connection parameters.
func (d DatabaseConfig) DSN() string {
	return buildDSN(d)
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig stores authentication-related secrets and token policy.
type AuthConfig struct {
	// SecretKey signs and verifies the HS256 access tokens.
	SecretKey string `koanf:"secret_key" validate:"required,min=16"`

	// TokenTTLMinutes is how long an issued access token stays valid.
	TokenTTLMinutes int `koanf:"token_ttl_minutes" validate:"required,min=1"`

	// Issuer is written into the iss claim and checked on every request.
	Issuer string `koanf:"issuer" validate:"required"`
}

// IntegrationConfig holds credentials for third-party APIs.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key" validate:"required"`

	// EmailFrom is the verified sender address used for every outgoing email.
	EmailFrom string `koanf:"email_from" validate:"required,email"`

	// EmailFromName is the display name paired with EmailFrom.
	EmailFromName string `koanf:"email_from_name"`

	// PublicBaseURL is where clients open confirmation links from emails.
	PublicBaseURL string `koanf:"public_base_url" validate:"required,url"`

	GeocodingBaseURL         string `koanf:"geocoding_base_url" validate:"required,url"`
	GeocodingAPIKey          string `koanf:"geocoding_api_key"`
	GeocodingCacheTTLMinutes int    `koanf:"geocoding_cache_ttl_minutes" validate:"min=0"`
}

// JobsConfig tunes background processing.
type JobsConfig struct {
	// EmailBatchSize bounds how many queued emails a single drain processes.
	EmailBatchSize int `koanf:"email_batch_size" validate:"required,min=1,max=500"`

	// EmailMaxAttempts is the number of delivery attempts before a row is marked failed.
	EmailMaxAttempts int `koanf:"email_max_attempts" validate:"required,min=1"`

	// EmailDrainSpec is the asynq scheduler cron spec for periodic drains.
	EmailDrainSpec string `koanf:"email_drain_spec" validate:"required"`

	// Concurrency is the number of asynq workers.
	Concurrency int `koanf:"concurrency" validate:"required,min=1"`
}

// ReportConfig controls branding on generated documents.
type ReportConfig struct {
	CompanyName string `koanf:"company_name" validate:"required"`

	// LogoPath is an optional PNG or JPEG drawn in the header of every PDF.
	LogoPath string `koanf:"logo_path"`

	// CompanyAddress and CompanyPhone are printed under the company name.
	CompanyAddress string `koanf:"company_address"`
	CompanyPhone   string `koanf:"company_phone"`
}

// defaultConfig returns the values used when a variable is absent.
// Required secrets (database password, auth key, API keys) have no default.
func defaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "local"},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			RateLimit:          20,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 300,
			ConnMaxIdleTime: 300,
		},
		Redis: RedisConfig{Address: "localhost:6379"},
		Auth: AuthConfig{
			TokenTTLMinutes: 12 * 60,
			Issuer:          ServiceName,
		},
		Integration: IntegrationConfig{
			EmailFromName:            "Aqua Service",
			PublicBaseURL:            "http://localhost:3000",
			GeocodingBaseURL:         "https://maps.googleapis.com/maps/api",
			GeocodingCacheTTLMinutes: 30 * 24 * 60,
		},
		Jobs: JobsConfig{
			EmailBatchSize:   50,
			EmailMaxAttempts: 5,
			EmailDrainSpec:   "@every 1m",
			Concurrency:      10,
		},
		Report: ReportConfig{CompanyName: "Aqua Service"},
	}
}

// envKey maps an environment variable name to a koanf key path.
//
// Example:
//
//	AQUASERVICE_JOBS__EMAIL_BATCH_SIZE -> jobs.email_batch_size
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Load reads configuration from environment variables, unmarshals it on top
// of the defaults, validates it and fills in observability defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := defaultConfig()

	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := mainConfig.finalize(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// finalize validates struct tags and applies the observability defaults.
func (c *Config) finalize() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always follow the primary config so
	// dashboards never split one deployment into several services.
	c.Observability.ServiceName = ServiceName
	c.Observability.Environment = c.Primary.Env

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

// IsLocal reports whether the app runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}
