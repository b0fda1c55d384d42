// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (SABAQ_* runtime override)
//  2. Config file (~/.sabaq/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - LLM: provider order, model names, embedder, generation timeout
//   - Storage: PostgreSQL connection (see storage.go)
//   - Content: docs directory and source size limit
//   - HTTP: listen address, CORS, auth secret, rate limiting
//   - Observability: optional OTLP trace export
//
// Security: sensitive values (Postgres password, JWT secret) are masked in
// MarshalJSON and never logged.
//
// Error Handling: sentinel errors for Go-idiomatic checking with errors.Is();
// wrap with context using fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates an unsupported LLM provider name.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTimeout indicates the generation timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid generation timeout")

	// ErrInvalidMaxSourceBytes indicates the source size limit is out of range.
	ErrInvalidMaxSourceBytes = errors.New("invalid max source bytes")

	// ErrInvalidDocsDir indicates the docs directory is not set.
	ErrInvalidDocsDir = errors.New("invalid docs directory")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingJWTSecret indicates the JWT verification secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT secret is too short.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")
)

// LLM provider identifiers used in Config.PrimaryProvider / SecondaryProvider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Defaults applied when neither the config file nor the environment sets a value.
const (
	// DefaultPrimaryModel is the provider-qualified default generation model.
	DefaultPrimaryModel = "googleai/gemini-2.5-flash"

	// DefaultSecondaryModel is the fallback generation model.
	DefaultSecondaryModel = "openai/gpt-4o-mini"

	// DefaultEmbedderModel produces 3072-dimension vectors by default but
	// supports truncation to 768 via OutputDimensionality; the pgvector
	// schema uses 768 dimensions (see knowledge.VectorDimension).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultGenerateTimeoutSeconds bounds each provider attempt. A timeout
	// counts as a provider failure and triggers fallback.
	DefaultGenerateTimeoutSeconds = 8

	// DefaultMaxSourceBytes is the largest chapter the prompt builder accepts
	// before signalling content-too-large. No automatic chunking exists.
	DefaultMaxSourceBytes = 120 * 1024

	// MinJWTSecretLength is the minimum bearer-token HMAC secret length.
	MinJWTSecretLength = 32
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// LLM provider order and models
	PrimaryProvider   string `mapstructure:"primary_provider" json:"primary_provider"`     // "gemini" (default)
	SecondaryProvider string `mapstructure:"secondary_provider" json:"secondary_provider"` // "openai" (default), "" disables fallback
	PrimaryModel      string `mapstructure:"primary_model" json:"primary_model"`
	SecondaryModel    string `mapstructure:"secondary_model" json:"secondary_model"`
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`

	// Generation limits
	GenerateTimeoutSeconds int `mapstructure:"generate_timeout_seconds" json:"generate_timeout_seconds"`
	MaxSourceBytes         int `mapstructure:"max_source_bytes" json:"max_source_bytes"`

	// Content
	DocsDir string `mapstructure:"docs_dir" json:"docs_dir"`

	// HTTP
	Addr        string   `mapstructure:"addr" json:"addr"`
	JWTSecret   string   `mapstructure:"jwt_secret" json:"-"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"`
	PostgresDBName   string `mapstructure:"postgres_dbname" json:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode" json:"postgres_sslmode"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug | info | warn | error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (OTLP HTTP export to a local agent; empty host disables)
	TraceAgentHost   string `mapstructure:"trace_agent_host" json:"trace_agent_host"`
	TraceServiceName string `mapstructure:"trace_service_name" json:"trace_service_name"`
	TraceEnvironment string `mapstructure:"trace_environment" json:"trace_environment"`
}

// MarshalJSON masks sensitive fields so configs can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	if masked.JWTSecret != "" {
		masked.JWTSecret = "***"
	}
	return json.Marshal(masked) //nolint:wrapcheck // direct passthrough
}

// setDefaults registers default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("primary_provider", ProviderGemini)
	v.SetDefault("secondary_provider", ProviderOpenAI)
	v.SetDefault("primary_model", DefaultPrimaryModel)
	v.SetDefault("secondary_model", DefaultSecondaryModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("generate_timeout_seconds", DefaultGenerateTimeoutSeconds)
	v.SetDefault("max_source_bytes", DefaultMaxSourceBytes)
	v.SetDefault("docs_dir", "docs")
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 0)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sabaq")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_dbname", "sabaq")
	v.SetDefault("postgres_sslmode", "disable")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("trace_agent_host", "")
	v.SetDefault("trace_service_name", "sabaq")
	v.SetDefault("trace_environment", "")
}

// Load reads configuration from defaults, ~/.sabaq/config.yaml (if present)
// and SABAQ_* environment variables, then applies the DATABASE_URL override.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".sabaq"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("SABAQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Missing file is fine: defaults + env cover everything.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return cfg, nil
}
