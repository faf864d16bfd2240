// Package config provides unified configuration for the modelgate gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MODELGATE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// Config holds all configuration for the modelgate gateway.
type Config struct {
	Server        ServerConfig          `yaml:"server"`
	Gateway       GatewayConfig         `yaml:"gateway"`
	Providers     ProvidersConfig       `yaml:"providers"`
	Resolver      ResolverConfig        `yaml:"resolver"`
	Storage       StorageConfig         `yaml:"storage"`
	Observability ObservabilityConfig   `yaml:"observability"`
	Models        []api.ModelDescriptor `yaml:"models"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// GatewayConfig holds the inference executor settings.
type GatewayConfig struct {
	InferenceTimeout time.Duration `yaml:"inference_timeout"` // default: 30s
	MaxRetries       int           `yaml:"max_retries"`       // default: 2
	RetryDelay       time.Duration `yaml:"retry_delay"`       // default: 500ms
	DefaultModel     string        `yaml:"default_model"`     // optional
}

// ProvidersConfig holds per-vendor backend settings, one block per adapter.
type ProvidersConfig struct {
	Completion VendorConfig `yaml:"completion"`
	Chat       VendorConfig `yaml:"chat"`
	Transcribe VendorConfig `yaml:"transcribe"`
	Image      VendorConfig `yaml:"image"`
	Generic    VendorConfig `yaml:"generic"`
}

// VendorConfig holds connection settings for one backend vendor.
type VendorConfig struct {
	BaseURL    string        `yaml:"base_url"`     // required
	APIKey     string        `yaml:"api_key"`      // optional
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // optional, adapter default applies
}

// ResolverConfig holds the model-id pattern rules. Empty lists fall back to
// the resolver's built-in defaults.
type ResolverConfig struct {
	CompletionPrefixes []string `yaml:"completion_prefixes"`
	TranscriptionIDs   []string `yaml:"transcription_ids"`
	ImagePrefixes      []string `yaml:"image_prefixes"`
	ChatPrefixes       []string `yaml:"chat_prefixes"`
}

// StorageConfig holds activation persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Gateway: GatewayConfig{
			InferenceTimeout: 30 * time.Second,
			MaxRetries:       2,
			RetryDelay:       500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
