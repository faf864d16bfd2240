package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modelgate/modelgate/pkg/api"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, MODELGATE_CONFIG env, ./config.yaml, /etc/modelgate/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. MODELGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/modelgate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check MODELGATE_CONFIG env var.
	if envPath := os.Getenv("MODELGATE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/modelgate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps MODELGATE_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MODELGATE_DEFAULT_MODEL"); v != "" {
		cfg.Gateway.DefaultModel = v
	}
	if v := os.Getenv("MODELGATE_INFERENCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.InferenceTimeout = d
		}
	}
	if v := os.Getenv("MODELGATE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.MaxRetries = n
		}
	}
	if v := os.Getenv("MODELGATE_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.RetryDelay = d
		}
	}
	if v := os.Getenv("MODELGATE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("MODELGATE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}

	applyVendorEnv("COMPLETION", &cfg.Providers.Completion)
	applyVendorEnv("CHAT", &cfg.Providers.Chat)
	applyVendorEnv("TRANSCRIBE", &cfg.Providers.Transcribe)
	applyVendorEnv("IMAGE", &cfg.Providers.Image)
	applyVendorEnv("GENERIC", &cfg.Providers.Generic)

	// MODELGATE_MODELS: JSON array of model descriptors.
	if v := os.Getenv("MODELGATE_MODELS"); v != "" {
		models, err := parseModelsJSON(v)
		if err == nil && len(models) > 0 {
			cfg.Models = models
		}
	}
}

// applyVendorEnv maps MODELGATE_<VENDOR>_URL and MODELGATE_<VENDOR>_API_KEY
// onto one vendor block.
func applyVendorEnv(vendor string, vc *VendorConfig) {
	if v := os.Getenv("MODELGATE_" + vendor + "_URL"); v != "" {
		vc.BaseURL = v
	}
	if v := os.Getenv("MODELGATE_" + vendor + "_API_KEY"); v != "" {
		vc.APIKey = v
	}
}

// parseModelsJSON parses a JSON array of model descriptors.
func parseModelsJSON(jsonStr string) ([]api.ModelDescriptor, error) {
	var models []api.ModelDescriptor
	if err := json.Unmarshal([]byte(jsonStr), &models); err != nil {
		return nil, fmt.Errorf("parsing models JSON: %w", err)
	}
	return models, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	vendors := map[string]*VendorConfig{
		"providers.completion": &cfg.Providers.Completion,
		"providers.chat":       &cfg.Providers.Chat,
		"providers.transcribe": &cfg.Providers.Transcribe,
		"providers.image":      &cfg.Providers.Image,
		"providers.generic":    &cfg.Providers.Generic,
	}
	for path, vc := range vendors {
		if vc.APIKeyFile != "" && vc.APIKey == "" {
			val, err := readSecretFile(vc.APIKeyFile)
			if err != nil {
				return fmt.Errorf("%s.api_key_file: %w", path, err)
			}
			vc.APIKey = val
		}
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
