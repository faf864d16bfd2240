package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// gateway timings must be positive; max_retries may be zero.
	if c.Gateway.InferenceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.inference_timeout must be > 0, got %v", c.Gateway.InferenceTimeout))
	}
	if c.Gateway.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("gateway.max_retries must be >= 0, got %d", c.Gateway.MaxRetries))
	}
	if c.Gateway.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("gateway.retry_delay must be > 0, got %v", c.Gateway.RetryDelay))
	}

	// Every adapter needs a backend URL; the resolver dispatches to all five.
	vendors := map[string]VendorConfig{
		"providers.completion": c.Providers.Completion,
		"providers.chat":       c.Providers.Chat,
		"providers.transcribe": c.Providers.Transcribe,
		"providers.image":      c.Providers.Image,
		"providers.generic":    c.Providers.Generic,
	}
	for path, vc := range vendors {
		if vc.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required", path))
		}
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// Catalog ids must be non-empty and unique.
	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("models[%d].id is required", i))
			continue
		}
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("models[%d].id %q is duplicated", i, m.ID))
		}
		seen[m.ID] = true
	}

	// gateway.default_model must be in the catalog when both are set.
	if c.Gateway.DefaultModel != "" && len(c.Models) > 0 && !seen[c.Gateway.DefaultModel] {
		errs = append(errs, fmt.Errorf("gateway.default_model %q is not in the model catalog", c.Gateway.DefaultModel))
	}

	return errors.Join(errs...)
}
