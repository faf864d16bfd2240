package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// minimalYAML is a config file with every required field set.
const minimalYAML = `
providers:
  completion:
    base_url: http://completion:8000
  chat:
    base_url: http://chat:8000
  transcribe:
    base_url: http://transcribe:8000
  image:
    base_url: http://image:8000
  generic:
    base_url: http://generic:8000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// validConfig returns a Config that passes validation, for mutation tests.
func validConfig() Config {
	cfg := Defaults()
	cfg.Providers = ProvidersConfig{
		Completion: VendorConfig{BaseURL: "http://c"},
		Chat:       VendorConfig{BaseURL: "http://ch"},
		Transcribe: VendorConfig{BaseURL: "http://t"},
		Image:      VendorConfig{BaseURL: "http://i"},
		Generic:    VendorConfig{BaseURL: "http://g"},
	}
	cfg.Models = []api.ModelDescriptor{
		{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
		{ID: "whisper-1", Name: "Whisper"},
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Gateway.InferenceTimeout != 30*time.Second {
		t.Errorf("Gateway.InferenceTimeout = %v", cfg.Gateway.InferenceTimeout)
	}
	if cfg.Gateway.MaxRetries != 2 {
		t.Errorf("Gateway.MaxRetries = %d", cfg.Gateway.MaxRetries)
	}
	if cfg.Gateway.RetryDelay != 500*time.Millisecond {
		t.Errorf("Gateway.RetryDelay = %v", cfg.Gateway.RetryDelay)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q", cfg.Storage.Type)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Observability.Metrics)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, minimalYAML+`
server:
  port: 9090
gateway:
  inference_timeout: 45s
  max_retries: 5
  default_model: gpt-4o-mini
models:
  - id: gpt-4o-mini
    name: GPT-4o mini
    capabilities: [chat]
  - id: whisper-1
    name: Whisper
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Gateway.InferenceTimeout != 45*time.Second {
		t.Errorf("InferenceTimeout = %v", cfg.Gateway.InferenceTimeout)
	}
	if cfg.Gateway.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", cfg.Gateway.MaxRetries)
	}
	if cfg.Providers.Completion.BaseURL != "http://completion:8000" {
		t.Errorf("Completion.BaseURL = %q", cfg.Providers.Completion.BaseURL)
	}
	if len(cfg.Models) != 2 || cfg.Models[0].ID != "gpt-4o-mini" {
		t.Errorf("Models = %+v", cfg.Models)
	}
	if len(cfg.Models) == 2 && len(cfg.Models[0].Capabilities) != 1 {
		t.Errorf("Capabilities = %+v", cfg.Models[0].Capabilities)
	}
	// Unset fields keep their defaults.
	if cfg.Gateway.RetryDelay != 500*time.Millisecond {
		t.Errorf("RetryDelay = %v, want default", cfg.Gateway.RetryDelay)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	t.Setenv("MODELGATE_PORT", "7070")
	t.Setenv("MODELGATE_INFERENCE_TIMEOUT", "10s")
	t.Setenv("MODELGATE_MAX_RETRIES", "7")
	t.Setenv("MODELGATE_RETRY_DELAY", "250ms")
	t.Setenv("MODELGATE_DEFAULT_MODEL", "env-model")
	t.Setenv("MODELGATE_COMPLETION_URL", "http://env-completion:9000")
	t.Setenv("MODELGATE_COMPLETION_API_KEY", "env-key")
	t.Setenv("MODELGATE_MODELS", `[{"id":"env-model","name":"Env Model"}]`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Gateway.InferenceTimeout != 10*time.Second {
		t.Errorf("InferenceTimeout = %v", cfg.Gateway.InferenceTimeout)
	}
	if cfg.Gateway.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d", cfg.Gateway.MaxRetries)
	}
	if cfg.Gateway.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v", cfg.Gateway.RetryDelay)
	}
	if cfg.Gateway.DefaultModel != "env-model" {
		t.Errorf("DefaultModel = %q", cfg.Gateway.DefaultModel)
	}
	if cfg.Providers.Completion.BaseURL != "http://env-completion:9000" {
		t.Errorf("Completion.BaseURL = %q", cfg.Providers.Completion.BaseURL)
	}
	if cfg.Providers.Completion.APIKey != "env-key" {
		t.Errorf("Completion.APIKey = %q", cfg.Providers.Completion.APIKey)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].ID != "env-model" {
		t.Errorf("Models = %+v", cfg.Models)
	}
}

func TestConfigFileFromEnv(t *testing.T) {
	path := writeConfig(t, minimalYAML+`
server:
  port: 6060
`)
	t.Setenv("MODELGATE_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestFileReferenceResolution(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "api-key")
	if err := os.WriteFile(keyPath, []byte("  secret-from-file\n"), 0o600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}
	dsnPath := filepath.Join(dir, "dsn")
	if err := os.WriteFile(dsnPath, []byte("postgres://u:p@host/db\n"), 0o600); err != nil {
		t.Fatalf("writing dsn: %v", err)
	}

	content := strings.Replace(minimalYAML,
		"base_url: http://chat:8000",
		"base_url: http://chat:8000\n    api_key_file: "+keyPath, 1)
	path := writeConfig(t, content+`
storage:
  type: postgres
  postgres:
    dsn_file: `+dsnPath+`
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Providers.Chat.APIKey != "secret-from-file" {
		t.Errorf("Chat.APIKey = %q", cfg.Providers.Chat.APIKey)
	}
	if cfg.Storage.Postgres.DSN != "postgres://u:p@host/db" {
		t.Errorf("Postgres.DSN = %q", cfg.Storage.Postgres.DSN)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "api-key")
	if err := os.WriteFile(keyPath, []byte("file-key"), 0o600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}

	path := writeConfig(t, strings.Replace(minimalYAML,
		"base_url: http://chat:8000",
		"base_url: http://chat:8000\n    api_key: explicit-key\n    api_key_file: "+keyPath, 1))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Chat.APIKey != "explicit-key" {
		t.Errorf("Chat.APIKey = %q, want explicit value to win", cfg.Providers.Chat.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "missing provider URL",
			mutate:  func(c *Config) { c.Providers.Generic.BaseURL = "" },
			wantErr: "providers.generic.base_url",
		},
		{
			name:    "bad storage type",
			mutate:  func(c *Config) { c.Storage.Type = "redis" },
			wantErr: "storage.type",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Storage.Type = "postgres" },
			wantErr: "storage.postgres.dsn",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Gateway.MaxRetries = -1 },
			wantErr: "gateway.max_retries",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Gateway.InferenceTimeout = 0 },
			wantErr: "gateway.inference_timeout",
		},
		{
			name:    "empty model id",
			mutate:  func(c *Config) { c.Models[1].ID = "" },
			wantErr: "models[1].id",
		},
		{
			name:    "duplicate model id",
			mutate:  func(c *Config) { c.Models[1].ID = c.Models[0].ID },
			wantErr: "duplicated",
		},
		{
			name:    "default model not in catalog",
			mutate:  func(c *Config) { c.Gateway.DefaultModel = "no-such-model" },
			wantErr: "gateway.default_model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}
