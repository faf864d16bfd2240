package completion

import "time"

// Config holds connection settings for the completion backend.
type Config struct {
	// BaseURL is the backend base URL (e.g., "https://api.openai.com").
	BaseURL string

	// APIKey is the default credential. A per-request credential override
	// takes precedence when present.
	APIKey string

	// Timeout bounds non-streaming HTTP calls (default: 120s). Streaming
	// calls rely on context cancellation instead.
	Timeout time.Duration
}

// defaults applies default values for unset fields.
func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
}
