package gateway

import "time"

// Config holds the executor's timeout, retry, and model-selection settings.
type Config struct {
	// InferenceTimeout bounds a single inference call, including all retry
	// attempts (default: 30s). For streaming it bounds connection
	// establishment only; bytes already flowing are not subject to it.
	InferenceTimeout time.Duration

	// MaxRetries is the number of retry attempts after the initial call,
	// so a persistently failing provider is invoked MaxRetries+1 times
	// (default: 2). Only transient network failures are retried.
	MaxRetries int

	// RetryDelay is the initial inter-attempt delay; subsequent delays grow
	// exponentially with jitter (default: 500ms).
	RetryDelay time.Duration

	// DefaultModel is used when a request names no model and no model is
	// active. Empty means requests must name a model or activate one first.
	DefaultModel string
}

// defaults applies default values for unset configuration fields.
func (c *Config) defaults() {
	if c.InferenceTimeout == 0 {
		c.InferenceTimeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
}
