package provider

import "context"

// Provider abstracts one backend inference vendor. The interface is
// protocol-agnostic: each adapter handles its own wire format internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the adapter identifier (e.g., "completion", "chat").
	Name() string

	// Capabilities returns what this adapter supports. The executor checks
	// Streaming before invoking Stream; adapters without a streaming mode
	// report Streaming=false and fail Stream unconditionally.
	Capabilities() Capabilities

	// Infer performs non-streaming inference.
	Infer(ctx context.Context, req *Request) (*Response, error)

	// Stream performs streaming inference. On success the returned
	// StreamConn owns the open vendor byte stream; ownership transfers to
	// the caller. Adapters without streaming return a streaming_unsupported
	// error without any network activity.
	Stream(ctx context.Context, req *Request) (*StreamConn, error)

	// Close releases adapter resources (HTTP clients, idle connections).
	Close() error
}
